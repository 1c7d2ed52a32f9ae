package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/itchan-dev/guestbook/internal/config"
	"github.com/itchan-dev/guestbook/internal/handler"
	"github.com/itchan-dev/guestbook/internal/metrics"
	mw "github.com/itchan-dev/guestbook/internal/middleware"
	"github.com/itchan-dev/guestbook/web"
)

// New creates and configures a chi router with all the routes.
func New(h *handler.Handler, cfg config.Public) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(mw.SecurityHeadersWithCSP(cfg.Server.HTTPS, mw.PageCSP))

	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/", h.Index)
	r.Post("/post", h.CreateMessage)
	r.Post("/delete/{id}", h.DeleteMessage)
	r.Get("/uploads/{filename}", h.ServeUpload)
	r.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", metrics.Handler())

	return r
}

func staticHandler() http.Handler {
	files := http.FileServer(http.FS(web.Static()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the worker lives under /static/ but controls the whole site
		if strings.HasSuffix(r.URL.Path, "service-worker.js") {
			w.Header().Set("Service-Worker-Allowed", "/")
			w.Header().Set("Cache-Control", "no-cache")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		files.ServeHTTP(w, r)
	})
}
