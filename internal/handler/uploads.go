package handler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/itchan-dev/guestbook/internal/domain"
	internal_errors "github.com/itchan-dev/guestbook/internal/errors"
)

// ServeUpload streams a stored attachment. Range requests are honoured so
// videos can be seeked.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	// chi matches on RawPath when the request carries one, so the param is still escaped
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			writeError(w, r, fmt.Errorf("attachment %q: %w", name, internal_errors.NotFound))
			return
		}
		name = unescaped
	}

	f, err := h.message.OpenAttachment(name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, r, err)
		return
	}

	if ct := domain.ContentType(name); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
