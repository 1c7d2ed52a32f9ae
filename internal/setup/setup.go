package setup

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/itchan-dev/guestbook/internal/config"
	"github.com/itchan-dev/guestbook/internal/handler"
	"github.com/itchan-dev/guestbook/internal/logger"
	"github.com/itchan-dev/guestbook/internal/markdown"
	"github.com/itchan-dev/guestbook/internal/service"
	mediafs "github.com/itchan-dev/guestbook/internal/storage/fs"
	"github.com/itchan-dev/guestbook/internal/storage/sqldb"
	"github.com/itchan-dev/guestbook/web"
)

const (
	baseTemplate        = "base.html"
	templateReloadDelay = 200 * time.Millisecond
)

type Dependencies struct {
	Handler *handler.Handler
	Storage *sqldb.Storage
	Media   *mediafs.Storage
	GC      *service.AttachmentGarbageCollector
	Config  *config.Config

	// CancelFunc stops the background tasks started here
	CancelFunc context.CancelFunc
	watcher    *fsnotify.Watcher
}

// SetupDependencies opens the message store (running migrations), loads the
// templates and wires the handler. The store is closed again on any later failure.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	store, err := sqldb.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	templatesDir := cfg.Public.Templates.Dir
	templates, err := LoadTemplates(templateFS(templatesDir))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	media := mediafs.New(cfg.Public.Storage.UploadDir)
	messageService := service.NewMessage(store, media)
	h := handler.New(messageService, markdown.New(), templates, cfg.Public)

	bgCtx, cancel := context.WithCancel(ctx)
	deps := &Dependencies{
		Handler:    h,
		Storage:    store,
		Media:      media,
		GC:         service.NewAttachmentGarbageCollector(store, media, cfg.Public.Storage.GCMinAge),
		Config:     cfg,
		CancelFunc: cancel,
	}

	if cfg.Public.Templates.Reload && templatesDir != "" {
		watcher, err := startTemplateReloader(bgCtx, h, templatesDir)
		if err != nil {
			cancel()
			store.Close()
			return nil, err
		}
		deps.watcher = watcher
	}

	if interval := cfg.Public.Storage.GCInterval; interval > 0 {
		deps.GC.StartBackgroundCleanup(bgCtx, interval)
	}

	return deps, nil
}

// Close stops the background tasks and closes the message store.
func (d *Dependencies) Close() error {
	if d.CancelFunc != nil {
		d.CancelFunc()
	}
	var errs []error
	if d.watcher != nil {
		errs = append(errs, d.watcher.Close())
	}
	if d.Storage != nil {
		errs = append(errs, d.Storage.Close())
	}
	return errors.Join(errs...)
}

// templateFS prefers an on-disk template folder over the embedded one.
func templateFS(dir string) fs.FS {
	if dir == "" {
		return web.Templates()
	}
	return os.DirFS(dir)
}

// LoadTemplates parses every page template together with base.html.
// Pages are keyed by file name.
func LoadTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	templates := make(map[string]*template.Template)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".html" || name == baseTemplate {
			continue
		}
		tmpl, err := template.New(baseTemplate).ParseFS(fsys, baseTemplate, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	return templates, nil
}

// startTemplateReloader re-parses the template folder after it changes.
// A broken template is logged and the previous set stays in use.
func startTemplateReloader(ctx context.Context, h *handler.Handler, dir string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create template watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch template directory: %w", err)
	}

	reload := func() {
		templates, err := LoadTemplates(os.DirFS(dir))
		if err != nil {
			logger.Log.Error("template reload failed", "dir", dir, "error", err)
			return
		}
		h.SetTemplates(templates)
		logger.Log.Info("templates reloaded", "dir", dir)
	}

	go func() {
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".html") || strings.HasPrefix(filepath.Base(event.Name), ".") {
					continue
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(templateReloadDelay, reload)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Log.Warn("template watcher error", "error", err)
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	}()

	logger.Log.Info("watching templates", "dir", dir)
	return watcher, nil
}
