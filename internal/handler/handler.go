package handler

import (
	"html/template"
	"sync"

	"github.com/itchan-dev/guestbook/internal/config"
	"github.com/itchan-dev/guestbook/internal/markdown"
	"github.com/itchan-dev/guestbook/internal/service"
)

type Handler struct {
	message       service.MessageService
	textProcessor *markdown.TextProcessor
	cfg           config.Public

	mu        sync.RWMutex
	templates map[string]*template.Template
}

func New(message service.MessageService, textProcessor *markdown.TextProcessor, templates map[string]*template.Template, cfg config.Public) *Handler {
	return &Handler{
		message:       message,
		textProcessor: textProcessor,
		cfg:           cfg,
		templates:     templates,
	}
}

// SetTemplates swaps the template set; used by the development reloader.
func (h *Handler) SetTemplates(templates map[string]*template.Template) {
	h.mu.Lock()
	h.templates = templates
	h.mu.Unlock()
}

func (h *Handler) getTemplate(name string) (*template.Template, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	tmpl, ok := h.templates[name]
	return tmpl, ok
}
