package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/itchan-dev/guestbook/internal/domain"
	"github.com/itchan-dev/guestbook/internal/logger"
)

// TemplateData wraps page-specific data with common template data.
// Templates access page data via .Data and common data via .Common.
type TemplateData struct {
	Data   any
	Common domain.CommonTemplateData
}

func (h *Handler) renderTemplate(w http.ResponseWriter, status int, name string, data any, common domain.CommonTemplateData) {
	tmpl, ok := h.getTemplate(name)
	if !ok {
		logger.Log.Error("template not found", "template", name)
		http.Error(w, fmt.Sprintf("Template %s not found", name), http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, TemplateData{Data: data, Common: common}); err != nil {
		logger.Log.Error("error executing template", "template", name, "error", err)
		http.Error(w, "Internal Server Error rendering template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func themeFromRequest(r *http.Request) domain.Theme {
	cookie, err := r.Cookie(domain.ThemeCookieName)
	if err != nil {
		return domain.ThemeLight
	}
	return domain.ThemeFromCookie(cookie.Value)
}

func uploadURL(name domain.FileName) string {
	return "/uploads/" + url.PathEscape(name)
}

// renderMessage transforms a domain.Message into the listing view model.
func (h *Handler) renderMessage(message domain.Message) *domain.RenderedMessage {
	rendered := &domain.RenderedMessage{
		Message: message,
		Text:    template.HTML(h.textProcessor.Render(message.Text)),
	}
	if message.ImagePath != nil {
		rendered.ImageURL = uploadURL(*message.ImagePath)
	}
	if message.VideoPath != nil {
		rendered.VideoURL = uploadURL(*message.VideoPath)
		rendered.VideoType = domain.ContentType(*message.VideoPath)
	}
	return rendered
}
