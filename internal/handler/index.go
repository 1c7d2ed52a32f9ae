package handler

import (
	"net/http"

	"github.com/itchan-dev/guestbook/internal/domain"
	"github.com/itchan-dev/guestbook/internal/logger"
)

const listErrorBanner = "Messages could not be loaded. Please try again later."

// Index renders every message, newest first. A listing failure still renders
// the page, with status 500 and an error banner.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	common := domain.CommonTemplateData{Theme: themeFromRequest(r)}
	status := http.StatusOK

	messages, err := h.message.List(r.Context())
	if err != nil {
		logger.Log.Error("listing messages", "error", err)
		common.Error = listErrorBanner
		status = http.StatusInternalServerError
	}

	page := domain.IndexPage{Messages: make([]*domain.RenderedMessage, 0, len(messages))}
	for _, m := range messages {
		page.Messages = append(page.Messages, h.renderMessage(m))
	}

	h.renderTemplate(w, status, "index.html", page, common)
}
