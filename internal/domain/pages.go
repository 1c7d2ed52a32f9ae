package domain

import "html/template"

// RenderedMessage wraps Message with presentation fields.
// Text is overwritten with sanitized HTML.
type RenderedMessage struct {
	Message
	Text      template.HTML
	ImageURL  string
	VideoURL  string
	VideoType string
}

// CommonTemplateData holds fields that are common to all page templates.
type CommonTemplateData struct {
	Error string
	Theme Theme
}

type IndexPage struct {
	Messages []*RenderedMessage
}
