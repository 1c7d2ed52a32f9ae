package domain

import (
	"path/filepath"
	"strings"
)

type MediaKind int

const (
	MediaUnsupported MediaKind = iota
	MediaImage
	MediaVideo
)

func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	default:
		return "unsupported"
	}
}

// mediaKinds is the complete list of accepted extensions. Content is never sniffed.
var mediaKinds = map[string]MediaKind{
	"jpg":  MediaImage,
	"jpeg": MediaImage,
	"png":  MediaImage,
	"gif":  MediaImage,
	"mp4":  MediaVideo,
	"mov":  MediaVideo,
	"avi":  MediaVideo,
	"webm": MediaVideo,
}

// ClassifyExtension accepts an extension with or without the leading dot, in any case.
func ClassifyExtension(ext string) MediaKind {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if kind, ok := mediaKinds[ext]; ok {
		return kind
	}
	return MediaUnsupported
}

func ClassifyFilename(filename string) MediaKind {
	return ClassifyExtension(filepath.Ext(filename))
}

// StoredAttachment is a file written by the attachment store.
type StoredAttachment struct {
	Name             FileName // {token}-{sanitized original name}, relative to the upload root
	OriginalFilename string
	Kind             MediaKind
	SizeBytes        int64
}

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"webm": "video/webm",
}

// ContentType returns the MIME type for a stored attachment name, or "" for
// extensions outside the accepted set.
func ContentType(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return contentTypes[ext]
}
