package service

import (
	"io"
	"os"

	"github.com/itchan-dev/guestbook/internal/domain"
)

type MediaStorage interface {
	// Save classifies the file by its extension and stores it under a unique name.
	// It returns nil without an error when the extension is not an accepted image or video.
	Save(originalFilename string, fileData io.Reader) (*domain.StoredAttachment, error)

	// Open opens a stored file for reading given its name.
	Open(name domain.FileName) (*os.File, error)

	// Delete removes a single file.
	Delete(name domain.FileName) error
}
