package handler

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/itchan-dev/guestbook/internal/domain"
	internal_errors "github.com/itchan-dev/guestbook/internal/errors"
)

const (
	fieldName    = "name"
	fieldMessage = "message"
	fieldMedia   = "media" // image or video
	fieldImage   = "image" // image only
)

var errInvalidUTF8 = errors.New("invalid UTF-8")

// CreateMessage streams a multipart submission: text fields are accumulated,
// the first accepted attachment is written straight to the attachment store.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Server.MaxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxRequestBytes)
	}

	data, err := h.decodeSubmission(r)
	if err != nil {
		h.message.DiscardAttachment(data.Attachment)
		writeError(w, r, err)
		return
	}

	if _, err := h.message.Create(r.Context(), data); err != nil {
		h.message.DiscardAttachment(data.Attachment)
		writeError(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// decodeSubmission returns whatever attachment was stored even on error,
// so the caller can remove it.
func (h *Handler) decodeSubmission(r *http.Request) (domain.MessageCreationData, error) {
	var data domain.MessageCreationData

	reader, err := r.MultipartReader()
	if err != nil {
		return data, &internal_errors.DecodeError{Err: err}
	}

	var name, message fieldAccumulator
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return data, bodyError("", err)
		}

		field := part.FormName()
		switch field {
		case fieldName:
			err = name.readFrom(part)
		case fieldMessage:
			err = message.readFrom(part)
		case fieldMedia, fieldImage:
			err = h.storeAttachment(part, &data)
		default:
			_, err = io.Copy(io.Discard, part)
		}
		part.Close()
		if err != nil {
			return data, bodyError(field, err)
		}
	}

	if data.Name, err = name.decode(fieldName); err != nil {
		return data, err
	}
	if data.Text, err = message.decode(fieldMessage); err != nil {
		return data, err
	}
	return data, nil
}

func (h *Handler) storeAttachment(part *multipart.Part, data *domain.MessageCreationData) error {
	filename := part.FileName()
	skip := filename == "" || data.Attachment != nil
	if part.FormName() == fieldImage && domain.ClassifyFilename(filename) != domain.MediaImage {
		skip = true
	}
	if skip {
		_, err := io.Copy(io.Discard, part)
		return err
	}

	attachment, err := h.message.SaveAttachment(filename, part)
	if err != nil {
		return err
	}
	data.Attachment = attachment
	return nil
}

// fieldAccumulator collects a text field across chunks and decodes it once.
type fieldAccumulator struct {
	buf bytes.Buffer
}

func (f *fieldAccumulator) readFrom(r io.Reader) error {
	_, err := f.buf.ReadFrom(r)
	return err
}

func (f *fieldAccumulator) decode(field string) (string, error) {
	if !utf8.Valid(f.buf.Bytes()) {
		return "", &internal_errors.DecodeError{Field: field, Err: errInvalidUTF8}
	}
	return f.buf.String(), nil
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, &internal_errors.ErrorWithStatusCode{Message: "invalid message id", StatusCode: http.StatusBadRequest})
		return
	}

	if err := h.message.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
