package service

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/itchan-dev/guestbook/internal/domain"
	internal_errors "github.com/itchan-dev/guestbook/internal/errors"
	"github.com/itchan-dev/guestbook/internal/logger"
	"github.com/itchan-dev/guestbook/internal/metrics"
)

type MessageService interface {
	SaveAttachment(originalFilename string, data io.Reader) (*domain.StoredAttachment, error)
	DiscardAttachment(attachment *domain.StoredAttachment)
	OpenAttachment(name domain.FileName) (*os.File, error)
	Create(ctx context.Context, data domain.MessageCreationData) (domain.MsgId, error)
	List(ctx context.Context) ([]domain.Message, error)
	Delete(ctx context.Context, id domain.MsgId) error
	Ping(ctx context.Context) error
}

type MessageStorage interface {
	CreateMessage(ctx context.Context, data domain.MessageCreationData) (domain.MsgId, error)
	ListMessages(ctx context.Context) ([]domain.Message, error)
	// DeleteMessage returns the deleted record, or nil when no message had that id.
	DeleteMessage(ctx context.Context, id domain.MsgId) (*domain.Message, error)
	Ping(ctx context.Context) error
}

type Message struct {
	storage   MessageStorage
	media     MediaStorage
	validator *validator.Validate
}

func NewMessage(storage MessageStorage, media MediaStorage) *Message {
	return &Message{
		storage:   storage,
		media:     media,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Message) SaveAttachment(originalFilename string, data io.Reader) (*domain.StoredAttachment, error) {
	attachment, err := s.media.Save(originalFilename, data)
	if err != nil {
		return nil, err
	}
	if attachment == nil {
		logger.Log.Info("dropped attachment with unsupported extension", "filename", originalFilename)
		metrics.AttachmentStored(domain.MediaUnsupported)
		return nil, nil
	}
	metrics.AttachmentStored(attachment.Kind)
	return attachment, nil
}

// DiscardAttachment removes a file stored for a submission that was not persisted.
func (s *Message) DiscardAttachment(attachment *domain.StoredAttachment) {
	if attachment == nil {
		return
	}
	if err := s.media.Delete(attachment.Name); err != nil {
		logger.Log.Error("failed to remove orphaned attachment", "file", attachment.Name, "error", err)
	}
}

func (s *Message) OpenAttachment(name domain.FileName) (*os.File, error) {
	return s.media.Open(name)
}

func (s *Message) Create(ctx context.Context, data domain.MessageCreationData) (domain.MsgId, error) {
	if err := s.validator.Struct(data); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return 0, &internal_errors.ValidationError{Message: validationMessage(validationErrors[0])}
		}
		return 0, &internal_errors.ValidationError{Message: err.Error()}
	}

	id, err := s.storage.CreateMessage(ctx, data)
	if err != nil {
		return 0, err
	}
	metrics.MessageCreated()
	return id, nil
}

func (s *Message) List(ctx context.Context) ([]domain.Message, error) {
	return s.storage.ListMessages(ctx)
}

// Delete removes the message and then its attachment. Unknown ids are a no-op.
func (s *Message) Delete(ctx context.Context, id domain.MsgId) error {
	deleted, err := s.storage.DeleteMessage(ctx, id)
	if err != nil {
		return err
	}
	if deleted == nil {
		return nil
	}
	metrics.MessageDeleted()

	// The row is already gone, a leftover file is only logged
	for _, name := range deleted.Attachments() {
		if err := s.media.Delete(name); err != nil {
			logger.Log.Error("failed to delete attachment of deleted message", "message_id", id, "file", name, "error", err)
		}
	}
	return nil
}

func (s *Message) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch field {
	case "Text":
		field = "message"
	case "Name":
		field = "name"
	}
	if fe.Tag() == "required" {
		return field + " is required"
	}
	return field + " is invalid"
}
