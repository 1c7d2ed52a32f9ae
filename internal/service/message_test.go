package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/guestbook/internal/domain"
	internal_errors "github.com/itchan-dev/guestbook/internal/errors"
)

// Mock structs
type MockMessageStorage struct {
	CreateMessageFunc func(ctx context.Context, data domain.MessageCreationData) (domain.MsgId, error)
	ListMessagesFunc  func(ctx context.Context) ([]domain.Message, error)
	DeleteMessageFunc func(ctx context.Context, id domain.MsgId) (*domain.Message, error)
	PingFunc          func(ctx context.Context) error
}

func (m *MockMessageStorage) CreateMessage(ctx context.Context, data domain.MessageCreationData) (domain.MsgId, error) {
	if m.CreateMessageFunc != nil {
		return m.CreateMessageFunc(ctx, data)
	}
	return 1, nil
}

func (m *MockMessageStorage) ListMessages(ctx context.Context) ([]domain.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx)
	}
	return []domain.Message{}, nil
}

func (m *MockMessageStorage) DeleteMessage(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
	if m.DeleteMessageFunc != nil {
		return m.DeleteMessageFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockMessageStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

type MockMediaStorage struct {
	SaveFunc   func(originalFilename string, fileData io.Reader) (*domain.StoredAttachment, error)
	OpenFunc   func(name domain.FileName) (*os.File, error)
	DeleteFunc func(name domain.FileName) error
}

func (m *MockMediaStorage) Save(originalFilename string, fileData io.Reader) (*domain.StoredAttachment, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(originalFilename, fileData)
	}
	return &domain.StoredAttachment{Name: "token-" + originalFilename, OriginalFilename: originalFilename, Kind: domain.ClassifyFilename(originalFilename)}, nil
}

func (m *MockMediaStorage) Open(name domain.FileName) (*os.File, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(name)
	}
	return nil, internal_errors.NotFound
}

func (m *MockMediaStorage) Delete(name domain.FileName) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(name)
	}
	return nil
}

func strPtr(s string) *string { return &s }

func TestMessageCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		var got domain.MessageCreationData
		storage := &MockMessageStorage{
			CreateMessageFunc: func(_ context.Context, data domain.MessageCreationData) (domain.MsgId, error) {
				got = data
				return 42, nil
			},
		}
		s := NewMessage(storage, &MockMediaStorage{})

		attachment := &domain.StoredAttachment{Name: "t-a.png", Kind: domain.MediaImage}
		id, err := s.Create(ctx, domain.MessageCreationData{Name: "Bob", Text: "hello", Attachment: attachment})

		require.NoError(t, err)
		assert.Equal(t, domain.MsgId(42), id)
		assert.Equal(t, "Bob", got.Name)
		assert.Equal(t, "hello", got.Text)
		assert.Same(t, attachment, got.Attachment)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name    string
			data    domain.MessageCreationData
			message string
		}{
			{"empty name", domain.MessageCreationData{Text: "hello"}, "name is required"},
			{"empty message", domain.MessageCreationData{Name: "Bob"}, "message is required"},
			{"both empty", domain.MessageCreationData{}, "name is required"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				storage := &MockMessageStorage{
					CreateMessageFunc: func(context.Context, domain.MessageCreationData) (domain.MsgId, error) {
						t.Fatal("storage must not be called for invalid input")
						return 0, nil
					},
				}
				s := NewMessage(storage, &MockMediaStorage{})

				_, err := s.Create(ctx, tc.data)

				var validationErr *internal_errors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tc.message, validationErr.Message)
			})
		}
	})

	t.Run("storage error", func(t *testing.T) {
		storageErr := &internal_errors.PersistenceError{Op: "insert message", Err: errors.New("disk full")}
		storage := &MockMessageStorage{
			CreateMessageFunc: func(context.Context, domain.MessageCreationData) (domain.MsgId, error) {
				return 0, storageErr
			},
		}
		s := NewMessage(storage, &MockMediaStorage{})

		_, err := s.Create(ctx, domain.MessageCreationData{Name: "Bob", Text: "hello"})
		assert.ErrorIs(t, err, storageErr)
	})
}

func TestMessageSaveAttachment(t *testing.T) {
	t.Run("supported", func(t *testing.T) {
		var savedName string
		var savedBody string
		media := &MockMediaStorage{
			SaveFunc: func(originalFilename string, fileData io.Reader) (*domain.StoredAttachment, error) {
				savedName = originalFilename
				b, _ := io.ReadAll(fileData)
				savedBody = string(b)
				return &domain.StoredAttachment{Name: "tok-photo.jpg", Kind: domain.MediaImage}, nil
			},
		}
		s := NewMessage(&MockMessageStorage{}, media)

		attachment, err := s.SaveAttachment("photo.jpg", strings.NewReader("jpeg bytes"))
		require.NoError(t, err)
		require.NotNil(t, attachment)
		assert.Equal(t, "tok-photo.jpg", attachment.Name)
		assert.Equal(t, "photo.jpg", savedName)
		assert.Equal(t, "jpeg bytes", savedBody)
	})

	t.Run("unsupported is dropped", func(t *testing.T) {
		media := &MockMediaStorage{
			SaveFunc: func(string, io.Reader) (*domain.StoredAttachment, error) {
				return nil, nil
			},
		}
		s := NewMessage(&MockMessageStorage{}, media)

		attachment, err := s.SaveAttachment("archive.zip", strings.NewReader("PK"))
		require.NoError(t, err)
		assert.Nil(t, attachment)
	})

	t.Run("storage error", func(t *testing.T) {
		saveErr := &internal_errors.StorageError{Op: "write attachment", Err: errors.New("no space")}
		media := &MockMediaStorage{
			SaveFunc: func(string, io.Reader) (*domain.StoredAttachment, error) {
				return nil, saveErr
			},
		}
		s := NewMessage(&MockMessageStorage{}, media)

		attachment, err := s.SaveAttachment("photo.png", strings.NewReader("x"))
		assert.Nil(t, attachment)
		assert.ErrorIs(t, err, saveErr)
	})
}

func TestMessageDiscardAttachment(t *testing.T) {
	var deleted []string
	media := &MockMediaStorage{
		DeleteFunc: func(name domain.FileName) error {
			deleted = append(deleted, name)
			return errors.New("already gone")
		},
	}
	s := NewMessage(&MockMessageStorage{}, media)

	s.DiscardAttachment(nil)
	assert.Empty(t, deleted)

	// errors are logged, not returned
	s.DiscardAttachment(&domain.StoredAttachment{Name: "tok-a.png"})
	assert.Equal(t, []string{"tok-a.png"}, deleted)
}

func TestMessageDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes attachments after the row", func(t *testing.T) {
		var order []string
		storage := &MockMessageStorage{
			DeleteMessageFunc: func(_ context.Context, id domain.MsgId) (*domain.Message, error) {
				order = append(order, "row")
				return &domain.Message{Id: id, ImagePath: strPtr("tok-a.png"), VideoPath: strPtr("tok-b.mp4")}, nil
			},
		}
		media := &MockMediaStorage{
			DeleteFunc: func(name domain.FileName) error {
				order = append(order, name)
				return nil
			},
		}
		s := NewMessage(storage, media)

		require.NoError(t, s.Delete(ctx, 7))
		assert.Equal(t, []string{"row", "tok-a.png", "tok-b.mp4"}, order)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		media := &MockMediaStorage{
			DeleteFunc: func(domain.FileName) error {
				t.Fatal("no file should be deleted")
				return nil
			},
		}
		s := NewMessage(&MockMessageStorage{}, media)

		assert.NoError(t, s.Delete(ctx, 999))
	})

	t.Run("file errors are not fatal", func(t *testing.T) {
		storage := &MockMessageStorage{
			DeleteMessageFunc: func(_ context.Context, id domain.MsgId) (*domain.Message, error) {
				return &domain.Message{Id: id, ImagePath: strPtr("tok-a.png")}, nil
			},
		}
		media := &MockMediaStorage{
			DeleteFunc: func(domain.FileName) error { return errors.New("permission denied") },
		}
		s := NewMessage(storage, media)

		assert.NoError(t, s.Delete(ctx, 1))
	})

	t.Run("storage error", func(t *testing.T) {
		storageErr := &internal_errors.PersistenceError{Op: "delete message", Err: errors.New("locked")}
		storage := &MockMessageStorage{
			DeleteMessageFunc: func(context.Context, domain.MsgId) (*domain.Message, error) {
				return nil, storageErr
			},
		}
		s := NewMessage(storage, &MockMediaStorage{})

		assert.ErrorIs(t, s.Delete(ctx, 1), storageErr)
	})
}

func TestMessageListAndPing(t *testing.T) {
	ctx := context.Background()
	want := []domain.Message{{Id: 2, Name: "b"}, {Id: 1, Name: "a"}}
	pingErr := errors.New("db closed")
	storage := &MockMessageStorage{
		ListMessagesFunc: func(context.Context) ([]domain.Message, error) { return want, nil },
		PingFunc:         func(context.Context) error { return pingErr },
	}
	s := NewMessage(storage, &MockMediaStorage{})

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.ErrorIs(t, s.Ping(ctx), pingErr)
}

func TestMessageOpenAttachment(t *testing.T) {
	s := NewMessage(&MockMessageStorage{}, &MockMediaStorage{})

	f, err := s.OpenAttachment("missing.png")
	assert.Nil(t, f)
	assert.ErrorIs(t, err, internal_errors.NotFound)
}
