package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itchan-dev/guestbook/internal/domain"
	internal_errors "github.com/itchan-dev/guestbook/internal/errors"
)

// CreateMessage inserts a single row and returns the id assigned by the database.
func (s *Storage) CreateMessage(ctx context.Context, data domain.MessageCreationData) (domain.MsgId, error) {
	imagePath, videoPath := data.Paths()
	createdTs := time.Now().UTC().Round(time.Microsecond) // postgres rounds to microsecond anyway

	var id domain.MsgId
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
	INSERT INTO messages (name, message, image_path, video_path, created_at)
	VALUES (?, ?, ?, ?, ?)
	RETURNING id`),
		data.Name, data.Text, imagePath, videoPath, createdTs).Scan(&id)
	if err != nil {
		return 0, &internal_errors.PersistenceError{Op: "insert message", Err: err}
	}
	return id, nil
}

// ListMessages returns every message, newest (highest id) first.
func (s *Storage) ListMessages(ctx context.Context) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, name, message, image_path, video_path, created_at
	FROM messages
	ORDER BY id DESC`)
	if err != nil {
		return nil, &internal_errors.PersistenceError{Op: "list messages", Err: err}
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, &internal_errors.PersistenceError{Op: "scan message", Err: err}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, &internal_errors.PersistenceError{Op: "list messages", Err: err}
	}
	return messages, nil
}

// DeleteMessage removes the row and returns it, so the caller can clean up attachments.
// A missing id is not an error: (nil, nil).
func (s *Storage) DeleteMessage(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
	DELETE FROM messages
	WHERE id = ?
	RETURNING id, name, message, image_path, video_path, created_at`), id)

	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &internal_errors.PersistenceError{Op: fmt.Sprintf("delete message %d", id), Err: err}
	}
	return &msg, nil
}

// AttachmentNames returns every stored file name referenced by a message.
func (s *Storage) AttachmentNames(ctx context.Context) ([]domain.FileName, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT image_path FROM messages WHERE image_path IS NOT NULL
	UNION ALL
	SELECT video_path FROM messages WHERE video_path IS NOT NULL`)
	if err != nil {
		return nil, &internal_errors.PersistenceError{Op: "list attachment names", Err: err}
	}
	defer rows.Close()

	names := make([]domain.FileName, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &internal_errors.PersistenceError{Op: "scan attachment name", Err: err}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &internal_errors.PersistenceError{Op: "list attachment names", Err: err}
	}
	return names, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (domain.Message, error) {
	var (
		msg       domain.Message
		imagePath sql.NullString
		videoPath sql.NullString
		createdAt nullTime
	)
	if err := row.Scan(&msg.Id, &msg.Name, &msg.Text, &imagePath, &videoPath, &createdAt); err != nil {
		return domain.Message{}, err
	}
	if imagePath.Valid {
		msg.ImagePath = &imagePath.String
	}
	if videoPath.Valid {
		msg.VideoPath = &videoPath.String
	}
	msg.CreatedAt = createdAt.Time
	return msg, nil
}

// Layouts SQLite drivers use when a time.Time lands in a DATETIME column as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// nullTime scans timestamps from both drivers; rows written before the
// created_at migration have none.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (nt *nullTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		nt.Time, nt.Valid = time.Time{}, false
		return nil
	case time.Time:
		nt.Time, nt.Valid = v.UTC(), true
		return nil
	case int64:
		nt.Time, nt.Valid = time.Unix(v, 0).UTC(), true
		return nil
	case []byte:
		return nt.parse(string(v))
	case string:
		return nt.parse(v)
	}
	return fmt.Errorf("unsupported timestamp type %T", value)
}

func (nt *nullTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			nt.Time, nt.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unparsable timestamp %q", s)
}
