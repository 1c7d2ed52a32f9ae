package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/itchan-dev/guestbook/internal/domain"
	internal_errors "github.com/itchan-dev/guestbook/internal/errors"
	"github.com/itchan-dev/guestbook/internal/service"
)

const maxSanitizedNameBytes = 200

type Storage struct {
	rootPath string
}

// Ensure Storage struct implements the interface at compile time.
var (
	_ service.MediaStorage   = (*Storage)(nil)
	_ service.GCMediaStorage = (*Storage)(nil)
)

// New does not touch the filesystem: the upload directory is created lazily on first save.
func New(rootPath string) *Storage {
	// Use filepath.Clean to prevent path traversal issues like "uploads/../"
	return &Storage{rootPath: filepath.Clean(rootPath)}
}

func (s *Storage) Root() string {
	return s.rootPath
}

// Save classifies the upload by extension and writes it as {uuid}-{sanitized filename}.
// Unsupported extensions are drained and dropped: (nil, nil).
func (s *Storage) Save(originalFilename string, fileData io.Reader) (*domain.StoredAttachment, error) {
	kind := domain.ClassifyFilename(originalFilename)
	src := &sourceReader{r: fileData}
	if kind == domain.MediaUnsupported {
		if _, err := io.Copy(io.Discard, src); err != nil {
			return nil, &internal_errors.DecodeError{Err: err}
		}
		return nil, nil
	}

	name := fmt.Sprintf("%s-%s", uuid.New().String(), sanitizeFilename(originalFilename))
	fullPath := filepath.Join(s.rootPath, name)

	if err := os.MkdirAll(s.rootPath, 0755); err != nil {
		return nil, &internal_errors.StorageError{Op: "create upload directory", Err: err}
	}

	// O_EXCL: a uuid collision must never overwrite another upload
	dst, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, &internal_errors.StorageError{Op: "create destination file", Err: err}
	}

	size, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(fullPath) // Best effort, ignore error here.
		if src.err != nil {
			return nil, &internal_errors.DecodeError{Err: src.err}
		}
		return nil, &internal_errors.StorageError{Op: "copy file data", Err: err}
	}
	if err := dst.Close(); err != nil {
		os.Remove(fullPath)
		return nil, &internal_errors.StorageError{Op: "close destination file", Err: err}
	}

	return &domain.StoredAttachment{
		Name:             name,
		OriginalFilename: originalFilename,
		Kind:             kind,
		SizeBytes:        size,
	}, nil
}

// sourceReader remembers a failure of the upload stream so it is not
// mistaken for a failure of the destination file.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

// Open opens a stored attachment for reading. Only bare names produced by Save are accepted.
func (s *Storage) Open(name domain.FileName) (*os.File, error) {
	if !isBareName(name) {
		return nil, fmt.Errorf("attachment %q: %w", name, internal_errors.NotFound)
	}

	file, err := os.Open(filepath.Join(s.rootPath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("attachment %q: %w", name, internal_errors.NotFound)
		}
		return nil, &internal_errors.StorageError{Op: "open file", Err: err}
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &internal_errors.StorageError{Op: "stat file", Err: err}
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("attachment %q: %w", name, internal_errors.NotFound)
	}

	return file, nil
}

// Delete removes a single file from storage. A file that is already gone is not an error.
func (s *Storage) Delete(name domain.FileName) error {
	if !isBareName(name) {
		return fmt.Errorf("attachment %q: %w", name, internal_errors.NotFound)
	}

	err := os.Remove(filepath.Join(s.rootPath, name))
	if err != nil && !os.IsNotExist(err) {
		return &internal_errors.StorageError{Op: "delete file", Err: err}
	}
	return nil
}

// List returns the names of all regular files in the upload directory.
// A directory that was never created holds no files.
func (s *Storage) List() ([]domain.FileName, error) {
	entries, err := os.ReadDir(s.rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &internal_errors.StorageError{Op: "list upload directory", Err: err}
	}

	names := make([]domain.FileName, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *Storage) Stat(name domain.FileName) (time.Time, int64, error) {
	if !isBareName(name) {
		return time.Time{}, 0, fmt.Errorf("attachment %q: %w", name, internal_errors.NotFound)
	}
	info, err := os.Stat(filepath.Join(s.rootPath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, 0, fmt.Errorf("attachment %q: %w", name, internal_errors.NotFound)
		}
		return time.Time{}, 0, &internal_errors.StorageError{Op: "stat file", Err: err}
	}
	return info.ModTime(), info.Size(), nil
}

func isBareName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

var windowsReserved = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// sanitizeFilename keeps the last path component of a client supplied name and strips
// everything that is unsafe in a file name on common filesystems.
func sanitizeFilename(name string) string {
	// Browsers on Windows may send full paths
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case r == utf8.RuneError, unicode.IsControl(r):
			return -1
		case strings.ContainsRune(`<>:"|?*`, r):
			return -1
		}
		return r
	}, name)

	name = strings.Trim(name, ". ")

	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	if _, reserved := windowsReserved[stem]; reserved {
		name = "_" + name
	}

	if len(name) > maxSanitizedNameBytes {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = truncateUTF8(strings.TrimSuffix(name, ext), maxSanitizedNameBytes-len(ext)) + ext
	}

	if name == "" {
		return "file"
	}
	return name
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
