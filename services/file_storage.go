package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// FileStorage persists note attachments. Keys are slash-separated paths
// relative to the storage root.
type FileStorage interface {
	Save(filename string, r io.Reader) (string, error)
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
}

const attachmentDir = "notes_files"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type LocalFileStorage struct {
	root     string
	maxBytes int64
}

func NewLocalFileStorage(root string, maxBytes int64) (*LocalFileStorage, error) {
	if err := os.MkdirAll(filepath.Join(root, attachmentDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalFileStorage{root: root, maxBytes: maxBytes}, nil
}

// Save writes r under notes_files/ with a unique prefix. Uploads larger than
// the configured limit are rejected and nothing is left on disk.
func (s *LocalFileStorage) Save(filename string, r io.Reader) (string, error) {
	key := path.Join(attachmentDir, uuid.NewString()+"_"+sanitizeFilename(filename))

	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}

	written, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxBytes > 0 && written > s.maxBytes {
		err = ErrAttachmentTooLarge
	}
	if err != nil {
		os.Remove(fullPath)
		return "", err
	}

	return key, nil
}

func (s *LocalFileStorage) Open(key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes the file; a missing file is not an error.
func (s *LocalFileStorage) Delete(key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalFileStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if !strings.HasPrefix(clean, "/"+attachmentDir+"/") {
		return "", fmt.Errorf("%w: attachment key outside storage root", ErrInvalidInput)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "attachment"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return base
}

// AttachmentName is the client-facing file name of a stored key.
func AttachmentName(key string) string {
	base := path.Base(key)
	if i := strings.Index(base, "_"); i >= 0 && i+1 < len(base) {
		return base[i+1:]
	}
	return base
}
