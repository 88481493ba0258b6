package services

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memoryStorage is a FileStorage that keeps attachments in a map.
type memoryStorage struct {
	mu    sync.Mutex
	files map[string][]byte
	saves int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (s *memoryStorage) Save(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	key := attachmentDir + "/" + uuid.NewString() + "_" + sanitizeFilename(filename)
	s.files[key] = data
	return key, nil
}

func (s *memoryStorage) Open(key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func (s *memoryStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok
}

func (s *memoryStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func createTestUser(t *testing.T, db *database.Database, username string) models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "not-a-real-hash"}
	require.NoError(t, db.DB.Create(&user).Error)
	return user
}

func createTestTask(t *testing.T, db *database.Database, owner uuid.UUID, title string) models.Task {
	t.Helper()
	task, err := NewTaskService(nil).CreateTask(db, owner, map[string]interface{}{"title": title})
	require.NoError(t, err)
	return task
}

func countRows(t *testing.T, db *database.Database, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.DB.Model(model).Count(&count).Error)
	return count
}

func textAttachment(name, body string) *Attachment {
	return &Attachment{Filename: name, Reader: bytes.NewBufferString(body)}
}
