package routes

import (
	"io"

	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/models"
	"tasknotes/tasknotes/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) GetTasks(db *database.Database, userID uuid.UUID, params map[string]interface{}) ([]models.Task, error) {
	args := m.Called(db, userID, params)
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockTaskService) GetTaskById(db *database.Database, userID uuid.UUID, id string) (models.Task, error) {
	args := m.Called(db, userID, id)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) CreateTask(db *database.Database, userID uuid.UUID, taskData map[string]interface{}) (models.Task, error) {
	args := m.Called(db, userID, taskData)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) UpdateTask(db *database.Database, userID uuid.UUID, id string, taskData map[string]interface{}, partial bool) (models.Task, error) {
	args := m.Called(db, userID, id, taskData, partial)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) MarkComplete(db *database.Database, userID uuid.UUID, id string) (models.Task, error) {
	args := m.Called(db, userID, id)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(db *database.Database, userID uuid.UUID, id string) error {
	args := m.Called(db, userID, id)
	return args.Error(0)
}

type MockNoteService struct {
	mock.Mock
}

func (m *MockNoteService) GetNotes(db *database.Database, userID uuid.UUID, params map[string]interface{}) ([]models.Note, error) {
	args := m.Called(db, userID, params)
	return args.Get(0).([]models.Note), args.Error(1)
}

func (m *MockNoteService) GetNoteById(db *database.Database, userID uuid.UUID, id string) (models.Note, error) {
	args := m.Called(db, userID, id)
	return args.Get(0).(models.Note), args.Error(1)
}

func (m *MockNoteService) CreateNote(db *database.Database, userID uuid.UUID, noteData map[string]interface{}, attachment *services.Attachment) (models.Note, error) {
	args := m.Called(db, userID, noteData, attachment)
	return args.Get(0).(models.Note), args.Error(1)
}

func (m *MockNoteService) UpdateNote(db *database.Database, userID uuid.UUID, id string, noteData map[string]interface{}, attachment *services.Attachment, partial bool) (models.Note, error) {
	args := m.Called(db, userID, id, noteData, attachment, partial)
	return args.Get(0).(models.Note), args.Error(1)
}

func (m *MockNoteService) DeleteNote(db *database.Database, userID uuid.UUID, id string) error {
	args := m.Called(db, userID, id)
	return args.Error(0)
}

func (m *MockNoteService) OpenAttachment(db *database.Database, userID uuid.UUID, id string) (io.ReadCloser, string, error) {
	args := m.Called(db, userID, id)
	reader, _ := args.Get(0).(io.ReadCloser)
	return reader, args.String(1), args.Error(2)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(db *database.Database, username, email, password string) (models.User, services.TokenPair, error) {
	args := m.Called(db, username, email, password)
	return args.Get(0).(models.User), args.Get(1).(services.TokenPair), args.Error(2)
}

func (m *MockAuthService) Login(db *database.Database, username, password string) (services.TokenPair, error) {
	args := m.Called(db, username, password)
	return args.Get(0).(services.TokenPair), args.Error(1)
}

func (m *MockAuthService) Refresh(db *database.Database, refreshToken string) (services.TokenPair, error) {
	args := m.Called(db, refreshToken)
	return args.Get(0).(services.TokenPair), args.Error(1)
}

func (m *MockAuthService) Logout(db *database.Database, userID uuid.UUID, refreshToken string) error {
	args := m.Called(db, userID, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*services.JWTClaims, error) {
	args := m.Called(tokenString)
	claims, _ := args.Get(0).(*services.JWTClaims)
	return claims, args.Error(1)
}
