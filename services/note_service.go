package services

import (
	"errors"
	"fmt"
	"io"

	"tasknotes/tasknotes/broker"
	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment is an uploaded file that accompanies a note create or update.
type Attachment struct {
	Filename string
	Reader   io.Reader
}

// NoteServiceInterface exposes a user's notes. Like tasks, every method is
// scoped to userID, and a note may only point at a task of the same user.
type NoteServiceInterface interface {
	GetNotes(db *database.Database, userID uuid.UUID, params map[string]interface{}) ([]models.Note, error)
	GetNoteById(db *database.Database, userID uuid.UUID, id string) (models.Note, error)
	CreateNote(db *database.Database, userID uuid.UUID, noteData map[string]interface{}, attachment *Attachment) (models.Note, error)
	UpdateNote(db *database.Database, userID uuid.UUID, id string, noteData map[string]interface{}, attachment *Attachment, partial bool) (models.Note, error)
	DeleteNote(db *database.Database, userID uuid.UUID, id string) error
	OpenAttachment(db *database.Database, userID uuid.UUID, id string) (io.ReadCloser, string, error)
}

var errForeignTask = fmt.Errorf("%w: Task does not belong to user", ErrValidation)

type NoteService struct {
	storage FileStorage
}

// NewNoteService creates a new instance of NoteService
func NewNoteService(storage FileStorage) *NoteService {
	return &NoteService{storage: storage}
}

func (s *NoteService) GetNotes(db *database.Database, userID uuid.UUID, params map[string]interface{}) ([]models.Note, error) {
	notes := []models.Note{}
	if userID == uuid.Nil {
		return notes, nil
	}

	query := db.DB.Where("user_id = ?", userID)

	if taskIDStr, ok := params["task"].(string); ok && taskIDStr != "" {
		taskID, err := uuid.Parse(taskIDStr)
		if err != nil {
			return notes, nil
		}
		query = query.Where("task_id = ?", taskID)
	}

	if err := query.Order("created_at DESC").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *NoteService) GetNoteById(db *database.Database, userID uuid.UUID, id string) (models.Note, error) {
	return findOwnedNote(db.DB, userID, id)
}

// CreateNote checks that the referenced task belongs to userID before it
// writes anything, including the attachment.
func (s *NoteService) CreateNote(db *database.Database, userID uuid.UUID, noteData map[string]interface{}, attachment *Attachment) (models.Note, error) {
	if userID == uuid.Nil {
		return models.Note{}, ErrUnauthorized
	}

	fields, taskID, err := parseNoteFields(noteData, false)
	if err != nil {
		return models.Note{}, err
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Note{}, tx.Error
	}

	if err := checkTaskOwner(tx, userID, *taskID); err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	note := models.Note{
		UserID: userID,
		TaskID: *taskID,
		Title:  fields["title"].(string),
	}
	if content, ok := fields["content"].(string); ok {
		note.Content = content
	}

	if attachment != nil {
		key, err := s.saveAttachment(attachment)
		if err != nil {
			tx.Rollback()
			return models.Note{}, err
		}
		note.File = key
	}

	if err := tx.Create(&note).Error; err != nil {
		tx.Rollback()
		removeAttachment(s.storage, note.File)
		return models.Note{}, err
	}

	if err := recordEvent(tx, broker.NoteCreated, "note", "create", userID, noteEventData(note)); err != nil {
		tx.Rollback()
		removeAttachment(s.storage, note.File)
		return models.Note{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		removeAttachment(s.storage, note.File)
		return models.Note{}, err
	}

	return note, nil
}

// UpdateNote applies noteData to the caller's note. A "file": null entry
// removes the attachment; a new attachment replaces the old one.
func (s *NoteService) UpdateNote(db *database.Database, userID uuid.UUID, id string, noteData map[string]interface{}, attachment *Attachment, partial bool) (models.Note, error) {
	if userID == uuid.Nil {
		return models.Note{}, ErrUnauthorized
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Note{}, tx.Error
	}

	note, err := findOwnedNote(tx, userID, id)
	if err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	fields, taskID, err := parseNoteFields(noteData, partial)
	if err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	if taskID != nil && *taskID != note.TaskID {
		if err := checkTaskOwner(tx, userID, *taskID); err != nil {
			tx.Rollback()
			return models.Note{}, err
		}
	}
	if taskID != nil {
		fields["task_id"] = *taskID
	}

	oldFile := note.File
	newFile := ""
	if attachment != nil {
		newFile, err = s.saveAttachment(attachment)
		if err != nil {
			tx.Rollback()
			return models.Note{}, err
		}
		fields["file"] = newFile
	} else if raw, ok := noteData["file"]; ok && raw == nil {
		fields["file"] = ""
	}

	if len(fields) > 0 {
		if err := tx.Model(&note).Updates(fields).Error; err != nil {
			tx.Rollback()
			removeAttachment(s.storage, newFile)
			return models.Note{}, err
		}
	}

	updated, err := findOwnedNote(tx, userID, id)
	if err != nil {
		tx.Rollback()
		removeAttachment(s.storage, newFile)
		return models.Note{}, err
	}

	if err := recordEvent(tx, broker.NoteUpdated, "note", "update", userID, noteEventData(updated)); err != nil {
		tx.Rollback()
		removeAttachment(s.storage, newFile)
		return models.Note{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		removeAttachment(s.storage, newFile)
		return models.Note{}, err
	}

	if oldFile != "" && oldFile != updated.File {
		removeAttachment(s.storage, oldFile)
	}

	return updated, nil
}

func (s *NoteService) DeleteNote(db *database.Database, userID uuid.UUID, id string) error {
	if userID == uuid.Nil {
		return ErrUnauthorized
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	note, err := findOwnedNote(tx, userID, id)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Delete(&note).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := recordEvent(tx, broker.NoteDeleted, "note", "delete", userID, map[string]interface{}{
		"note_id": note.ID.String(),
		"task_id": note.TaskID.String(),
		"user_id": userID.String(),
	}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}

	removeAttachment(s.storage, note.File)
	return nil
}

// OpenAttachment returns the attachment of the caller's note and its
// original file name. A note without attachment is ErrNotFound.
func (s *NoteService) OpenAttachment(db *database.Database, userID uuid.UUID, id string) (io.ReadCloser, string, error) {
	note, err := findOwnedNote(db.DB, userID, id)
	if err != nil {
		return nil, "", err
	}
	if note.File == "" || s.storage == nil {
		return nil, "", ErrNotFound
	}

	reader, err := s.storage.Open(note.File)
	if err != nil {
		return nil, "", err
	}
	return reader, AttachmentName(note.File), nil
}

func (s *NoteService) saveAttachment(attachment *Attachment) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("%w: file uploads are disabled", ErrValidation)
	}
	key, err := s.storage.Save(attachment.Filename, attachment.Reader)
	if err != nil {
		if errors.Is(err, ErrAttachmentTooLarge) {
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return "", err
	}
	return key, nil
}

// checkTaskOwner fails with a validation error unless taskID is a task of
// userID. Missing and foreign tasks are reported the same way.
func checkTaskOwner(tx *gorm.DB, userID, taskID uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.Task{}).
		Where("id = ? AND user_id = ?", taskID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errForeignTask
	}
	return nil
}

func findOwnedNote(tx *gorm.DB, userID uuid.UUID, id string) (models.Note, error) {
	noteID, err := uuid.Parse(id)
	if err != nil || userID == uuid.Nil {
		return models.Note{}, ErrNoteNotFound
	}

	var note models.Note
	if err := tx.Where("id = ? AND user_id = ?", noteID, userID).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Note{}, ErrNoteNotFound
		}
		return models.Note{}, err
	}
	return note, nil
}

func noteEventData(note models.Note) map[string]interface{} {
	return map[string]interface{}{
		"note_id":  note.ID.String(),
		"task_id":  note.TaskID.String(),
		"user_id":  note.UserID.String(),
		"title":    note.Title,
		"has_file": note.File != "",
	}
}

var NoteServiceInstance NoteServiceInterface
