package services

import (
	"errors"
	"log"
	"time"

	"tasknotes/tasknotes/broker"
	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskServiceInterface exposes a user's tasks. Every method is scoped to
// userID; a task owned by somebody else behaves exactly like a missing one.
type TaskServiceInterface interface {
	GetTasks(db *database.Database, userID uuid.UUID, params map[string]interface{}) ([]models.Task, error)
	GetTaskById(db *database.Database, userID uuid.UUID, id string) (models.Task, error)
	CreateTask(db *database.Database, userID uuid.UUID, taskData map[string]interface{}) (models.Task, error)
	UpdateTask(db *database.Database, userID uuid.UUID, id string, taskData map[string]interface{}, partial bool) (models.Task, error)
	MarkComplete(db *database.Database, userID uuid.UUID, id string) (models.Task, error)
	DeleteTask(db *database.Database, userID uuid.UUID, id string) error
}

type TaskService struct {
	storage FileStorage
}

func NewTaskService(storage FileStorage) *TaskService {
	return &TaskService{storage: storage}
}

func (s *TaskService) GetTasks(db *database.Database, userID uuid.UUID, params map[string]interface{}) ([]models.Task, error) {
	tasks := []models.Task{}
	if userID == uuid.Nil {
		return tasks, nil
	}

	query := db.DB.Where("user_id = ?", userID)

	if completed, ok := params["completed"].(string); ok && completed != "" {
		query = query.Where("completed = ?", completed == "true")
	}

	if err := query.Preload("Notes", ownedNotes(userID)).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].Notes == nil {
			tasks[i].Notes = []models.Note{}
		}
	}
	return tasks, nil
}

func (s *TaskService) GetTaskById(db *database.Database, userID uuid.UUID, id string) (models.Task, error) {
	return findOwnedTask(db.DB.Preload("Notes", ownedNotes(userID)), userID, id)
}

// CreateTask inserts a task owned by userID; any owner in taskData is
// ignored.
func (s *TaskService) CreateTask(db *database.Database, userID uuid.UUID, taskData map[string]interface{}) (models.Task, error) {
	if userID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}

	fields, err := parseTaskFields(taskData, false)
	if err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		UserID: userID,
		Title:  fields["title"].(string),
		Notes:  []models.Note{},
	}
	if description, ok := fields["description"].(string); ok {
		task.Description = description
	}
	if completed, ok := fields["completed"].(bool); ok {
		task.Completed = completed
	}
	if dueDate, ok := fields["due_date"]; ok {
		task.DueDate = dueDate.(*time.Time)
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Task{}, tx.Error
	}

	if err := tx.Create(&task).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := recordEvent(tx, broker.TaskCreated, "task", "create", userID, taskEventData(task)); err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	return task, nil
}

func (s *TaskService) UpdateTask(db *database.Database, userID uuid.UUID, id string, taskData map[string]interface{}, partial bool) (models.Task, error) {
	if userID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Task{}, tx.Error
	}

	task, err := findOwnedTask(tx, userID, id)
	if err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	fields, err := parseTaskFields(taskData, partial)
	if err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if len(fields) > 0 {
		if err := tx.Model(&task).Updates(fields).Error; err != nil {
			tx.Rollback()
			return models.Task{}, err
		}
	}

	updated, err := findOwnedTask(tx.Preload("Notes", ownedNotes(userID)), userID, id)
	if err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := recordEvent(tx, broker.TaskUpdated, "task", "update", userID, taskEventData(updated)); err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	return updated, nil
}

func (s *TaskService) MarkComplete(db *database.Database, userID uuid.UUID, id string) (models.Task, error) {
	if userID == uuid.Nil {
		return models.Task{}, ErrUnauthorized
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Task{}, tx.Error
	}

	task, err := findOwnedTask(tx, userID, id)
	if err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Model(&task).Update("completed", true).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}
	task.Completed = true

	if err := recordEvent(tx, broker.TaskCompleted, "task", "update", userID, taskEventData(task)); err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	return task, nil
}

// DeleteTask removes the task together with its notes and their
// attachments.
func (s *TaskService) DeleteTask(db *database.Database, userID uuid.UUID, id string) error {
	if userID == uuid.Nil {
		return ErrUnauthorized
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	task, err := findOwnedTask(tx, userID, id)
	if err != nil {
		tx.Rollback()
		return err
	}

	var files []string
	if err := tx.Model(&models.Note{}).
		Where("task_id = ? AND file <> ''", task.ID).
		Pluck("file", &files).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Where("task_id = ?", task.ID).Delete(&models.Note{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Delete(&task).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := recordEvent(tx, broker.TaskDeleted, "task", "delete", userID, map[string]interface{}{
		"task_id": task.ID.String(),
		"user_id": userID.String(),
	}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}

	for _, key := range files {
		removeAttachment(s.storage, key)
	}
	return nil
}

// findOwnedTask loads a task by id restricted to its owner. Malformed ids,
// missing rows and rows of other users all yield ErrTaskNotFound.
func findOwnedTask(tx *gorm.DB, userID uuid.UUID, id string) (models.Task, error) {
	taskID, err := uuid.Parse(id)
	if err != nil || userID == uuid.Nil {
		return models.Task{}, ErrTaskNotFound
	}

	var task models.Task
	if err := tx.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	if task.Notes == nil {
		task.Notes = []models.Note{}
	}
	return task, nil
}

func ownedNotes(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID).Order("created_at DESC")
	}
}

func taskEventData(task models.Task) map[string]interface{} {
	return map[string]interface{}{
		"task_id":   task.ID.String(),
		"user_id":   task.UserID.String(),
		"title":     task.Title,
		"completed": task.Completed,
	}
}

func removeAttachment(storage FileStorage, key string) {
	if storage == nil || key == "" {
		return
	}
	if err := storage.Delete(key); err != nil {
		log.Printf("Failed to delete attachment %s: %v", key, err)
	}
}

var TaskServiceInstance TaskServiceInterface
