package services

import (
	"testing"

	"tasknotes/tasknotes/models"
	"tasknotes/tasknotes/testutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask_Success(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := createTestUser(t, db, "alice")
	intruder := uuid.New()

	taskService := NewTaskService(nil)
	task, err := taskService.CreateTask(db, alice.ID, map[string]interface{}{
		"title":       "Buy milk",
		"description": "2 litres",
		"due_date":    "2030-01-02T15:04:05Z",
		"user_id":     intruder.String(),
		"id":          uuid.NewString(),
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, alice.ID, task.UserID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, "2 litres", task.Description)
	assert.False(t, task.Completed)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, 2030, task.DueDate.Year())
	assert.Empty(t, task.Notes)

	var events []models.Event
	require.NoError(t, db.DB.Where("event = ?", "task.created").Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, alice.ID.String(), events[0].ActorID)
	assert.False(t, events[0].Dispatched)
}

func TestCreateTask_Validation(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := createTestUser(t, db, "alice")
	taskService := NewTaskService(nil)

	cases := []map[string]interface{}{
		{},
		{"title": "   "},
		{"title": 42},
		{"title": "ok", "completed": "maybe"},
		{"title": "ok", "due_date": "next tuesday"},
	}
	for _, data := range cases {
		_, err := taskService.CreateTask(db, alice.ID, data)
		assert.ErrorIs(t, err, ErrValidation, "data: %v", data)
	}
	assert.Equal(t, int64(0), countRows(t, db, &models.Task{}))
}

func TestCreateTask_Anonymous(t *testing.T) {
	db := testutils.SetupTestDB(t)

	_, err := NewTaskService(nil).CreateTask(db, uuid.Nil, map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetTasks_OwnerScoped(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	taskService := NewTaskService(nil)

	createTestTask(t, db, alice.ID, "alice 1")
	createTestTask(t, db, alice.ID, "alice 2")
	createTestTask(t, db, bob.ID, "bob 1")

	tasks, err := taskService.GetTasks(db, alice.ID, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, alice.ID, task.UserID)
		assert.NotNil(t, task.Notes)
	}

	tasks, err = taskService.GetTasks(db, bob.ID, map[string]interface{}{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "bob 1", tasks[0].Title)

	tasks, err = taskService.GetTasks(db, uuid.Nil, nil)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)
}

func TestGetTasks_CompletedFilter(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := createTestUser(t, db, "alice")
	taskService := NewTaskService(nil)

	done := createTestTask(t, db, alice.ID, "done")
	createTestTask(t, db, alice.ID, "open")
	_, err := taskService.MarkComplete(db, alice.ID, done.ID.String())
	require.NoError(t, err)

	tasks, err := taskService.GetTasks(db, alice.ID, map[string]interface{}{"completed": "true"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "done", tasks[0].Title)

	tasks, err = taskService.GetTasks(db, alice.ID, map[string]interface{}{"completed": "false"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "open", tasks[0].Title)
}

func TestGetTaskById_ForeignAndMissing(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	taskService := NewTaskService(nil)

	task := createTestTask(t, db, alice.ID, "private")

	got, err := taskService.GetTaskById(db, alice.ID, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	for _, id := range []string{task.ID.String(), uuid.NewString(), "not-a-uuid"} {
		_, err := taskService.GetTaskById(db, bob.ID, id)
		assert.ErrorIs(t, err, ErrTaskNotFound, "id: %s", id)
	}
}

func TestUpdateTask_PutAndPatch(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := createTestUser(t, db, "alice")
	taskService := NewTaskService(nil)

	task, err := taskService.CreateTask(db, alice.ID, map[string]interface{}{
		"title":       "Original",
		"description": "keep me",
	})
	require.NoError(t, err)

	// PUT without a title is rejected.
	_, err = taskService.UpdateTask(db, alice.ID, task.ID.String(), map[string]interface{}{"completed": true}, false)
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := taskService.UpdateTask(db, alice.ID, task.ID.String(), map[string]interface{}{
		"title":      "Renamed",
		"created_at": "1999-01-01T00:00:00Z",
		"user_id":    uuid.NewString(),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, alice.ID, updated.UserID)
	assert.Equal(t, task.CreatedAt.Unix(), updated.CreatedAt.Unix())

	patched, err := taskService.UpdateTask(db, alice.ID, task.ID.String(), map[string]interface{}{"completed": true}, true)
	require.NoError(t, err)
	assert.True(t, patched.Completed)
	assert.Equal(t, "Renamed", patched.Title)

	cleared, err := taskService.UpdateTask(db, alice.ID, task.ID.String(), map[string]interface{}{"due_date": "2031-05-06"}, true)
	require.NoError(t, err)
	require.NotNil(t, cleared.DueDate)

	cleared, err = taskService.UpdateTask(db, alice.ID, task.ID.String(), map[string]interface{}{"due_date": nil}, true)
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)
}

func TestUpdateTask_ForeignTaskUntouched(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	taskService := NewTaskService(nil)

	task := createTestTask(t, db, alice.ID, "alice task")

	_, err := taskService.UpdateTask(db, bob.ID, task.ID.String(), map[string]interface{}{"title": "hijacked"}, true)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = taskService.MarkComplete(db, bob.ID, task.ID.String())
	assert.ErrorIs(t, err, ErrTaskNotFound)

	err = taskService.DeleteTask(db, bob.ID, task.ID.String())
	assert.ErrorIs(t, err, ErrTaskNotFound)

	got, err := taskService.GetTaskById(db, alice.ID, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "alice task", got.Title)
	assert.False(t, got.Completed)
}

func TestMarkComplete_Success(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := createTestUser(t, db, "alice")
	taskService := NewTaskService(nil)

	task := createTestTask(t, db, alice.ID, "finish me")

	done, err := taskService.MarkComplete(db, alice.ID, task.ID.String())
	require.NoError(t, err)
	assert.True(t, done.Completed)

	// Marking twice is harmless.
	_, err = taskService.MarkComplete(db, alice.ID, task.ID.String())
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.DB.Model(&models.Event{}).Where("event = ?", "task.completed").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestDeleteTask_CascadesNotesAndFiles(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := createTestUser(t, db, "alice")
	storage := newMemoryStorage()
	taskService := NewTaskService(storage)
	noteService := NewNoteService(storage)

	task := createTestTask(t, db, alice.ID, "with notes")
	other := createTestTask(t, db, alice.ID, "other")

	withFile, err := noteService.CreateNote(db, alice.ID, map[string]interface{}{
		"title": "attached",
		"task":  task.ID.String(),
	}, textAttachment("a.txt", "hello"))
	require.NoError(t, err)
	_, err = noteService.CreateNote(db, alice.ID, map[string]interface{}{
		"title": "plain",
		"task":  task.ID.String(),
	}, nil)
	require.NoError(t, err)
	kept, err := noteService.CreateNote(db, alice.ID, map[string]interface{}{
		"title": "elsewhere",
		"task":  other.ID.String(),
	}, nil)
	require.NoError(t, err)

	require.NoError(t, taskService.DeleteTask(db, alice.ID, task.ID.String()))

	_, err = taskService.GetTaskById(db, alice.ID, task.ID.String())
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.False(t, storage.has(withFile.File))

	notes, err := noteService.GetNotes(db, alice.ID, nil)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, kept.ID, notes[0].ID)
}

func TestGetTaskById_PreloadsOwnNotes(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := createTestUser(t, db, "alice")
	taskService := NewTaskService(nil)
	noteService := NewNoteService(nil)

	task := createTestTask(t, db, alice.ID, "parent")
	_, err := noteService.CreateNote(db, alice.ID, map[string]interface{}{
		"title":   "child",
		"content": "body",
		"task":    task.ID.String(),
	}, nil)
	require.NoError(t, err)

	got, err := taskService.GetTaskById(db, alice.ID, task.ID.String())
	require.NoError(t, err)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "child", got.Notes[0].Title)
	assert.Equal(t, task.ID, got.Notes[0].TaskID)
}
