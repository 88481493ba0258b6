package routes

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/middleware"
	"tasknotes/tasknotes/services"

	"github.com/gin-gonic/gin"
)

// Form fields copied from multipart requests into the note data.
var noteFormFields = []string{"title", "content", "task"}

func RegisterNoteRoutes(group *gin.RouterGroup, db *database.Database, noteService services.NoteServiceInterface, maxUploadBytes int64) {
	group.GET("/notes/", func(c *gin.Context) { GetNotes(c, db, noteService) })
	group.POST("/notes/", func(c *gin.Context) { CreateNote(c, db, noteService, maxUploadBytes) })

	note := group.Group("/notes/:id", middleware.ResourceIDMiddleware())
	{
		note.GET("/", func(c *gin.Context) { GetNoteById(c, db, noteService) })
		note.PUT("/", func(c *gin.Context) { UpdateNote(c, db, noteService, maxUploadBytes, false) })
		note.PATCH("/", func(c *gin.Context) { UpdateNote(c, db, noteService, maxUploadBytes, true) })
		note.DELETE("/", func(c *gin.Context) { DeleteNote(c, db, noteService) })
		note.GET("/file/", func(c *gin.Context) { DownloadNoteFile(c, db, noteService) })
	}
}

func GetNotes(c *gin.Context, db *database.Database, noteService services.NoteServiceInterface) {
	params := make(map[string]interface{})
	if task := c.Query("task"); task != "" {
		params["task"] = task
	}

	notes, err := noteService.GetNotes(db, currentUserID(c), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func CreateNote(c *gin.Context, db *database.Database, noteService services.NoteServiceInterface, maxUploadBytes int64) {
	noteData, attachment, closeFile, err := bindNoteInput(c, maxUploadBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeFile()

	note, err := noteService.CreateNote(db, currentUserID(c), noteData, attachment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func GetNoteById(c *gin.Context, db *database.Database, noteService services.NoteServiceInterface) {
	note, err := noteService.GetNoteById(db, currentUserID(c), resourceID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func UpdateNote(c *gin.Context, db *database.Database, noteService services.NoteServiceInterface, maxUploadBytes int64, partial bool) {
	noteData, attachment, closeFile, err := bindNoteInput(c, maxUploadBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeFile()

	note, err := noteService.UpdateNote(db, currentUserID(c), resourceID(c), noteData, attachment, partial)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func DeleteNote(c *gin.Context, db *database.Database, noteService services.NoteServiceInterface) {
	if err := noteService.DeleteNote(db, currentUserID(c), resourceID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func DownloadNoteFile(c *gin.Context, db *database.Database, noteService services.NoteServiceInterface) {
	reader, name, err := noteService.OpenAttachment(db, currentUserID(c), resourceID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, -1, contentType, reader, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": name}),
	})
}

// bindNoteInput reads note data from a JSON or multipart body. The returned
// close func releases the uploaded file and is always safe to call.
func bindNoteInput(c *gin.Context, maxUploadBytes int64) (map[string]interface{}, *services.Attachment, func(), error) {
	noop := func() {}

	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		var noteData map[string]interface{}
		if err := c.ShouldBindJSON(&noteData); err != nil {
			return nil, nil, noop, err
		}
		return noteData, nil, noop, nil
	}

	if maxUploadBytes > 0 {
		// Leave room for the other form fields.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<20)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, noop, fmt.Errorf("invalid multipart body: %w", err)
	}

	noteData := make(map[string]interface{})
	for _, field := range noteFormFields {
		if values, ok := form.Value[field]; ok && len(values) > 0 {
			noteData[field] = values[0]
		}
	}
	// An empty file field clears the attachment.
	if values, ok := form.Value["file"]; ok && len(values) > 0 && values[0] == "" {
		noteData["file"] = nil
	}

	files := form.File["file"]
	if len(files) == 0 {
		return noteData, nil, noop, nil
	}

	header := files[0]
	if maxUploadBytes > 0 && header.Size > maxUploadBytes {
		return nil, nil, noop, fmt.Errorf("file exceeds the %d MB upload limit", maxUploadBytes>>20)
	}

	file, err := header.Open()
	if err != nil {
		return nil, nil, noop, err
	}
	return noteData, &services.Attachment{Filename: header.Filename, Reader: file}, closer(file), nil
}

func closer(f multipart.File) func() {
	return func() {
		f.Close()
	}
}

