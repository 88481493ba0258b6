package routes

import (
	"net/http"

	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/middleware"
	"tasknotes/tasknotes/services"

	"github.com/gin-gonic/gin"
)

func RegisterTaskRoutes(group *gin.RouterGroup, db *database.Database, taskService services.TaskServiceInterface) {
	group.GET("/tasks/", func(c *gin.Context) { GetTasks(c, db, taskService) })
	group.POST("/tasks/", func(c *gin.Context) { CreateTask(c, db, taskService) })

	task := group.Group("/tasks/:id", middleware.ResourceIDMiddleware())
	{
		task.GET("/", func(c *gin.Context) { GetTaskById(c, db, taskService) })
		task.PUT("/", func(c *gin.Context) { UpdateTask(c, db, taskService, false) })
		task.PATCH("/", func(c *gin.Context) { UpdateTask(c, db, taskService, true) })
		task.DELETE("/", func(c *gin.Context) { DeleteTask(c, db, taskService) })
		task.POST("/mark_complete/", func(c *gin.Context) { MarkTaskComplete(c, db, taskService) })
	}
}

func GetTasks(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	params := make(map[string]interface{})
	if completed := c.Query("completed"); completed != "" {
		params["completed"] = completed
	}

	tasks, err := taskService.GetTasks(db, currentUserID(c), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func CreateTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	var taskData map[string]interface{}
	if err := c.ShouldBindJSON(&taskData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := taskService.CreateTask(db, currentUserID(c), taskData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func GetTaskById(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	task, err := taskService.GetTaskById(db, currentUserID(c), resourceID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask serves PUT (partial=false) and PATCH (partial=true).
func UpdateTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface, partial bool) {
	var taskData map[string]interface{}
	if err := c.ShouldBindJSON(&taskData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := taskService.UpdateTask(db, currentUserID(c), resourceID(c), taskData, partial)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func DeleteTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	if err := taskService.DeleteTask(db, currentUserID(c), resourceID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func MarkTaskComplete(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	if _, err := taskService.MarkComplete(db, currentUserID(c), resourceID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "marked complete"})
}
