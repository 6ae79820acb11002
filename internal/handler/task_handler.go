package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todolist/internal/apperr"
	"todolist/internal/model"
	"todolist/internal/service/task"
)

type TaskHandler struct {
	tasks  *task.Service
	logger *zap.Logger
}

func NewTaskHandler(tasks *task.Service, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

type taskForm struct {
	Title       string `form:"titulo" json:"titulo"`
	Description string `form:"descricao" json:"descricao"`
	Status      string `form:"status" json:"status"`
}

// Home handles GET /home with an optional ?filter=<status>.
func (h *TaskHandler) Home(c *gin.Context) {
	filter := c.Query("filter")
	tasks, err := h.tasks.FilterTasks(c.Request.Context(), CurrentPrincipal(c), filter)
	if err != nil {
		respondError(c, h.logger, err, RedirectHome)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks":  tasks,
		"filter": filter,
	})
}

// Search handles POST /home.
func (h *TaskHandler) Search(c *gin.Context) {
	var req struct {
		Search string `form:"search" json:"search"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondFlash(c, http.StatusBadRequest, LevelError, task.MsgInvalidFields, RedirectHome)
		return
	}

	tasks, err := h.tasks.SearchTasks(c.Request.Context(), CurrentPrincipal(c), req.Search)
	if err != nil {
		respondError(c, h.logger, err, RedirectHome)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks":  tasks,
		"search": req.Search,
	})
}

// NewTaskForm handles GET /tasks/new.
func (h *TaskHandler) NewTaskForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fields": []string{"titulo", "descricao"},
		"action": "/tasks/new",
	})
}

// CreateTask handles POST /tasks/new.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req taskForm
	if err := c.ShouldBind(&req); err != nil {
		respondFlash(c, http.StatusBadRequest, LevelInfo, task.MsgInvalidFields, RedirectNewTask)
		return
	}

	created, err := h.tasks.CreateTask(c.Request.Context(), CurrentPrincipal(c), req.Title, req.Description)
	if err != nil {
		redirect := RedirectHome
		if apperr.IsValidation(err) {
			redirect = RedirectNewTask
		}
		respondError(c, h.logger, err, redirect)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"task":  created,
		"flash": Flash{Level: LevelSuccess, Message: task.MsgCreated, Redirect: RedirectHome},
	})
}

// ViewTask handles GET /tasks/:id.
func (h *TaskHandler) ViewTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := h.tasks.GetTask(c.Request.Context(), CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err, RedirectHome)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

// EditTaskForm handles GET /tasks/:id/edit and returns the current values.
func (h *TaskHandler) EditTaskForm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := h.tasks.GetTask(c.Request.Context(), CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err, RedirectHome)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task": t,
		"form": taskForm{Title: t.Title, Description: t.Description, Status: string(t.Status)},
	})
}

// EditTask handles POST /tasks/:id/edit.
func (h *TaskHandler) EditTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	editPath := fmt.Sprintf("/tasks/%d/edit/", id)

	var req taskForm
	if err := c.ShouldBind(&req); err != nil {
		respondFlash(c, http.StatusBadRequest, LevelError, task.MsgInvalidFields, editPath)
		return
	}

	updated, err := h.tasks.UpdateTask(c.Request.Context(), CurrentPrincipal(c), id, task.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.Status(req.Status),
	})
	if err != nil {
		redirect := RedirectHome
		if apperr.IsValidation(err) {
			redirect = editPath
		}
		respondError(c, h.logger, err, redirect)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task":  updated,
		"flash": Flash{Level: LevelInfo, Message: task.MsgUpdated, Redirect: RedirectHome},
	})
}

// ToggleTask handles POST /tasks/:id/toggle. No login is required.
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.tasks.ToggleStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, RedirectHome)
		return
	}

	level := LevelWarning
	if res.Completed {
		level = LevelInfo
	}
	c.JSON(http.StatusOK, gin.H{
		"task":   res.Task,
		"status": res.Status,
		"flash":  Flash{Level: level, Message: res.Message, Redirect: RedirectHome},
	})
}

// DeleteTask handles POST /tasks/:id/delete.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.tasks.DeleteTask(c.Request.Context(), CurrentPrincipal(c), id); err != nil {
		respondError(c, h.logger, err, RedirectHome)
		return
	}
	respondFlash(c, http.StatusOK, LevelSuccess, task.MsgDeleted, RedirectHome)
}

// AllTasks handles GET /admin/tasks.
func (h *TaskHandler) AllTasks(c *gin.Context) {
	tasks, err := h.tasks.AllTasks(c.Request.Context(), CurrentPrincipal(c))
	if err != nil {
		respondError(c, h.logger, err, RedirectHome)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}
