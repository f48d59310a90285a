package handler

import (
	"github.com/GooseOb/pai2024/internal/service"

	"github.com/gin-gonic/gin"
)

// TaskHandler serves /api/task. Listing requires ?project_id=.
type TaskHandler struct {
	Tasks *service.TaskService
}

func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{Tasks: tasks}
}

func (h *TaskHandler) List(c *gin.Context) {
	out, err := h.Tasks.List(c.Request.Context(), c.Query("project_id"), c.Query("_id"))
	respond(c, out, err)
}

func (h *TaskHandler) Create(c *gin.Context) { handleCreate(c, h.Tasks.Create) }
func (h *TaskHandler) Update(c *gin.Context) { handleUpdate(c, h.Tasks.Update) }
func (h *TaskHandler) Delete(c *gin.Context) { handleDelete(c, h.Tasks.Delete) }
