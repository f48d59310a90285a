package handler

import (
	"github.com/GooseOb/pai2024/internal/service"

	"github.com/gin-gonic/gin"
)

// ProjectHandler serves /api/project.
type ProjectHandler struct {
	Projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{Projects: projects}
}

func (h *ProjectHandler) List(c *gin.Context) {
	out, err := h.Projects.List(c.Request.Context(), c.Query("_id"))
	respond(c, out, err)
}

func (h *ProjectHandler) Create(c *gin.Context) { handleCreate(c, h.Projects.Create) }
func (h *ProjectHandler) Update(c *gin.Context) { handleUpdate(c, h.Projects.Update) }
func (h *ProjectHandler) Delete(c *gin.Context) { handleDelete(c, h.Projects.Delete) }
