package handler

import (
	"github.com/GooseOb/pai2024/internal/service"

	"github.com/gin-gonic/gin"
)

// PersonHandler serves /api/person.
type PersonHandler struct {
	Persons *service.PersonService
}

func NewPersonHandler(persons *service.PersonService) *PersonHandler {
	return &PersonHandler{Persons: persons}
}

func (h *PersonHandler) List(c *gin.Context) {
	out, err := h.Persons.List(c.Request.Context(), c.Query("_id"))
	respond(c, out, err)
}

func (h *PersonHandler) Create(c *gin.Context) { handleCreate(c, h.Persons.Create) }
func (h *PersonHandler) Update(c *gin.Context) { handleUpdate(c, h.Persons.Update) }
func (h *PersonHandler) Delete(c *gin.Context) { handleDelete(c, h.Persons.Delete) }
