package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/GooseOb/pai2024/internal/service"
	"github.com/GooseOb/pai2024/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(k service.Kind) int {
	switch k {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError is the single place errors become responses. Causes of
// persistence errors are logged, never sent.
func writeError(c *gin.Context, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		util.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if se.Kind == service.KindPersistence {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, se)
	}
	util.Error(c, statusOf(se.Kind), se.Message, se.Details)
}

func respond[T any](c *gin.Context, v T, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	util.JSON(c, http.StatusOK, v)
}

// bindBody decodes the JSON body into dst. The body is cached so it can be
// bound more than once.
func bindBody(c *gin.Context, dst any) error {
	if err := c.ShouldBindBodyWith(dst, binding.JSON); err != nil {
		if errors.Is(err, io.EOF) {
			return service.Validation("no data")
		}
		return &service.Error{Kind: service.KindValidation, Message: "malformed request body", Details: err.Error(), Err: err}
	}
	return nil
}

type idBody struct {
	ID string `json:"_id"`
}

func handleCreate[P, T any](c *gin.Context, create func(context.Context, P) (*T, error)) {
	var in P
	if err := bindBody(c, &in); err != nil {
		writeError(c, err)
		return
	}
	v, err := create(c.Request.Context(), in)
	respond(c, v, err)
}

// handleUpdate takes the target id from the body's _id and the changes from
// the rest of the body.
func handleUpdate[P, T any](c *gin.Context, update func(context.Context, string, P) (*T, error)) {
	var target idBody
	if err := bindBody(c, &target); err != nil {
		writeError(c, err)
		return
	}
	if target.ID == "" {
		writeError(c, service.Validation("no _id to update"))
		return
	}
	var in P
	if err := bindBody(c, &in); err != nil {
		writeError(c, err)
		return
	}
	v, err := update(c.Request.Context(), target.ID, in)
	respond(c, v, err)
}

// handleDelete takes the target id from the _id query parameter.
func handleDelete[T any](c *gin.Context, del func(context.Context, string) (*T, error)) {
	id := c.Query("_id")
	if id == "" {
		writeError(c, service.Validation("no _id to delete"))
		return
	}
	v, err := del(c.Request.Context(), id)
	respond(c, v, err)
}
