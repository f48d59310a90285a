// Package store is the persistence layer. Entities live in one collection
// (table) each and are keyed by a string id.
package store

import (
	"context"
	"errors"

	"github.com/GooseOb/pai2024/internal/models"
)

var (
	ErrNotFound = errors.New("store: record not found")
	ErrConflict = errors.New("store: duplicate key")
)

// FieldID is the logical name of the primary key in a Filter. Backends map it
// to their own column or field name.
const FieldID = "id"

// Filter is a conjunction of field = value conditions. Keys are the bson
// field names of the entity; FieldID selects the primary key.
type Filter map[string]any

// Entity is anything stored by id.
type Entity interface {
	models.Person | models.Project | models.Task | models.Session
	EntityID() string
}

// Repository is the set of operations available on one collection.
// Implementations are safe for concurrent use.
type Repository[T Entity] interface {
	List(ctx context.Context, f Filter) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Create(ctx context.Context, v *T) error
	// Update replaces the stored record with v. ErrNotFound if v's id is unknown.
	Update(ctx context.Context, v *T) error
	// Delete removes the record and returns what was stored.
	Delete(ctx context.Context, id string) (*T, error)
	DeleteMany(ctx context.Context, f Filter) (int64, error)
}

// Store groups the repositories of one backend.
type Store interface {
	Persons() Repository[models.Person]
	Projects() Repository[models.Project]
	Tasks() Repository[models.Task]
	Sessions() Repository[models.Session]
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
