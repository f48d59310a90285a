package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GooseOb/pai2024/internal/models"

	"gorm.io/gorm"
)

type gormStore struct {
	db       *gorm.DB
	persons  *gormRepo[models.Person]
	projects *gormRepo[models.Project]
	tasks    *gormRepo[models.Task]
	sessions *gormRepo[models.Session]
}

// NewGorm returns a Store backed by a migrated gorm database.
func NewGorm(db *gorm.DB) Store {
	return &gormStore{
		db:       db,
		persons:  &gormRepo[models.Person]{db: db},
		projects: &gormRepo[models.Project]{db: db},
		tasks:    &gormRepo[models.Task]{db: db},
		sessions: &gormRepo[models.Session]{db: db},
	}
}

func (s *gormStore) Persons() Repository[models.Person]   { return s.persons }
func (s *gormStore) Projects() Repository[models.Project] { return s.projects }
func (s *gormStore) Tasks() Repository[models.Task]       { return s.tasks }
func (s *gormStore) Sessions() Repository[models.Session] { return s.sessions }

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *gormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormRepo[T Entity] struct {
	db *gorm.DB
}

func gormErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func gormWhere(f Filter) map[string]any {
	w := make(map[string]any, len(f))
	for k, v := range f {
		w[k] = v
	}
	return w
}

func (r *gormRepo[T]) List(ctx context.Context, f Filter) ([]T, error) {
	out := make([]T, 0)
	q := r.db.WithContext(ctx).Model(new(T))
	if len(f) > 0 {
		q = q.Where(gormWhere(f))
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, gormErr(err)
	}
	return out, nil
}

func (r *gormRepo[T]) Get(ctx context.Context, id string) (*T, error) {
	var v T
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, gormErr(err)
	}
	return &v, nil
}

func (r *gormRepo[T]) Count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(new(T))
	if len(f) > 0 {
		q = q.Where(gormWhere(f))
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, gormErr(err)
	}
	return n, nil
}

func (r *gormRepo[T]) Create(ctx context.Context, v *T) error {
	return gormErr(r.db.WithContext(ctx).Create(v).Error)
}

func (r *gormRepo[T]) Update(ctx context.Context, v *T) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(new(T)).Where("id = ?", (*v).EntityID()).Count(&n).Error; err != nil {
			return gormErr(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return gormErr(tx.Save(v).Error)
	})
}

func (r *gormRepo[T]) Delete(ctx context.Context, id string) (*T, error) {
	var v T
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&v).Error; err != nil {
			return gormErr(err)
		}
		return gormErr(tx.Where("id = ?", id).Delete(new(T)).Error)
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *gormRepo[T]) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	if len(f) == 0 {
		return 0, errors.New("store: DeleteMany requires a filter")
	}
	res := r.db.WithContext(ctx).Where(gormWhere(f)).Delete(new(T))
	if res.Error != nil {
		return 0, gormErr(res.Error)
	}
	return res.RowsAffected, nil
}
