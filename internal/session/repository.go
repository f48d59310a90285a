package session

import (
	"context"
	"errors"
	"time"

	"github.com/GooseOb/pai2024/internal/models"
	"github.com/GooseOb/pai2024/internal/store"
)

// RepositoryStore keeps sessions in the application database, next to the
// entities. Expired records are removed lazily when read.
type RepositoryStore struct {
	repo store.Repository[models.Session]
}

func NewRepositoryStore(repo store.Repository[models.Session]) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

func (s *RepositoryStore) Save(ctx context.Context, sess *models.Session) error {
	err := s.repo.Update(ctx, sess)
	if errors.Is(err, store.ErrNotFound) {
		return s.repo.Create(ctx, sess)
	}
	return err
}

func (s *RepositoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if sess.Expired(time.Now()) {
		_, _ = s.repo.Delete(ctx, id)
		return nil, ErrNoSession
	}
	return sess, nil
}

func (s *RepositoryStore) Delete(ctx context.Context, id string) error {
	_, err := s.repo.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (s *RepositoryStore) List(ctx context.Context) ([]models.Session, error) {
	all, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]models.Session, 0, len(all))
	for _, sess := range all {
		if sess.Expired(now) {
			_, _ = s.repo.Delete(ctx, sess.ID)
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

// Close is a no-op; the database is owned by the caller.
func (s *RepositoryStore) Close() error { return nil }
