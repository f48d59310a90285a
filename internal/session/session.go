// Package session keeps server-side login sessions. The client only holds a
// signed cookie naming the session id.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GooseOb/pai2024/internal/models"
	"github.com/GooseOb/pai2024/internal/util"

	"github.com/google/uuid"
)

// ErrNoSession is returned when a token names no live session.
var ErrNoSession = errors.New("session: no live session")

// Store persists sessions. Get and List never return expired sessions.
type Store interface {
	Save(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Session, error)
	Close() error
}

// Meta is the request information recorded on a new session.
type Meta struct {
	IP        string
	UserAgent string
}

// Manager issues and resolves signed session tokens.
type Manager struct {
	store  Store
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, secret: secret, ttl: ttl, now: time.Now}
}

// TTL is the lifetime of new sessions.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create stores a new session for p and returns it with its cookie token.
func (m *Manager) Create(ctx context.Context, p *models.Person, meta Meta) (*models.Session, string, error) {
	now := m.now().UTC()
	s := &models.Session{
		ID:        uuid.NewString(),
		PersonID:  p.ID,
		Role:      p.Role,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, "", fmt.Errorf("save session: %w", err)
	}
	token, err := util.GenerateSessionToken(m.secret, s.ID, m.ttl)
	if err != nil {
		_ = m.store.Delete(ctx, s.ID)
		return nil, "", fmt.Errorf("sign session: %w", err)
	}
	return s, token, nil
}

// Resolve returns the live session named by token, or ErrNoSession.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	sid, err := util.ParseSessionToken(m.secret, token)
	if err != nil {
		return nil, ErrNoSession
	}
	s, err := m.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		_ = m.store.Delete(ctx, s.ID)
		return nil, ErrNoSession
	}
	return s, nil
}

// Destroy removes the session named by token. Unknown or invalid tokens are
// not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sid, err := util.ParseSessionToken(m.secret, token)
	if err != nil {
		return nil
	}
	return m.DestroyID(ctx, sid)
}

// DestroyID removes session id.
func (m *Manager) DestroyID(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	return nil
}

// List returns every live session.
func (m *Manager) List(ctx context.Context) ([]models.Session, error) {
	return m.store.List(ctx)
}
