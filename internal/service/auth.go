package service

import (
	"context"
	"errors"
	"log"

	"github.com/GooseOb/pai2024/internal/models"
	"github.com/GooseOb/pai2024/internal/session"
	"github.com/GooseOb/pai2024/internal/util"
)

// ErrBadCredentials is returned by CheckCredentials for an unknown login or
// a wrong password alike.
var ErrBadCredentials = &Error{Kind: KindValidation, Message: "invalid login or password"}

// AuthService verifies credentials and maps session tokens to persons.
type AuthService struct {
	persons  *PersonService
	sessions *session.Manager
}

func NewAuthService(persons *PersonService, sessions *session.Manager) *AuthService {
	return &AuthService{persons: persons, sessions: sessions}
}

// Sessions exposes the session manager, for cookie lifetimes.
func (s *AuthService) Sessions() *session.Manager { return s.sessions }

// CheckCredentials returns the person owning login if password matches.
// The returned person has its password hash cleared.
func (s *AuthService) CheckCredentials(ctx context.Context, login, password string) (*models.Person, error) {
	if login == "" || password == "" {
		return nil, ErrBadCredentials
	}
	p, err := s.persons.FindByLogin(ctx, login)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !util.CheckPassword(password, p.Password) {
		return nil, ErrBadCredentials
	}
	p.Password = ""
	return p, nil
}

// Login checks the credentials and opens a session. It returns the public
// profile and the cookie token.
func (s *AuthService) Login(ctx context.Context, login, password string, meta session.Meta) (*models.Person, string, error) {
	p, err := s.CheckCredentials(ctx, login, password)
	if err != nil {
		return nil, "", err
	}
	_, token, err := s.sessions.Create(ctx, Serialize(p), meta)
	if err != nil {
		return nil, "", &Error{Kind: KindPersistence, Message: "failed to create session", Err: err}
	}
	return p, token, nil
}

// Logout destroys the session named by token. Idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return &Error{Kind: KindPersistence, Message: "failed to destroy session", Err: err}
	}
	return nil
}

// WhoAmI resolves token to the person it belongs to, re-read from the store
// so that role changes apply immediately. A nil person with a nil error
// means anonymous. A session whose person was deleted is destroyed.
func (s *AuthService) WhoAmI(ctx context.Context, token string) (*models.Person, error) {
	sess, err := s.sessions.Resolve(ctx, token)
	if errors.Is(err, session.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Kind: KindPersistence, Message: "failed to read session", Err: err}
	}
	p, err := s.Deserialize(ctx, sess)
	if errors.Is(err, ErrNotFound) {
		log.Printf("session %s: person %s no longer exists, destroying", sess.ID, sess.PersonID)
		_ = s.sessions.DestroyID(ctx, sess.ID)
		return nil, nil
	}
	return p, err
}

// ListSessions returns all live sessions as seen by viewer. For a viewer
// who is not an admin, sessions of other persons keep only their id, role
// and timestamps.
func (s *AuthService) ListSessions(ctx context.Context, viewer *models.Person) ([]models.Session, error) {
	out, err := s.sessions.List(ctx)
	if err != nil {
		return nil, &Error{Kind: KindPersistence, Message: "cannot retrieve sessions", Err: err}
	}
	if viewer != nil && viewer.Role == models.RoleAdmin {
		return out, nil
	}
	for i := range out {
		if viewer != nil && out[i].PersonID == viewer.ID {
			continue
		}
		out[i].PersonID = ""
		out[i].IP = ""
		out[i].UserAgent = ""
	}
	return out, nil
}

// Serialize reduces p to what a session keeps: its id and current role.
func Serialize(p *models.Person) *models.Person {
	return &models.Person{ID: p.ID, Role: p.Role}
}

// Deserialize loads the full person a session is bound to.
func (s *AuthService) Deserialize(ctx context.Context, sess *models.Session) (*models.Person, error) {
	p, err := s.persons.Get(ctx, sess.PersonID)
	if err != nil {
		return nil, err
	}
	p.Password = ""
	return p, nil
}

// CheckRole returns nil when p holds one of roles, otherwise Unauthorized for
// a nil person or Forbidden.
func CheckRole(p *models.Person, roles ...models.Role) error {
	if p == nil {
		return &Error{Kind: KindUnauthorized, Message: "not logged in"}
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return &Error{Kind: KindForbidden, Message: "insufficient role"}
}
