package service

import (
	"context"
	"errors"
	"strings"

	"github.com/GooseOb/pai2024/internal/models"
	"github.com/GooseOb/pai2024/internal/store"
	"github.com/GooseOb/pai2024/internal/util"

	"github.com/google/uuid"
)

// PersonPatch holds the fields of a person payload; nil means absent.
type PersonPatch struct {
	Login    *string      `json:"login"`
	Password *string      `json:"password"`
	Name     *string      `json:"name"`
	Surname  *string      `json:"surname"`
	Role     *models.Role `json:"role"`
}

type PersonService struct {
	repo       store.Repository[models.Person]
	bcryptCost int
}

func NewPersonService(repo store.Repository[models.Person], bcryptCost int) *PersonService {
	return &PersonService{repo: repo, bcryptCost: bcryptCost}
}

// List returns the persons matching id when it is set, otherwise all.
func (s *PersonService) List(ctx context.Context, id string) ([]models.Person, error) {
	f := store.Filter{}
	if id != "" {
		f[store.FieldID] = id
	}
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, persistence("failed to read persons", err, "person", id)
	}
	return out, nil
}

func (s *PersonService) Create(ctx context.Context, in PersonPatch) (*models.Person, error) {
	p := &models.Person{ID: uuid.NewString(), Role: models.RoleUser}
	if in.Password == nil || *in.Password == "" {
		return nil, Validation("password is required")
	}
	applyPerson(p, in)
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.checkLoginFree(ctx, p.Login, ""); err != nil {
		return nil, err
	}
	hash, err := util.HashPassword(p.Password, s.bcryptCost)
	if err != nil {
		return nil, invalid(err)
	}
	p.Password = hash
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, Validation("login is already taken")
		}
		return nil, persistence("failed to add person", err, "person", p.ID)
	}
	return p, nil
}

// Update merges the fields present in in into person id. A new password is
// hashed; an absent one keeps the stored hash.
func (s *PersonService) Update(ctx context.Context, id string, in PersonPatch) (*models.Person, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, persistence("failed to read person", err, "person", id)
	}
	if in.Password != nil && *in.Password == "" {
		return nil, Validation("password must not be empty")
	}
	applyPerson(p, in)
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}
	if in.Login != nil {
		if err := s.checkLoginFree(ctx, p.Login, p.ID); err != nil {
			return nil, err
		}
	}
	if in.Password != nil {
		hash, err := util.HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return nil, invalid(err)
		}
		p.Password = hash
	}
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, Validation("login is already taken")
		}
		return nil, persistence("failed to update person", err, "person", id)
	}
	return p, nil
}

func (s *PersonService) Delete(ctx context.Context, id string) (*models.Person, error) {
	p, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, persistence("failed to delete person", err, "person", id)
	}
	return p, nil
}

// FindByLogin returns the person with login, or a NotFound error.
func (s *PersonService) FindByLogin(ctx context.Context, login string) (*models.Person, error) {
	found, err := s.repo.List(ctx, store.Filter{"login": login})
	if err != nil {
		return nil, persistence("failed to read persons", err, "person", login)
	}
	if len(found) == 0 {
		return nil, notFound("person", login)
	}
	return &found[0], nil
}

// Get returns person id.
func (s *PersonService) Get(ctx context.Context, id string) (*models.Person, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, persistence("failed to read person", err, "person", id)
	}
	return p, nil
}

// EnsureAdmin creates an admin with login and password when no person exists.
// It reports whether one was created.
func (s *PersonService) EnsureAdmin(ctx context.Context, login, password string) (bool, error) {
	n, err := s.repo.Count(ctx, nil)
	if err != nil {
		return false, persistence("failed to count persons", err, "person", "")
	}
	if n > 0 || password == "" {
		return false, nil
	}
	role := models.RoleAdmin
	_, err = s.Create(ctx, PersonPatch{Login: &login, Password: &password, Role: &role})
	return err == nil, err
}

func (s *PersonService) checkLoginFree(ctx context.Context, login, selfID string) error {
	found, err := s.repo.List(ctx, store.Filter{"login": login})
	if err != nil {
		return persistence("failed to read persons", err, "person", login)
	}
	for _, other := range found {
		if other.ID != selfID {
			return Validation("login is already taken")
		}
	}
	return nil
}

func applyPerson(p *models.Person, in PersonPatch) {
	if in.Login != nil {
		p.Login = strings.TrimSpace(*in.Login)
	}
	if in.Password != nil {
		p.Password = *in.Password
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Surname != nil {
		p.Surname = *in.Surname
	}
	if in.Role != nil {
		p.Role = *in.Role
	}
}
