package service

import (
	"context"
	"log"
	"strings"

	"github.com/GooseOb/pai2024/internal/models"
	"github.com/GooseOb/pai2024/internal/notify"
	"github.com/GooseOb/pai2024/internal/store"

	"github.com/google/uuid"
)

type ProjectPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ProjectService publishes a project event after every successful mutation.
type ProjectService struct {
	repo  store.Repository[models.Project]
	tasks store.Repository[models.Task]
	pub   notify.Publisher
}

func NewProjectService(repo store.Repository[models.Project], tasks store.Repository[models.Task], pub notify.Publisher) *ProjectService {
	if pub == nil {
		pub = notify.Nop{}
	}
	return &ProjectService{repo: repo, tasks: tasks, pub: pub}
}

func (s *ProjectService) List(ctx context.Context, id string) ([]models.Project, error) {
	f := store.Filter{}
	if id != "" {
		f[store.FieldID] = id
	}
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, persistence("failed to read projects", err, "project", id)
	}
	return out, nil
}

func (s *ProjectService) Create(ctx context.Context, in ProjectPatch) (*models.Project, error) {
	p := &models.Project{ID: uuid.NewString()}
	applyProject(p, in)
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, persistence("failed to add project", err, "project", p.ID)
	}
	s.pub.Publish(notify.Update(notify.EntityProject, p.ID))
	return p, nil
}

func (s *ProjectService) Update(ctx context.Context, id string, in ProjectPatch) (*models.Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, persistence("failed to read project", err, "project", id)
	}
	applyProject(p, in)
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, persistence("failed to update project", err, "project", id)
	}
	s.pub.Publish(notify.Update(notify.EntityProject, p.ID))
	return p, nil
}

// Delete removes the project and then its tasks. A failure to remove the
// tasks is logged; the project is already gone at that point.
func (s *ProjectService) Delete(ctx context.Context, id string) (*models.Project, error) {
	p, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, persistence("failed to delete project", err, "project", id)
	}
	if n, err := s.tasks.DeleteMany(ctx, store.Filter{"project_id": id}); err != nil {
		log.Printf("project %s: delete tasks: %v", id, err)
	} else if n > 0 {
		log.Printf("project %s: deleted %d tasks", id, n)
	}
	s.pub.Publish(notify.Update(notify.EntityProject, p.ID))
	return p, nil
}

// Exists reports whether project id is stored.
func (s *ProjectService) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.repo.Count(ctx, store.Filter{store.FieldID: id})
	if err != nil {
		return false, persistence("failed to read project", err, "project", id)
	}
	return n > 0, nil
}

func applyProject(p *models.Project, in ProjectPatch) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
}
