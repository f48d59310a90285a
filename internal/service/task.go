package service

import (
	"context"
	"strings"

	"github.com/GooseOb/pai2024/internal/models"
	"github.com/GooseOb/pai2024/internal/notify"
	"github.com/GooseOb/pai2024/internal/store"
	"github.com/GooseOb/pai2024/internal/util"

	"github.com/google/uuid"
)

// TaskPatch holds the fields of a task payload. Dates are strings so that
// several layouts can be accepted. An empty EndDate clears it.
type TaskPatch struct {
	Name        *string   `json:"name"`
	StartDate   *string   `json:"startDate"`
	EndDate     *string   `json:"endDate"`
	AssigneeIDs *[]string `json:"assignee_ids"`
	ProjectID   *string   `json:"project_id"`
}

// TaskService publishes a task event, keyed by project id, after every
// successful mutation.
type TaskService struct {
	repo     store.Repository[models.Task]
	projects *ProjectService
	pub      notify.Publisher
}

func NewTaskService(repo store.Repository[models.Task], projects *ProjectService, pub notify.Publisher) *TaskService {
	if pub == nil {
		pub = notify.Nop{}
	}
	return &TaskService{repo: repo, projects: projects, pub: pub}
}

// List returns the tasks of projectID, optionally narrowed to one id.
// projectID is required and checked before the store is touched.
func (s *TaskService) List(ctx context.Context, projectID, id string) ([]models.Task, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, Validation("project_id query parameter is required")
	}
	f := store.Filter{"project_id": projectID}
	if id != "" {
		f[store.FieldID] = id
	}
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, persistence("failed to read tasks", err, "task", id)
	}
	return out, nil
}

func (s *TaskService) Create(ctx context.Context, in TaskPatch) (*models.Task, error) {
	t := &models.Task{ID: uuid.NewString(), AssigneeIDs: []string{}}
	if err := applyTask(t, in); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, t); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, persistence("failed to add task", err, "task", t.ID)
	}
	s.pub.Publish(notify.Update(notify.EntityTask, t.ProjectID))
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, id string, in TaskPatch) (*models.Task, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, persistence("failed to read task", err, "task", id)
	}
	oldProject := t.ProjectID
	if err := applyTask(t, in); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, t); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, persistence("failed to update task", err, "task", id)
	}
	s.pub.Publish(notify.Update(notify.EntityTask, t.ProjectID))
	if oldProject != t.ProjectID {
		s.pub.Publish(notify.Update(notify.EntityTask, oldProject))
	}
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, persistence("failed to delete task", err, "task", id)
	}
	s.pub.Publish(notify.Update(notify.EntityTask, t.ProjectID))
	return t, nil
}

func (s *TaskService) validate(ctx context.Context, t *models.Task) error {
	if err := t.Validate(); err != nil {
		return invalid(err)
	}
	ok, err := s.projects.Exists(ctx, t.ProjectID)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Kind: KindValidation, Message: "project_id does not refer to an existing project", Details: "project_id"}
	}
	return nil
}

func applyTask(t *models.Task, in TaskPatch) error {
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.StartDate != nil {
		d, err := util.ParseDate(*in.StartDate)
		if err != nil {
			return &Error{Kind: KindValidation, Message: "startDate: " + err.Error(), Details: "startDate"}
		}
		t.StartDate = d
	}
	if in.EndDate != nil {
		if strings.TrimSpace(*in.EndDate) == "" {
			t.EndDate = nil
		} else {
			d, err := util.ParseDate(*in.EndDate)
			if err != nil {
				return &Error{Kind: KindValidation, Message: "endDate: " + err.Error(), Details: "endDate"}
			}
			t.EndDate = &d
		}
	}
	if in.AssigneeIDs != nil {
		ids := make([]string, len(*in.AssigneeIDs))
		copy(ids, *in.AssigneeIDs)
		t.AssigneeIDs = ids
	}
	if in.ProjectID != nil {
		t.ProjectID = strings.TrimSpace(*in.ProjectID)
	}
	if t.AssigneeIDs == nil {
		t.AssigneeIDs = []string{}
	}
	return nil
}
