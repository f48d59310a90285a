package models

import (
	"strings"
	"time"
)

// Task belongs to exactly one project and may be assigned to several persons.
type Task struct {
	ID          string     `gorm:"primaryKey;size:36" bson:"_id" json:"_id"`
	Name        string     `gorm:"size:255;not null" bson:"name" json:"name"`
	StartDate   time.Time  `gorm:"not null" bson:"startDate" json:"startDate"`
	EndDate     *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`
	AssigneeIDs []string   `gorm:"serializer:json" bson:"assignee_ids" json:"assignee_ids"`
	ProjectID   string     `gorm:"size:36;index;not null" bson:"project_id" json:"project_id"`
}

func (Task) TableName() string { return "tasks" }

func (t Task) EntityID() string { return t.ID }

// Validate checks the task and returns the first violation. It does not
// check that ProjectID refers to an existing project.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return &FieldError{Field: "name", Message: "is required"}
	}
	if t.StartDate.IsZero() {
		return &FieldError{Field: "startDate", Message: "is required"}
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return &FieldError{Field: "endDate", Message: "must not be before startDate"}
	}
	if strings.TrimSpace(t.ProjectID) == "" {
		return &FieldError{Field: "project_id", Message: "is required"}
	}
	for _, id := range t.AssigneeIDs {
		if strings.TrimSpace(id) == "" {
			return &FieldError{Field: "assignee_ids", Message: "must not contain empty ids"}
		}
	}
	return nil
}
