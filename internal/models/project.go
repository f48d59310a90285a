package models

import "strings"

// Project groups tasks.
type Project struct {
	ID          string `gorm:"primaryKey;size:36" bson:"_id" json:"_id"`
	Name        string `gorm:"size:255;not null" bson:"name" json:"name"`
	Description string `gorm:"type:text" bson:"description" json:"description"`
}

func (Project) TableName() string { return "projects" }

func (p Project) EntityID() string { return p.ID }

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &FieldError{Field: "name", Message: "is required"}
	}
	return nil
}
