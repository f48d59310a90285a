package models

import "time"

// Session binds a login to a person until it expires or is destroyed.
// Only the person id is authoritative; Role is cached for listing.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64" bson:"_id" json:"id"`
	PersonID  string    `gorm:"size:36;index;not null" bson:"person_id" json:"person_id"`
	Role      Role      `bson:"role" json:"role"`
	IP        string    `gorm:"size:64" bson:"ip" json:"ip"`
	UserAgent string    `gorm:"size:255" bson:"user_agent" json:"user_agent"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null" bson:"expires_at" json:"expires_at"`
}

func (Session) TableName() string { return "sessions" }

func (s Session) EntityID() string { return s.ID }

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
