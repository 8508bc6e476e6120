package models

import (
	"strings"
	"time"
)

type EmergencyContact struct {
	ID           string     `json:"id" gorm:"primarykey"`
	UserID       string     `json:"user_id" gorm:"index;not null"`
	Name         string     `json:"name" gorm:"not null"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	Relationship string     `json:"relationship"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime:false"`
}

// ContactInput is the user supplied part of an emergency contact
type ContactInput struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Relationship string `json:"relationship"`
}

// ContactUpdate holds the fields of a partial contact update, nil fields are left untouched
type ContactUpdate struct {
	Name         *string `json:"name,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
}

var contactUpdatableFields = []string{"name", "phone", "email", "relationship", "updated_at"}

func (in ContactInput) Trimmed() ContactInput {
	return ContactInput{
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Email:        strings.TrimSpace(in.Email),
		Relationship: strings.TrimSpace(in.Relationship),
	}
}

// ApplyTo merges the update into contact, trimming every supplied value
func (u ContactUpdate) ApplyTo(contact *EmergencyContact) {
	if u.Name != nil {
		contact.Name = strings.TrimSpace(*u.Name)
	}
	if u.Phone != nil {
		contact.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.Email != nil {
		contact.Email = strings.TrimSpace(*u.Email)
	}
	if u.Relationship != nil {
		contact.Relationship = strings.TrimSpace(*u.Relationship)
	}
}

func (u ContactUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil && u.Email == nil && u.Relationship == nil
}

// ContactUpdatableFields lists the columns an explicit contact update may write
func ContactUpdatableFields() []string {
	return contactUpdatableFields
}

// ContactStats summarises a user's contact list
type ContactStats struct {
	Total          int            `json:"total"`
	WithPhone      int            `json:"with_phone"`
	WithEmail      int            `json:"with_email"`
	RecentlyAdded  int            `json:"recently_added"`
	ByRelationship map[string]int `json:"by_relationship"`
}
