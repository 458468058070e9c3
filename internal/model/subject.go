package model

import (
	"time"

	"github.com/google/uuid"
)

// Subject is a user-owned grouping label that notes may optionally belong to.
//
// Subjects are created by explicit user action and never updated or deleted
// through this application. OwnerID always equals the creating user's ID.
type Subject struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	OwnerID     string    `json:"ownerId"`
}

// Summary returns the read-side projection used when a note resolves its subject.
func (s Subject) Summary() *SubjectSummary {
	return &SubjectSummary{ID: s.ID, Name: s.Name}
}

// SubjectSummary is the subject label attached to a note at read time.
type SubjectSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
