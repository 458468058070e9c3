package model

import (
	"time"

	"github.com/google/uuid"
)

// Note is a user-owned, optionally subject-tagged, optionally public text record.
//
// SubjectID is the stored foreign key. Subject is filled in only when a note
// is read back: it holds the subject's display name resolved through an
// outer join, and stays nil when the subject is absent or was deleted.
type Note struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	IsPublic  bool            `json:"isPublic"`
	CreatedAt time.Time       `json:"createdAt"`
	OwnerID   string          `json:"ownerId"`
	SubjectID *uuid.UUID      `json:"subjectId,omitempty"`
	Subject   *SubjectSummary `json:"subject"`
}
