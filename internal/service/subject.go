package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
	"github.com/sakif/ud-notes/internal/repository"
)

const (
	MaxSubjectNameLength        = 100
	MaxSubjectDescriptionLength = 500
)

// SubjectService owns the subject rules: a subject is visible only to its
// owner, and the owner is always the authenticated caller.
type SubjectService struct {
	repo   repository.SubjectRepository
	logger *slog.Logger
}

func NewSubjectService(repo repository.SubjectRepository, logger *slog.Logger) *SubjectService {
	return &SubjectService{repo: repo, logger: logger}
}

// SubjectInput is a create request as received from the client.
type SubjectInput struct {
	Name        string
	Description string
	// OwnerID is what the client claims; it must be empty or the viewer.
	OwnerID string
}

// List returns the viewer's subjects ordered by name.
func (s *SubjectService) List(ctx context.Context, viewerID string) ([]model.Subject, error) {
	subjects, err := s.repo.ListSubjects(ctx, viewerID)
	if err != nil {
		s.logger.Error("failed to list subjects", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing subjects: %w", err)
	}
	return subjects, nil
}

// Create validates and stores a subject owned by viewerID.
func (s *SubjectService) Create(ctx context.Context, viewerID string, in SubjectInput) (*model.Subject, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "subject name is required")
	}
	if utf8.RuneCountInString(name) > MaxSubjectNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("subject name must be %d characters or less", MaxSubjectNameLength))
	}
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > MaxSubjectDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxSubjectDescriptionLength))
	}
	if in.OwnerID != "" && in.OwnerID != viewerID {
		return nil, apperror.Forbidden("subjects can only be created for the signed-in user")
	}

	subject := &model.Subject{
		Name:        name,
		Description: description,
		OwnerID:     viewerID,
	}
	if err := s.repo.CreateSubject(ctx, subject); err != nil {
		s.logger.Error("failed to create subject",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating subject: %w", err)
	}

	s.logger.Info("subject created",
		slog.String("id", subject.ID.String()),
		slog.String("name", subject.Name),
	)
	return subject, nil
}
