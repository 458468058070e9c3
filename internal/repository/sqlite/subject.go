package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
	"github.com/sakif/ud-notes/internal/repository"
)

var _ repository.SubjectRepository = (*DB)(nil)

// CreateSubject inserts a subject, generating its UUID and creation time.
func (db *DB) CreateSubject(ctx context.Context, subject *model.Subject) error {
	subject.ID = uuid.New()
	subject.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO subjects (id, name, description, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		subject.ID,
		subject.Name,
		subject.Description,
		subject.OwnerID,
		subject.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating subject %q: %w", subject.Name, err)
	}
	return nil
}

// GetSubject returns apperror.ErrNotFound if the subject does not exist.
func (db *DB) GetSubject(ctx context.Context, id uuid.UUID) (*model.Subject, error) {
	var s model.Subject
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, description, user_id, created_at
		 FROM subjects WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Name, &s.Description, &s.OwnerID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("subject", id.String())
		}
		return nil, fmt.Errorf("sqlite: getting subject %s: %w", id, err)
	}
	return &s, nil
}

// ListSubjects orders by name with SQLite's default BINARY collation, which
// is case-sensitive ("Zoology" sorts before "art").
func (db *DB) ListSubjects(ctx context.Context, ownerID string) ([]model.Subject, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, description, user_id, created_at
		 FROM subjects
		 WHERE user_id = ?
		 ORDER BY name ASC, created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing subjects: %w", err)
	}
	defer rows.Close()

	subjects := []model.Subject{}
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.OwnerID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning subject row: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating subjects: %w", err)
	}

	return subjects, nil
}
