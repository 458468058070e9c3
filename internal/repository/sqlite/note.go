package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
	"github.com/sakif/ud-notes/internal/repository"
)

var _ repository.NoteRepository = (*DB)(nil)

// CreateNote inserts a note, generating its UUID and creation time.
// The note's Subject summary is not stored; it is resolved on read.
func (db *DB) CreateNote(ctx context.Context, note *model.Note) error {
	note.ID = uuid.New()
	note.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notes (id, title, content, is_public, user_id, subject_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.Title,
		note.Content,
		note.IsPublic,
		note.OwnerID,
		note.SubjectID,
		note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating note %q: %w", note.Title, err)
	}
	return nil
}

// ListNotes returns notes newest first. rowid breaks ties between notes
// created within the same clock tick, so insertion order is preserved.
//
// The LEFT JOIN keeps notes whose subject is missing; their Subject is nil.
func (db *DB) ListNotes(ctx context.Context, filter repository.NoteFilter) ([]model.Note, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT n.id, n.title, n.content, n.is_public, n.user_id, n.subject_id, n.created_at,
		        s.id, s.name
		 FROM notes n
		 LEFT JOIN subjects s ON s.id = n.subject_id
		 WHERE (? IS NULL OR n.subject_id = ?)
		   AND (? = '' OR n.user_id = ? OR n.is_public = 1)
		 ORDER BY n.created_at DESC, n.rowid DESC`,
		filter.SubjectID, filter.SubjectID,
		filter.ViewerID, filter.ViewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes: %w", err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		var (
			n           model.Note
			subjectFK   uuid.NullUUID
			subjectID   uuid.NullUUID
			subjectName sql.NullString
		)
		if err := rows.Scan(
			&n.ID, &n.Title, &n.Content, &n.IsPublic, &n.OwnerID, &subjectFK, &n.CreatedAt,
			&subjectID, &subjectName,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning note row: %w", err)
		}
		if subjectFK.Valid {
			id := subjectFK.UUID
			n.SubjectID = &id
		}
		if subjectID.Valid && subjectName.Valid {
			n.Subject = &model.SubjectSummary{ID: subjectID.UUID, Name: subjectName.String}
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}

	return notes, nil
}

// DeleteNote removes the note only if ownerID owns it. A missing note and a
// note owned by someone else both report apperror.ErrNotFound, so callers
// cannot probe for other users' note IDs.
func (db *DB) DeleteNote(ctx context.Context, id uuid.UUID, ownerID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("note", id.String())
	}
	return nil
}
