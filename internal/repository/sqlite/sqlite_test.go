package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/ud-notes/internal/model"
)

// newTestDB opens a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "hash"}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createTestSubject(t *testing.T, db *DB, owner *model.User, name string) *model.Subject {
	t.Helper()
	s := &model.Subject{Name: name, OwnerID: owner.ID}
	if err := db.CreateSubject(context.Background(), s); err != nil {
		t.Fatalf("failed to create test subject: %v", err)
	}
	return s
}

func createTestNote(t *testing.T, db *DB, owner *model.User, title string, public bool, subject *model.Subject) *model.Note {
	t.Helper()
	n := &model.Note{Title: title, Content: "content of " + title, IsPublic: public, OwnerID: owner.ID}
	if subject != nil {
		n.SubjectID = &subject.ID
	}
	if err := db.CreateNote(context.Background(), n); err != nil {
		t.Fatalf("failed to create test note: %v", err)
	}
	return n
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
