package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/remotedev/rdv/internal/models"
)

// GenerateNoteID generates a note ID using pattern: note_<unix_nano>_<random_hex>.
func GenerateNoteID() string {
	return generatePrefixedID("note")
}

// CreateNote inserts a freeform note scoped to a session. Notes are a
// supplemented feature: a lightweight log a user or orchestrator can append
// to without going through the memory tiers.
func CreateNote(db *sql.DB, userID, sessionID, content string) (*models.Note, error) {
	if content == "" {
		return nil, &InvalidArgumentError{Field: "content", Reason: "must not be empty"}
	}
	if sessionID == "" {
		return nil, &InvalidArgumentError{Field: "session_id", Reason: "must not be empty"}
	}
	var note *models.Note
	err := Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		id := GenerateNoteID()
		if _, err := tx.Exec(`
			INSERT INTO notes (id, user_id, session_id, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, userID, sessionID, content, now); err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
		n, err := GetNoteTx(tx, id)
		if err != nil {
			return err
		}
		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

const noteSelect = `SELECT id, user_id, COALESCE(session_id, ''), content, created_at FROM notes`

// GetNote retrieves a note by ID.
func GetNote(db *sql.DB, id string) (*models.Note, error) {
	var n models.Note
	err := RetryWithBackoff(context.Background(), func() error {
		return db.QueryRow(noteSelect+` WHERE id = ?`, id).Scan(&n.ID, &n.UserID, &n.SessionID, &n.Content, &n.CreatedAt)
	})
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "note", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query note: %w", err)
	}
	return &n, nil
}

// GetNoteTx retrieves a note by ID inside a transaction.
func GetNoteTx(q Querier, id string) (*models.Note, error) {
	var n models.Note
	err := q.QueryRow(noteSelect+` WHERE id = ?`, id).Scan(&n.ID, &n.UserID, &n.SessionID, &n.Content, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "note", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query note: %w", err)
	}
	return &n, nil
}

// ListNotesBySession returns notes for a session, newest first.
func ListNotesBySession(db *sql.DB, sessionID string) ([]*models.Note, error) {
	var out []*models.Note
	err := RetryWithBackoff(context.Background(), func() error {
		rows, err := db.Query(noteSelect+` WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
		if err != nil {
			return fmt.Errorf("query notes: %w", err)
		}
		defer func() { _ = rows.Close() }()
		out = make([]*models.Note, 0)
		for rows.Next() {
			var n models.Note
			if err := rows.Scan(&n.ID, &n.UserID, &n.SessionID, &n.Content, &n.CreatedAt); err != nil {
				return fmt.Errorf("scan note row: %w", err)
			}
			out = append(out, &n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteNote deletes a note by ID.
func DeleteNote(db *sql.DB, id string) error {
	return Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete note: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "note", ID: id}
		}
		return nil
	})
}
