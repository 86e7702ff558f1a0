package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/remotedev/rdv/internal/models"
)

// GenerateUserID generates a user ID using pattern: user_<unix_nano>_<random_hex>.
func GenerateUserID() string {
	return generatePrefixedID("user")
}

// CreateUser inserts a new user and returns the created record.
func CreateUser(db *sql.DB, name, email string) (*models.User, error) {
	var user *models.User
	err := Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		id := GenerateUserID()
		if _, err := tx.Exec(`
			INSERT INTO users (id, name, email, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, name, email, now, now); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		u, err := GetUserTx(tx, id)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func GetUser(db *sql.DB, id string) (*models.User, error) {
	var u models.User
	err := RetryWithBackoff(context.Background(), func() error {
		return scanUser(db.QueryRow(`
			SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?
		`, id), &u)
	})
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// GetUserTx retrieves a user by ID inside an existing transaction.
func GetUserTx(q Querier, id string) (*models.User, error) {
	var u models.User
	err := scanUser(q.QueryRow(`
		SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?
	`, id), &u)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func scanUser(row *sql.Row, u *models.User) error {
	return row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
}

// GetOrCreateLocalUser returns the single local identity this daemon
// serves, creating it on first run. The platform has no login flow — one
// home directory is one user — so every server handler resolves "the"
// user through this rather than trusting a client-supplied id, mirroring
// the original's get_default_user() used throughout its CLI and MCP
// surface.
func GetOrCreateLocalUser(db *sql.DB) (*models.User, error) {
	var u models.User
	err := RetryWithBackoff(context.Background(), func() error {
		return scanUser(db.QueryRow(`
			SELECT id, name, email, created_at, updated_at FROM users ORDER BY created_at ASC LIMIT 1
		`), &u)
	})
	if err == nil {
		return &u, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("query local user: %w", err)
	}
	return CreateUser(db, "local", "")
}

// DeleteUser deletes a user and, via ON DELETE CASCADE, every folder, session,
// orchestrator, memory entry, insight, note, and CLI token owned by them.
func DeleteUser(db *sql.DB, id string) error {
	return Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return &NotFoundError{Entity: "user", ID: id}
		}
		return nil
	})
}
