package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/remotedev/rdv/internal/models"
)

// GenerateFolderID generates a folder ID using pattern: folder_<unix_nano>_<random_hex>.
func GenerateFolderID() string {
	return generatePrefixedID("folder")
}

// CreateFolderParams carries the optional display metadata supplemented from
// the original folder model (color, icon, collapsed, sort_order).
type CreateFolderParams struct {
	UserID    string
	ParentID  string
	Name      string
	Path      string
	Color     string
	Icon      string
	SortOrder int
}

// CreateFolder inserts a new folder and returns the created record.
func CreateFolder(db *sql.DB, p CreateFolderParams) (*models.Folder, error) {
	if p.Name == "" {
		return nil, &InvalidArgumentError{Field: "name", Reason: "must not be empty"}
	}
	var folder *models.Folder
	err := Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		id := GenerateFolderID()
		var parentID any
		if p.ParentID != "" {
			parentID = p.ParentID
		}
		if _, err := tx.Exec(`
			INSERT INTO folders (id, user_id, parent_id, name, path, color, icon, collapsed, sort_order, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		`, id, p.UserID, parentID, p.Name, p.Path, p.Color, p.Icon, p.SortOrder, now, now); err != nil {
			return fmt.Errorf("insert folder: %w", err)
		}
		f, err := GetFolderTx(tx, id)
		if err != nil {
			return err
		}
		folder = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// GetFolder retrieves a folder by ID.
func GetFolder(db *sql.DB, id string) (*models.Folder, error) {
	var f models.Folder
	err := RetryWithBackoff(context.Background(), func() error {
		return scanFolder(db.QueryRow(folderSelect+` WHERE id = ?`, id), &f)
	})
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "folder", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query folder: %w", err)
	}
	return &f, nil
}

// GetFolderTx retrieves a folder by ID inside an existing transaction.
func GetFolderTx(q Querier, id string) (*models.Folder, error) {
	var f models.Folder
	err := scanFolder(q.QueryRow(folderSelect+` WHERE id = ?`, id), &f)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "folder", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query folder: %w", err)
	}
	return &f, nil
}

const folderSelect = `
	SELECT id, user_id, COALESCE(parent_id, ''), name, path, color, icon, collapsed, sort_order, created_at, updated_at
	FROM folders`

func scanFolder(row *sql.Row, f *models.Folder) error {
	var collapsed int
	if err := row.Scan(&f.ID, &f.UserID, &f.ParentID, &f.Name, &f.Path, &f.Color, &f.Icon, &collapsed, &f.SortOrder, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return err
	}
	f.Collapsed = collapsed != 0
	return nil
}

// ListFolders returns every folder owned by a user, ordered by sort_order
// then creation time, for a flat listing the caller reassembles into a tree.
func ListFolders(db *sql.DB, userID string) ([]*models.Folder, error) {
	var out []*models.Folder
	err := RetryWithBackoff(context.Background(), func() error {
		rows, err := db.Query(folderSelect+` WHERE user_id = ? ORDER BY sort_order ASC, created_at ASC`, userID)
		if err != nil {
			return fmt.Errorf("query folders: %w", err)
		}
		defer func() { _ = rows.Close() }()
		out = make([]*models.Folder, 0)
		for rows.Next() {
			var f models.Folder
			var collapsed int
			if err := rows.Scan(&f.ID, &f.UserID, &f.ParentID, &f.Name, &f.Path, &f.Color, &f.Icon, &collapsed, &f.SortOrder, &f.CreatedAt, &f.UpdatedAt); err != nil {
				return fmt.Errorf("scan folder row: %w", err)
			}
			f.Collapsed = collapsed != 0
			out = append(out, &f)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListChildFolders returns the immediate children of a folder (or the
// roots, when parentID is empty), ordered by sort_order.
func ListChildFolders(db *sql.DB, userID, parentID string) ([]*models.Folder, error) {
	var out []*models.Folder
	err := RetryWithBackoff(context.Background(), func() error {
		var rows *sql.Rows
		var err error
		if parentID == "" {
			rows, err = db.Query(folderSelect+` WHERE user_id = ? AND parent_id IS NULL ORDER BY sort_order ASC`, userID)
		} else {
			rows, err = db.Query(folderSelect+` WHERE user_id = ? AND parent_id = ? ORDER BY sort_order ASC`, userID, parentID)
		}
		if err != nil {
			return fmt.Errorf("query child folders: %w", err)
		}
		defer func() { _ = rows.Close() }()
		out = make([]*models.Folder, 0)
		for rows.Next() {
			var f models.Folder
			var collapsed int
			if err := rows.Scan(&f.ID, &f.UserID, &f.ParentID, &f.Name, &f.Path, &f.Color, &f.Icon, &collapsed, &f.SortOrder, &f.CreatedAt, &f.UpdatedAt); err != nil {
				return fmt.Errorf("scan folder row: %w", err)
			}
			f.Collapsed = collapsed != 0
			out = append(out, &f)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReorderFolders persists a new sort_order for each folder id in the slice,
// in a single transaction, index position becoming the new sort_order.
func ReorderFolders(db *sql.DB, userID string, orderedIDs []string) error {
	return Transact(db, func(tx *sql.Tx) error {
		for i, id := range orderedIDs {
			res, err := tx.Exec(`UPDATE folders SET sort_order = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
				i, time.Now().UTC(), id, userID)
			if err != nil {
				return fmt.Errorf("update sort_order for %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return &NotFoundError{Entity: "folder", ID: id}
			}
		}
		return nil
	})
}

// DeleteFolder deletes a folder; ON DELETE CASCADE removes child folders,
// sessions, memory entries, and notes scoped to it.
func DeleteFolder(db *sql.DB, id string) error {
	return Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM folders WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete folder: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "folder", ID: id}
		}
		return nil
	})
}
