package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/remotedev/rdv/internal/models"
)

// GenerateCLITokenID generates a CLI token record ID using pattern:
// tok_<unix_nano>_<random_hex>. Unlike insight IDs, SPEC_FULL §1 carves out
// UUIDs only for service-token IDs; CLI token records keep the prefixed
// scheme shared by every other entity.
func GenerateCLITokenID() string {
	return generatePrefixedID("tok")
}

// tokenSecretBytes is the length of the random secret portion of a minted
// token, before hex-encoding.
const tokenSecretBytes = 24

// hashToken returns the hex-encoded SHA-256 digest of a token's full
// plaintext, the value actually persisted; the plaintext itself is shown to
// the user exactly once, at mint time.
func hashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// MintedCLIToken carries the one-time plaintext alongside the persisted
// record; callers must display Plaintext to the user and discard it
// immediately afterward.
type MintedCLIToken struct {
	Token     *models.CLIToken
	Plaintext string
}

// CreateCLIToken mints a new CLI token for a user. The visible prefix
// (rdv_XXXXXXXX) lets a user recognize a token in logs or shell history
// without exposing the secret; only the SHA-256 hash of the full plaintext
// is stored.
func CreateCLIToken(db *sql.DB, userID, name string) (*MintedCLIToken, error) {
	secret := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	secretHex := hex.EncodeToString(secret)
	plaintext := "rdv_" + secretHex
	prefix := plaintext[:12]
	tokenHash := hashToken(plaintext)

	var token *models.CLIToken
	err := Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		id := GenerateCLITokenID()
		if _, err := tx.Exec(`
			INSERT INTO cli_tokens (id, user_id, name, prefix, token_hash, created_at, last_used_at, revoked)
			VALUES (?, ?, ?, ?, ?, ?, NULL, 0)
		`, id, userID, name, prefix, tokenHash, now); err != nil {
			if IsUniqueConstraintErr(err) {
				return &ConflictError{Reason: "token hash collision, retry mint"}
			}
			return fmt.Errorf("insert cli token: %w", err)
		}
		t, err := getCLITokenTx(tx, id)
		if err != nil {
			return err
		}
		token = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &MintedCLIToken{Token: token, Plaintext: plaintext}, nil
}

const cliTokenSelect = `
	SELECT id, user_id, name, prefix, token_hash, created_at, last_used_at, revoked
	FROM cli_tokens`

func scanCLIToken(row *sql.Row, t *models.CLIToken) error {
	var revoked int
	var lastUsed sql.NullTime
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Prefix, &t.TokenHash, &t.CreatedAt, &lastUsed, &revoked); err != nil {
		return err
	}
	t.Revoked = revoked != 0
	if lastUsed.Valid {
		lu := lastUsed.Time
		t.LastUsedAt = &lu
	}
	return nil
}

func getCLITokenTx(q Querier, id string) (*models.CLIToken, error) {
	var t models.CLIToken
	err := scanCLIToken(q.QueryRow(cliTokenSelect+` WHERE id = ?`, id), &t)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "cli_token", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query cli token: %w", err)
	}
	return &t, nil
}

// ValidateCLIToken looks up a token by its plaintext, verifying the stored
// hash with a constant-time comparison, and returns it only if unrevoked.
// On success it also stamps last_used_at.
func ValidateCLIToken(db *sql.DB, plaintext string) (*models.CLIToken, error) {
	wantHash := hashToken(plaintext)
	var token *models.CLIToken
	err := Transact(db, func(tx *sql.Tx) error {
		rows, err := tx.Query(cliTokenSelect + ` WHERE revoked = 0`)
		if err != nil {
			return fmt.Errorf("query cli tokens: %w", err)
		}
		defer func() { _ = rows.Close() }()

		var matched *models.CLIToken
		for rows.Next() {
			var t models.CLIToken
			var revoked int
			var lastUsed sql.NullTime
			if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Prefix, &t.TokenHash, &t.CreatedAt, &lastUsed, &revoked); err != nil {
				return fmt.Errorf("scan cli token row: %w", err)
			}
			if subtle.ConstantTimeCompare([]byte(t.TokenHash), []byte(wantHash)) == 1 {
				t.Revoked = revoked != 0
				if lastUsed.Valid {
					lu := lastUsed.Time
					t.LastUsedAt = &lu
				}
				matched = &t
				break
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if matched == nil {
			return &InvalidTokenError{Reason: "unknown or revoked token"}
		}
		now := time.Now().UTC()
		if _, err := tx.Exec(`UPDATE cli_tokens SET last_used_at = ? WHERE id = ?`, now, matched.ID); err != nil {
			return fmt.Errorf("update cli token last_used_at: %w", err)
		}
		matched.LastUsedAt = &now
		token = matched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// ListCLITokens returns every token minted for a user, newest first. The
// plaintext and hash are never returned to callers beyond the record's own
// prefix; ListCLITokens is for display ("token_abc (created ..., last used
// ...)"), not for authentication.
func ListCLITokens(db *sql.DB, userID string) ([]*models.CLIToken, error) {
	var out []*models.CLIToken
	err := RetryWithBackoff(context.Background(), func() error {
		rows, err := db.Query(cliTokenSelect+` WHERE user_id = ? ORDER BY created_at DESC`, userID)
		if err != nil {
			return fmt.Errorf("query cli tokens: %w", err)
		}
		defer func() { _ = rows.Close() }()
		out = make([]*models.CLIToken, 0)
		for rows.Next() {
			var t models.CLIToken
			var revoked int
			var lastUsed sql.NullTime
			if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Prefix, &t.TokenHash, &t.CreatedAt, &lastUsed, &revoked); err != nil {
				return fmt.Errorf("scan cli token row: %w", err)
			}
			t.Revoked = revoked != 0
			if lastUsed.Valid {
				lu := lastUsed.Time
				t.LastUsedAt = &lu
			}
			out = append(out, &t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RevokeCLIToken marks a token revoked; it can no longer pass ValidateCLIToken.
func RevokeCLIToken(db *sql.DB, id string) error {
	return Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE cli_tokens SET revoked = 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("revoke cli token: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "cli_token", ID: id}
		}
		return nil
	})
}
