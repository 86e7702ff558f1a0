package auth

import (
	"database/sql"
	"strings"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

// MintCLIToken issues a new CLI token for userID and returns the
// one-time plaintext the caller must show the user immediately; it is
// never recoverable once this call returns.
func MintCLIToken(db *sql.DB, userID, name string) (*store.MintedCLIToken, error) {
	if strings.TrimSpace(name) == "" {
		name = "unnamed token"
	}
	return store.CreateCLIToken(db, userID, name)
}

// AuthenticateCLIToken verifies a plaintext rdv_... token presented by
// the CLI and returns the user it authenticates as. It rejects tokens
// that don't carry the expected prefix before ever touching the
// database, so a malformed Authorization header never reaches the
// constant-time comparison loop.
func AuthenticateCLIToken(db *sql.DB, plaintext string) (*models.CLIToken, error) {
	if !strings.HasPrefix(plaintext, "rdv_") {
		return nil, &store.InvalidTokenError{Reason: "missing rdv_ prefix"}
	}
	token, err := store.ValidateCLIToken(db, plaintext)
	if err != nil {
		return nil, err
	}
	if token.Revoked {
		return nil, &store.InvalidTokenError{Reason: "token revoked"}
	}
	return token, nil
}

// ListCLITokens returns every token minted for userID, newest first.
// Only the visible prefix is ever returned; the hash never leaves store.
func ListCLITokens(db *sql.DB, userID string) ([]*models.CLIToken, error) {
	return store.ListCLITokens(db, userID)
}

// RevokeCLIToken invalidates a token by its record ID. It takes effect
// immediately: AuthenticateCLIToken will reject the plaintext on the
// very next request.
func RevokeCLIToken(db *sql.DB, tokenID string) error {
	return store.RevokeCLIToken(db, tokenID)
}

// AuthContext is the identity extracted from an authenticated request,
// regardless of which credential kind produced it.
type AuthContext struct {
	UserID  string
	TokenID string // empty when authenticated via the service token
}

// IsService reports whether this request was authenticated via the
// shared service token rather than a per-user CLI token.
func (c AuthContext) IsService() bool {
	return c.TokenID == ""
}
