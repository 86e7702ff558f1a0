// Package auth mints and verifies the two credential kinds the platform
// accepts: a single service token for the local trusted caller (the web
// frontend, or any process running as the same user) and per-user CLI
// tokens for the rdv command line.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// serviceTokenBytes is the length of the random secret, before encoding.
const serviceTokenBytes = 32

// ServiceToken is the single shared credential used by trusted local
// callers that don't carry a per-user identity of their own.
type ServiceToken struct {
	Token     []byte
	CreatedAt time.Time
	TokenID   uuid.UUID
}

// GenerateServiceToken creates a new random service token.
func GenerateServiceToken() (*ServiceToken, error) {
	token := make([]byte, serviceTokenBytes)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("generate service token: %w", err)
	}
	return &ServiceToken{
		Token:     token,
		CreatedAt: time.Now().UTC(),
		TokenID:   uuid.New(),
	}, nil
}

// WriteToFile persists the token to disk base64-encoded, restricted to
// owner read/write (0600) so no other local user can read it.
func (t *ServiceToken) WriteToFile(path string) error {
	encoded := base64.StdEncoding.EncodeToString(t.Token)
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("write service token: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod service token: %w", err)
	}
	return nil
}

// ReadServiceTokenFile loads a service token previously written by
// WriteToFile. The token ID is freshly minted on every read: it exists
// for logging/revocation within a single process lifetime, not as a
// value persisted alongside the secret.
func ReadServiceTokenFile(path string) (*ServiceToken, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service token: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("invalid service token encoding: %w", err)
	}
	if len(decoded) != serviceTokenBytes {
		return nil, fmt.Errorf("invalid service token length: got %d bytes, want %d", len(decoded), serviceTokenBytes)
	}
	return &ServiceToken{
		Token:     decoded,
		CreatedAt: time.Now().UTC(),
		TokenID:   uuid.New(),
	}, nil
}

// Verify reports whether candidate matches this token's secret, in
// constant time so response latency can't leak a partial match.
func (t *ServiceToken) Verify(candidate []byte) bool {
	if len(candidate) != len(t.Token) {
		return false
	}
	return subtle.ConstantTimeCompare(candidate, t.Token) == 1
}
