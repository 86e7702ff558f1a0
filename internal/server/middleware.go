package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/remotedev/rdv/internal/auth"
	"github.com/remotedev/rdv/internal/store"
)

type contextKey string

const authContextKey contextKey = "rdv.authContext"

// authContextFrom reads the AuthContext a previous middleware attached to
// the request. Handlers call this instead of trusting a client-supplied
// user id.
func authContextFrom(r *http.Request) (auth.AuthContext, bool) {
	ac, ok := r.Context().Value(authContextKey).(auth.AuthContext)
	return ac, ok
}

// requireAuth accepts either the shared service token or a per-user CLI
// token, attaching the resolved AuthContext to the request context.
// Grounded on original_source's AuthContext enum: exactly one of the two
// schemes authenticates a given request, never both.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeError(w, &store.InvalidTokenError{Reason: "missing bearer token"})
			return
		}
		presented := strings.TrimPrefix(header, prefix)

		if s.serviceToken != nil {
			if decoded, err := base64.StdEncoding.DecodeString(presented); err == nil && s.serviceToken.Verify(decoded) {
				user, err := store.GetOrCreateLocalUser(s.db)
				if err != nil {
					writeError(w, err)
					return
				}
				ctx := context.WithValue(r.Context(), authContextKey, auth.AuthContext{UserID: user.ID})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		if strings.HasPrefix(presented, "rdv_") {
			token, err := auth.AuthenticateCLIToken(s.db, presented)
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), authContextKey, auth.AuthContext{UserID: token.UserID, TokenID: token.ID})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		writeError(w, &store.InvalidTokenError{Reason: "unrecognized credential"})
	})
}
