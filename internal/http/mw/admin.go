package mw

import (
	"net/http"
	"strings"
)

// TokenVerifier checks an admin session token. Satisfied by auth.Admin.
type TokenVerifier interface {
	Verify(token string) error
}

// AdminAuth guards the admin surface with a Bearer token. Requests without a
// valid token get a 401; when the admin surface is not configured the
// verifier rejects everything and the whole group stays closed.
func AdminAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			if err := verifier.Verify(token); err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"未授权访问"}`))
}
