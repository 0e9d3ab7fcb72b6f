package http

import (
	"net/http"
	"strings"

	"splitride/internal/auth"
)

// withAuth verifies the bearer token and attaches the session to the
// request context. WebSocket clients may pass the token as a query
// parameter instead, since browsers cannot set headers on upgrades.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeError(w, r, errMissingToken)
			return
		}

		sess, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		next(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
