package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// authGuard verifies the bearer token the CRUD backend signs with the
// shared HS256 secret. An empty key disables the guard; deployments without
// it are development-only.
type authGuard struct {
	key    []byte
	issuer string
}

func newAuthGuard(key, issuer string) *authGuard {
	g := &authGuard{issuer: issuer}
	if key != "" {
		g.key = []byte(key)
	}
	return g
}

func (g *authGuard) middleware(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.key == nil {
			next.ServeHTTP(w, r)
			return
		}
		if err := g.verify(r); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(ErrorResponse{
				Error:   http.StatusText(http.StatusUnauthorized),
				Code:    http.StatusUnauthorized,
				Message: err.Error(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *authGuard) verify(r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return fmt.Errorf("missing authorization header")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return fmt.Errorf("authorization header must be a bearer token")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if g.issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.issuer))
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return g.key, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
