// Package auth carries the caller's identity and role as an explicit session
// value, parsed from a bearer JWT at the transport edge.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the caller's role within an HR organisation.
type Role string

const (
	RoleHR       Role = "HR"
	RoleEmployee Role = "EMPLOYEE"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleHR || r == RoleEmployee
}

// Session identifies the caller of a service operation.
type Session struct {
	UserID string
	OrgID  string
	Role   Role
	Email  string
}

func (s Session) IsHR() bool       { return s.Role == RoleHR }
func (s Session) IsEmployee() bool { return s.Role == RoleEmployee }

var (
	ErrNoSession    = errors.New("no session in context")
	ErrInvalidToken = errors.New("invalid session token")
)

type sessionKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	if !ok {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Claims is the JWT payload.
type Claims struct {
	OrgID string `json:"org_id"`
	Role  Role   `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue returns a signed token for s valid for ttl.
func (m *TokenManager) Issue(s Session, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		OrgID: s.OrgID,
		Role:  s.Role,
		Email: s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies a token and returns the session it carries.
func (m *TokenManager) Parse(token string) (Session, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return Session{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return Session{
		UserID: claims.Subject,
		OrgID:  claims.OrgID,
		Role:   claims.Role,
		Email:  claims.Email,
	}, nil
}

// Middleware parses the bearer token of every request except the listed
// public paths and stores the session in the request context.
func (m *TokenManager) Middleware(public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			s, err := m.Parse(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
