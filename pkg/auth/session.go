package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tripdesk/pkg/model"
)

// Session identifies the caller of a domain operation. It is threaded
// explicitly through every service call, never read from ambient state.
// A zero Session means unauthenticated.
type Session struct {
	UserID string
	Role   string
	Name   string
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

func (s Session) IsAdmin() bool {
	return s.Role == model.RoleAdmin
}

func (s Session) IsAgent() bool {
	return s.Role == model.RoleAgent
}

func (s Session) IsCustomer() bool {
	return s.Role == model.RoleCustomer
}

// IsStaff reports whether the caller works the pipeline side.
func (s Session) IsStaff() bool {
	return s.IsAdmin() || s.IsAgent()
}

type sessionContextKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext returns the caller session set by the auth
// middleware. The second return is false for unauthenticated requests.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(Session)
	if !ok || !s.Authenticated() {
		return Session{}, false
	}
	return s, true
}

type sessionClaims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Verifier validates session tokens issued by the identity provider.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses a signed token and returns the embedded session.
func (v *Verifier) Verify(tokenString string) (Session, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Session{}, fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid {
		return Session{}, fmt.Errorf("invalid session token")
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("session token missing subject")
	}

	return Session{
		UserID: claims.Subject,
		Role:   claims.Role,
		Name:   claims.Name,
	}, nil
}

// Issue signs a session token. Used by tests and local tooling; token
// issuance in production belongs to the identity provider.
func (v *Verifier) Issue(s Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Role: s.Role,
		Name: s.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
