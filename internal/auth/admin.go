// Package auth implements the admin session: password login issuing a
// short-lived JWT, verified by middleware on admin routes.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrDisabled           = errors.New("admin auth disabled")
)

// Admin verifies the operator password and mints session tokens.
type Admin struct {
	password  string
	jwtSecret []byte
	expiry    time.Duration
}

// NewAdmin builds the admin authenticator. An empty password disables
// admin auth entirely; Login and Verify then always fail.
func NewAdmin(password, jwtSecret string, expiry time.Duration) *Admin {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Admin{
		password:  password,
		jwtSecret: []byte(jwtSecret),
		expiry:    expiry,
	}
}

// Enabled reports whether admin auth is configured.
func (a *Admin) Enabled() bool {
	return a.password != "" && len(a.jwtSecret) > 0
}

// Login checks the password and returns a signed session token. The
// configured password may be stored as a bcrypt hash or, for local
// development, in the clear.
func (a *Admin) Login(password string) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}
	if !a.passwordMatches(password) {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (a *Admin) passwordMatches(password string) bool {
	if strings.HasPrefix(a.password, "$2a$") || strings.HasPrefix(a.password, "$2b$") || strings.HasPrefix(a.password, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(a.password), []byte(password)) == nil
	}
	// Constant-time comparison matters little for a single-operator
	// password, but bcrypt-hashed storage is still the recommended setup.
	return password != "" && password == a.password
}

// Verify parses a session token and confirms signature, subject, and
// expiry.
func (a *Admin) Verify(tokenString string) error {
	if !a.Enabled() {
		return ErrDisabled
	}
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.jwtSecret, nil
		})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != "admin" {
		return ErrInvalidToken
	}
	return nil
}
