// Package auth issues and verifies the admin bearer token.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"txtforge/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Service struct {
	username     string
	password     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

func NewService(cfg config.AuthConfig) *Service {
	s := &Service{
		username: cfg.AdminUsername,
		password: cfg.AdminPassword,
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.TokenTTL,
		now:      time.Now,
	}
	if cfg.AdminPasswordHash != "" {
		s.passwordHash = []byte(cfg.AdminPasswordHash)
	}
	return s
}

// Login checks the fixed admin credentials and returns a signed token.
func (s *Service) Login(username, password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 || !s.checkPassword(password) {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (s *Service) checkPassword(password string) bool {
	if s.passwordHash != nil {
		return bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	}
	return s.password != "" && subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
}

// Verify parses a token and returns the admin username it was issued to.
func (s *Service) Verify(token string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Username != s.username {
		return "", ErrInvalidToken
	}
	return claims.Username, nil
}
