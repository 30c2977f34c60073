// Package auth issues and checks the signed tokens of the sandbox API.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes. A challenge token only unlocks the 2FA challenge endpoint.
const (
	PurposeSession   = "session"
	PurposeChallenge = "2fa_challenge"
)

// UnauthorizedError indicates a missing, invalid or misused token.
type UnauthorizedError struct {
	Reason string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Reason)
}

type Claims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// UserID returns the numeric subject.
func (c Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Service signs HS256 tokens.
type Service struct {
	Secret       string
	Issuer       string
	TTL          time.Duration
	ChallengeTTL time.Duration
	Now          func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue signs a token for userID and returns it with its id.
func (s Service) Issue(userID int64, purpose string) (string, Claims, error) {
	if strings.TrimSpace(s.Secret) == "" {
		return "", Claims{}, errors.New("jwt secret not configured")
	}
	ttl := s.TTL
	if purpose == PurposeChallenge {
		ttl = s.ChallengeTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: purpose,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

// Parse verifies token and checks that it was issued for purpose.
func (s Service) Parse(token, purpose string) (Claims, error) {
	if strings.TrimSpace(s.Secret) == "" {
		return Claims{}, errors.New("jwt secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.Issuer))
	}
	claims := &Claims{}
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.Secret), nil
	})
	if err != nil {
		return Claims{}, UnauthorizedError{Reason: "invalid token"}
	}
	if !parsed.Valid {
		return Claims{}, UnauthorizedError{Reason: "invalid token"}
	}
	if claims.Subject == "" {
		return Claims{}, UnauthorizedError{Reason: "subject claim required"}
	}
	if claims.Purpose != purpose {
		return Claims{}, UnauthorizedError{Reason: "token not valid for this endpoint"}
	}
	return *claims, nil
}

// BearerToken extracts the token of an Authorization header.
func BearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
