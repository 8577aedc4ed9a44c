package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenExtractor validates bearer tokens and extracts the user record id from the subject claim.
type TokenExtractor struct {
	secret []byte
	issuer string
}

func NewTokenExtractor(secret, issuer string) *TokenExtractor {
	return &TokenExtractor{secret: []byte(secret), issuer: issuer}
}

// ExtractUserIDFromHeader parses "Bearer <jwt>" and returns the subject and expiry.
func (te *TokenExtractor) ExtractUserIDFromHeader(authHeader string) (string, *time.Time, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", nil, fmt.Errorf("%w: expected Bearer scheme", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if te.issuer != "" {
		opts = append(opts, jwt.WithIssuer(te.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (any, error) {
		return te.secret, nil
	}, opts...)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	var expiresAt *time.Time
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		expiresAt = &t
	}
	return claims.Subject, expiresAt, nil
}

// IssueToken signs a token for the given user record id.
func (te *TokenExtractor) IssueToken(recordID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   recordID,
		Issuer:    te.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(te.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
