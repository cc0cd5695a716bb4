// Package auth holds everything that decides who a request belongs to.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. A user registers or logs in (POST /api/auth/register, /api/auth/login),
//     or finishes the Google consent flow (/api/auth/google/callback).
//  2. The server issues a signed JWT whose "sub" claim is the numeric user id
//     and stores it in the HttpOnly "jwt" cookie for one hour.
//  3. On protected routes RequireAuth reads the cookie, verifies the token,
//     loads the user and puts it in the request context.
//  4. Handlers that touch owned data call RequireOwner to compare that
//     identity with the resource's owner.
//
// Tokens are stateless: logout only clears the cookie. A token copied
// before logout stays valid until it expires.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenTTL is how long an issued session token stays valid.
	TokenTTL = time.Hour

	issuer = "gameratings"
)

// ErrInvalidToken is returned by Verify for every rejected token. The
// underlying reason is wrapped for logging.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens. The same secret
// must be used for both operations; tokens signed with a rotated-out secret
// simply stop verifying.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for userID that expires after TokenTTL.
func (s *TokenService) Issue(userID int64) (string, error) {
	return s.IssueWithDuration(userID, TokenTTL)
}

// IssueWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to build already-expired tokens.
func (s *TokenService) IssueWithDuration(userID int64, d time.Duration) (string, error) {
	now := s.now()

	c := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and checks a token and returns the user id in its "sub"
// claim.
//
// VALIDATION CHECKS:
//   - signature matches (not tampered with, signed with our secret)
//   - algorithm is HS256, so "none" and RS/HS confusion are rejected
//   - issuer is "gameratings"
//   - "exp" is present and in the future
//   - "sub" is a positive decimal integer
func (s *TokenService) Verify(tokenStr string) (int64, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return userID, nil
}
