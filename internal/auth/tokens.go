package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification errors. All map to 401 at the transport layer.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// TokenService issues and verifies HS256 JWTs with a sub claim.
type TokenService struct {
	secret    []byte
	expiry    time.Duration
	blacklist Blacklist
}

// NewTokenService creates a TokenService. expiryDays controls token
// lifetime; the blacklist may be nil to disable revocation checks.
func NewTokenService(secret string, expiryDays int, blacklist Blacklist) *TokenService {
	if expiryDays <= 0 {
		expiryDays = 7
	}
	return &TokenService{
		secret:    []byte(secret),
		expiry:    time.Duration(expiryDays) * 24 * time.Hour,
		blacklist: blacklist,
	}
}

// Issue creates a signed token for a user.
func (t *TokenService) Issue(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(t.expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, expiry, and revocation state, and
// returns the subject user id.
func (t *TokenService) Verify(ctx context.Context, tokenString string) (string, error) {
	if t.blacklist != nil {
		revoked, err := t.blacklist.IsRevoked(ctx, tokenString)
		if err != nil {
			return "", fmt.Errorf("blacklist check failed: %w", err)
		}
		if revoked {
			return "", ErrTokenRevoked
		}
	}

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", ErrTokenInvalid
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrTokenInvalid
	}
	return sub, nil
}

// Revoke blacklists a token until its natural expiry.
func (t *TokenService) Revoke(ctx context.Context, tokenString string) error {
	if t.blacklist == nil {
		return nil
	}

	// Revoked tokens only need to stay listed until they would have
	// expired anyway; compute the remaining lifetime when possible.
	ttl := t.expiry
	if parsed, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{}); err == nil {
		if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
			if remaining := time.Until(exp.Time); remaining > 0 {
				ttl = remaining
			}
		}
	}

	return t.blacklist.Revoke(ctx, tokenString, ttl)
}
