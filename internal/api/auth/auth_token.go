package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-signup-auth/internal/types"
)

// AccessTokenTTL is fixed: every token expires one hour after issuance.
const AccessTokenTTL = time.Hour

// Claims carries the user id as the only application claim.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 access tokens with a server-held secret.
type TokenCodec struct {
	secretKey []byte
	now       func() time.Time
}

func NewTokenCodec(secretKey string) *TokenCodec {
	return &TokenCodec{secretKey: []byte(secretKey), now: time.Now}
}

// Issue signs a token for userID that expires AccessTokenTTL from now.
func (c *TokenCodec) Issue(userID uuid.UUID) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(AccessTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(c.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse checks signature and expiry and returns the user id. Expired tokens
// fail with types.ErrTokenExpired, everything else with types.ErrTokenInvalid.
func (c *TokenCodec) Parse(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, fmt.Errorf("%w: %v", types.ErrTokenExpired, err)
		}
		return uuid.Nil, fmt.Errorf("%w: %v", types.ErrTokenInvalid, err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad id claim", types.ErrTokenInvalid)
	}
	return userID, nil
}
