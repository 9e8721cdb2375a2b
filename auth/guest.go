package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const guestRole = "guest"

// GuestTokens issues and checks the signed tokens that identify anonymous
// carts across requests.
type GuestTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewGuestTokens(secret string, ttl time.Duration) *GuestTokens {
	return &GuestTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a new session id and its signed token.
func (g *GuestTokens) Issue() (sessionID, token string, expires time.Time, err error) {
	sessionID = uuid.NewString()
	expires = g.now().Add(g.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Audience:  jwt.ClaimStrings{guestRole},
		IssuedAt:  jwt.NewNumericDate(g.now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign guest token: %w", err)
	}
	return sessionID, token, expires, nil
}

// Parse validates token and returns the session id it carries.
func (g *GuestTokens) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(guestRole),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid guest token: %w", err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("invalid guest token: bad subject")
	}
	return claims.Subject, nil
}
