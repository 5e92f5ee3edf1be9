// Package security issues and verifies the short-lived request nonces that guard
// state-refreshing dashboard calls.
package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ActionDashboard is the action every dashboard nonce is bound to.
const ActionDashboard = "teacher_dashboard"

// ErrInvalidNonce is returned for missing, expired, forged or mismatched nonces.
var ErrInvalidNonce = errors.New("invalid nonce")

type nonceClaims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// NonceManager signs nonces with HS256.
type NonceManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewNonceManager constructs a manager issuing nonces valid for ttl.
func NewNonceManager(secret string, ttl time.Duration) *NonceManager {
	return &NonceManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a nonce for the user and action, returning its expiry.
func (m *NonceManager) Issue(userID uint64, action string) (string, time.Time, error) {
	if userID == 0 {
		return "", time.Time{}, fmt.Errorf("issue nonce: %w", ErrInvalidNonce)
	}

	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)
	claims := nonceClaims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign nonce: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the nonce signature and expiry and that it was issued to userID for action.
func (m *NonceManager) Verify(token string, userID uint64, action string) error {
	if token == "" || userID == 0 {
		return ErrInvalidNonce
	}

	var claims nonceClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidNonce
	}

	if claims.Action != action || claims.Subject != strconv.FormatUint(userID, 10) {
		return ErrInvalidNonce
	}
	return nil
}
