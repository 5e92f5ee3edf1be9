package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNonceRoundTrip(t *testing.T) {
	manager := NewNonceManager("nonce-secret", time.Hour)

	token, expiresAt, err := manager.Issue(42, ActionDashboard)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	require.NoError(t, manager.Verify(token, 42, ActionDashboard))
}

func TestNonceRejectsMismatches(t *testing.T) {
	manager := NewNonceManager("nonce-secret", time.Hour)
	token, _, err := manager.Issue(42, ActionDashboard)
	require.NoError(t, err)

	require.ErrorIs(t, manager.Verify(token, 43, ActionDashboard), ErrInvalidNonce)
	require.ErrorIs(t, manager.Verify(token, 42, "other_action"), ErrInvalidNonce)
	require.ErrorIs(t, manager.Verify("", 42, ActionDashboard), ErrInvalidNonce)
	require.ErrorIs(t, manager.Verify("not-a-token", 42, ActionDashboard), ErrInvalidNonce)

	forged := NewNonceManager("another-secret", time.Hour)
	require.ErrorIs(t, forged.Verify(token, 42, ActionDashboard), ErrInvalidNonce)
}

func TestNonceExpires(t *testing.T) {
	manager := NewNonceManager("nonce-secret", time.Minute)
	issued := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issued }

	token, _, err := manager.Issue(5, ActionDashboard)
	require.NoError(t, err)
	require.NoError(t, manager.Verify(token, 5, ActionDashboard))

	manager.now = func() time.Time { return issued.Add(2 * time.Minute) }
	require.ErrorIs(t, manager.Verify(token, 5, ActionDashboard), ErrInvalidNonce)
}

func TestNonceRejectsOtherAlgorithms(t *testing.T) {
	manager := NewNonceManager("nonce-secret", time.Hour)
	claims := nonceClaims{
		Action: ActionDashboard,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("nonce-secret"))
	require.NoError(t, err)

	require.ErrorIs(t, manager.Verify(token, 42, ActionDashboard), ErrInvalidNonce)
}

func TestIssueRequiresUser(t *testing.T) {
	manager := NewNonceManager("nonce-secret", time.Hour)
	_, _, err := manager.Issue(0, ActionDashboard)
	require.ErrorIs(t, err, ErrInvalidNonce)
}
