package middleware

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "session-secret"

func signSession(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func sessionApp() *fiber.App {
	app := fiber.New()
	app.Use(SessionProtected(testSecret, "dashboard_session"))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(fmt.Sprint(UserIDFromContext(c)))
	})
	return app
}

func TestSessionProtectedAcceptsBearerAndCookie(t *testing.T) {
	token := signSession(t, testSecret, jwt.MapClaims{"sub": "42", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := sessionApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "42", string(body))

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "dashboard_session", Value: token})
	resp, err = sessionApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionProtectedRejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + signSession(t, "other", jwt.MapClaims{"sub": "42"}),
		"expired":      "Bearer " + signSession(t, testSecret, jwt.MapClaims{"sub": "42", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":   "Bearer " + signSession(t, testSecret, jwt.MapClaims{"name": "x"}),
		"zero subject": "Bearer " + signSession(t, testSecret, jwt.MapClaims{"sub": "0"}),
		"empty bearer": "Bearer ",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := sessionApp().Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestExtractUserIDFromNumericClaim(t *testing.T) {
	id := extractUserIDFromClaims(jwt.MapClaims{"user_id": float64(7)})
	require.NotNil(t, id)
	require.Equal(t, uint64(7), *id)

	require.Nil(t, extractUserIDFromClaims(jwt.MapClaims{"sub": float64(-1)}))
}
