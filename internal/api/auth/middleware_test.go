package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func runAuthed(t *testing.T, authHeader string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequireAuth(testSecret)(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"actorId": ActorFromContext(c),
			"orgId":   OrgFromContext(c),
			"role":    RoleFromContext(c),
		})
	})
	return rec, handler(c)
}

func TestRequireAuthValidToken(t *testing.T) {
	token := signToken(t, Claims{
		ActorID: "emp-42",
		OrgID:   7,
		Role:    "hr",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec, err := runAuthed(t, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"actorId":"emp-42"`)
	assert.Contains(t, rec.Body.String(), `"orgId":7`)
	assert.Contains(t, rec.Body.String(), `"role":"hr"`)
}

func TestRequireAuthRejects(t *testing.T) {
	cases := map[string]string{
		"MissingHeader": "",
		"NotBearer":     "Basic abc123",
		"GarbageToken":  "Bearer not-a-jwt",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := runAuthed(t, header)
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		})
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	token := signToken(t, Claims{
		ActorID: "emp-42",
		OrgID:   7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := runAuthed(t, "Bearer "+token)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireAuthMissingClaims(t *testing.T) {
	token := signToken(t, Claims{
		Role: "member",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := runAuthed(t, "Bearer "+token)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
