package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ContextKey represents keys for context values
type ContextKey string

const (
	// Context keys set by RequireAuth and read by handlers
	ActorContextKey ContextKey = "actor_id"
	OrgContextKey   ContextKey = "org_id"
	RoleContextKey  ContextKey = "role"
)

// Claims is the JWT claim set issued by the institution app's identity provider. The
// discussion engine performs no authorization of its own beyond requiring a valid token;
// which event kinds an actor may emit is the calling layer's concern.
type Claims struct {
	ActorID string `json:"sub"`
	OrgID   int64  `json:"org_id"`
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// RequireAuth validates the Bearer token and stores actor, org and role in the request
// context.
func RequireAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}
			if claims.ActorID == "" || claims.OrgID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token missing actor or organization claims")
			}

			c.Set(string(ActorContextKey), claims.ActorID)
			c.Set(string(OrgContextKey), claims.OrgID)
			c.Set(string(RoleContextKey), claims.Role)

			return next(c)
		}
	}
}

// ActorFromContext returns the authenticated actor id, or "" when absent.
func ActorFromContext(c echo.Context) string {
	actorID, _ := c.Get(string(ActorContextKey)).(string)
	return actorID
}

// OrgFromContext returns the authenticated organization id, or 0 when absent.
func OrgFromContext(c echo.Context) int64 {
	orgID, _ := c.Get(string(OrgContextKey)).(int64)
	return orgID
}

// RoleFromContext returns the authenticated role, or "" when absent.
func RoleFromContext(c echo.Context) string {
	role, _ := c.Get(string(RoleContextKey)).(string)
	return role
}
