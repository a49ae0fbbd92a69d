package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxEmail  = "email"
)

// UserID returns the authenticated profile id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok {
		return s
	}
	return ""
}

// Role returns the role loaded for the authenticated user, or "".
func Role(c echo.Context) string {
	if s, ok := c.Get(CtxRole).(string); ok {
		return s
	}
	return ""
}

// userKey is the rate-limit and log identity: the user id or "anon".
func userKey(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
