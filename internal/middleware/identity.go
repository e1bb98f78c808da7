package middleware

// identity.go holds the context keys set by JWTAuth and helpers to read them.

import "github.com/labstack/echo/v4"

// Context keys populated by JWTAuth.
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
)

// CurrentUserID returns the authenticated caller's id. ok is false when no
// guard ran or the token had no subject.
func CurrentUserID(c echo.Context) (id string, ok bool) {
	if v, isStr := c.Get(UserIDKey).(string); isStr && v != "" {
		return v, true
	}
	return "", false
}

// userID is CurrentUserID for key building; anonymous callers share "anon".
func userID(c echo.Context) string {
	if id, ok := CurrentUserID(c); ok {
		return id
	}
	return "anon"
}
