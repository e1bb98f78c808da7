package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/health-tracker/internal/handler"
	"github.com/iliyamo/health-tracker/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check for load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes. Register, login, refresh
// and logout are public; the profile endpoints need a valid access token.
// limiter may be nil.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token; the old one stops working.
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	profile := g.Group("/profile", middleware.JWTAuth(jwtSecret))
	profile.GET("", a.Profile)
	profile.PATCH("", a.UpdateProfile)
}

// RegisterForm registers the health record CRUD under /form. The JWT guard
// runs first so the limiter and the cache can key on the caller. limiter and
// cache may be nil.
func RegisterForm(e *echo.Echo, h *handler.FormHandler, jwtSecret string, limiter, cache echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}
	if limiter != nil {
		mw = append(mw, limiter)
	}
	if cache != nil {
		mw = append(mw, cache)
	}
	g := e.Group("/form", mw...)

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:recordId", h.Get)
	g.PUT("/:recordId", h.Update)
	g.PATCH("/:recordId", h.Update)
	g.DELETE("/:recordId", h.Delete)
}
