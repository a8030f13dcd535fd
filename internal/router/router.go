package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/iliyamo/bookswap/internal/handler"
	"github.com/iliyamo/bookswap/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check,
// used by load balancers and monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session: register,
	// login, refresh.  Each handler generates or exchanges tokens.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout does not require JWT authentication: the handler accepts a
	// JSON body containing a `refresh_token` (revoke one session) or a
	// bearer header (revoke all sessions) and validates either itself.
	g.POST("/logout", a.Logout)

	// Routes that require a valid access token.  All handlers on this
	// group execute the JWTAuth middleware before being invoked.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterBooks wires the listing endpoints.  The public catalogue sits
// outside the JWT group and behind the Redis response cache; everything
// that creates or mutates a listing requires authentication.
func RegisterBooks(e *echo.Echo, b *handler.BookHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	if cache != nil {
		e.GET("/v1/books", b.ListBooks, cache)
	} else {
		e.GET("/v1/books", b.ListBooks)
	}

	auth := e.Group("/v1/books")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/mine", b.ListMine)
	auth.POST("", b.CreateBook)
	auth.PUT("/:id", b.UpdateBook)
	auth.DELETE("/:id", b.DeleteBook)
}

// RegisterRequests wires the request workflow.  Every endpoint requires
// authentication: the requester for create/mine, the book owner for
// received/decide (ownership is enforced in the handlers, where the
// referenced book is resolved).
func RegisterRequests(e *echo.Echo, r *handler.RequestHandler, jwtSecret string) {
	auth := e.Group("/v1/requests")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.POST("", r.CreateRequest)
	auth.GET("/mine", r.ListMine)
	auth.GET("/received", r.ListReceived)
	auth.PATCH("/:id", r.Decide)
}
