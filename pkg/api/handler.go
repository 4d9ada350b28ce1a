package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo"
	log "github.com/sirupsen/logrus"

	"github.com/akashbera009/kichu-kotha/pkg/auth"
	"github.com/akashbera009/kichu-kotha/pkg/chat"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

const identityContextKey = "identity"

// Handler contains all properties to serve the API
type Handler struct {
	store    storage.Interface
	verifier *auth.JWTVerifier
	ctrl     *chat.Controller
}

// NewHandler create a new API handler
func NewHandler(store storage.Interface, verifier *auth.JWTVerifier, ctrl *chat.Controller) *Handler {
	return &Handler{
		store:    store,
		verifier: verifier,
		ctrl:     ctrl,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register API routes")

	e.GET("/health", h.handleHealth)

	api := e.Group("/api/v1")
	api.POST("/auth/register", h.handleRegister)
	api.POST("/auth/login", h.handleLogin)

	users := api.Group("/users", h.requireAuth)
	users.GET("/me", h.handleGetMe)
	users.GET("/search", h.handleSearchUsers)
	users.GET("/:id", h.handleGetUserByID)
	users.GET("/contacts", h.handleFetchContacts)
	users.POST("/contacts", h.handleAddContact)
	users.POST("/push-token", h.handleAddPushToken)

	messages := api.Group("/messages", h.requireAuth)
	messages.GET("/:userId", h.handleFetchConversation)
	messages.PATCH("/:id/read", h.handleMarkMessageRead)

	api.GET("/stats", h.handleStats, h.requireAuth)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// requireAuth verifies the bearer token and stores the caller's identity in
// the request context.
func (h *Handler) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}

		identity, err := h.verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		c.Set(identityContextKey, identity)
		return next(c)
	}
}

func identityFrom(c echo.Context) *auth.Identity {
	identity, _ := c.Get(identityContextKey).(*auth.Identity)
	return identity
}
