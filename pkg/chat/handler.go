package chat

import (
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/labstack/echo"
	log "github.com/sirupsen/logrus"

	"github.com/akashbera009/kichu-kotha/pkg/auth"
	"github.com/akashbera009/kichu-kotha/pkg/chat/websocket"
)

// Handler contains all properties to serve the chat channel
type Handler struct {
	ctrl     *Controller
	verifier auth.Verifier
}

// NewHandler create a new chat channel handler
func NewHandler(ctrl *Controller, verifier auth.Verifier) *Handler {
	return &Handler{
		ctrl:     ctrl,
		verifier: verifier,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register chat routes")
	api := e.Group("/chat")
	api.Any("/v1", h.chatChannelHandler())
}

func (h *Handler) chatChannelHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, err := h.verifier.Verify(bearerToken(c))
		if err != nil {
			log.Debugf("rejected chat connection: %v", err)
			return c.NoContent(http.StatusUnauthorized)
		}

		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			return err
		}
		defer conn.Close()

		terminateCh := make(chan struct{})
		driver := websocket.NewDriver(conn, terminateCh)
		driver.Start()
		defer driver.Close()

		cc := NewClientChannel(h.ctrl, driver, identity)
		defer cc.Close()

		<-terminateCh

		log.Debug("handler exit chat channel handler func")
		return nil
	}
}

// bearerToken extracts the credential from the token query parameter or the
// Authorization header. Browser websocket clients cannot set headers, so
// the query parameter wins.
func bearerToken(c echo.Context) string {
	if token := c.QueryParam("token"); token != "" {
		return token
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}
