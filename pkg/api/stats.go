package api

import (
	"net/http"

	"github.com/labstack/echo"

	"github.com/akashbera009/kichu-kotha/pkg/api/resource"
)

func (h *Handler) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, &resource.StatsResource{
		OnlineUsers: len(h.ctrl.OnlineUsers()),
		ActiveCalls: h.ctrl.ActiveCalls(),
	})
}
