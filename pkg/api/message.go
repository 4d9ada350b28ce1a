package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo"

	"github.com/akashbera009/kichu-kotha/pkg/api/resource"
	"github.com/akashbera009/kichu-kotha/pkg/model"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func (h *Handler) handleFetchConversation(c echo.Context) error {
	identity := identityFrom(c)
	peerID := c.Param("userId")

	limit := defaultPageSize
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		limit = n
	}

	var before time.Time
	if s := c.QueryParam("before"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid before timestamp"})
		}
		before = t
	}

	m, hasMore, err := h.store.Messages().FetchConversation(identity.UserID, peerID, limit, before)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewMessageList(m, hasMore))
}

func (h *Handler) handleMarkMessageRead(c echo.Context) error {
	identity := identityFrom(c)
	id := c.Param("id")

	m, err := h.store.Messages().FindByID(id)
	if err != nil && storage.IsNotFound(err) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "message not found"})
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	// Only the receiver may flip a message to read.
	if m.ReceiverID != identity.UserID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "message not found"})
	}

	m, err = h.store.Messages().UpdateStatus(id, model.MessageStatusRead)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewMessage(m))
}
