package api

import (
	"net/http"

	"github.com/labstack/echo"

	"github.com/akashbera009/kichu-kotha/pkg/api/resource"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

func (h *Handler) handleGetMe(c echo.Context) error {
	identity := identityFrom(c)

	m, err := h.store.Users().FindByID(identity.UserID)
	if err != nil && storage.IsNotFound(err) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewUser(m))
}

func (h *Handler) handleGetUserByID(c echo.Context) error {
	m, err := h.store.Users().FindByID(c.Param("id"))
	if err != nil && storage.IsNotFound(err) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewUser(m))
}

func (h *Handler) handleSearchUsers(c echo.Context) error {
	identity := identityFrom(c)

	username := c.QueryParam("username")
	if username == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "username query is required"})
	}

	m, err := h.store.Users().Search(username, identity.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewUserList(m))
}

func (h *Handler) handleFetchContacts(c echo.Context) error {
	identity := identityFrom(c)

	m, err := h.store.Users().Contacts(identity.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewUserList(m))
}

func (h *Handler) handleAddContact(c echo.Context) error {
	identity := identityFrom(c)

	r := &resource.ContactResource{}
	if err := c.Bind(r); err != nil || r.ContactID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "contactId is required"})
	}
	if r.ContactID == identity.UserID {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cannot add yourself"})
	}

	if _, err := h.store.Users().FindByID(r.ContactID); err != nil {
		if storage.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, err)
	}

	if err := h.store.Users().AddContact(identity.UserID, r.ContactID); err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusNoContent, nil)
}

func (h *Handler) handleAddPushToken(c echo.Context) error {
	identity := identityFrom(c)

	r := &resource.PushTokenResource{}
	if err := c.Bind(r); err != nil || r.Token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "token is required"})
	}

	if err := h.store.Users().AddPushToken(identity.UserID, r.Token); err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusNoContent, nil)
}
