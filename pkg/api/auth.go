package api

import (
	"net/http"

	"github.com/labstack/echo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/akashbera009/kichu-kotha/pkg/api/resource"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

func (h *Handler) handleRegister(c echo.Context) error {
	r := &resource.RegisterResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	m, err := resource.ValidateRegister(r)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "registration failed"})
	}
	m.PasswordHash = string(hash)

	if err := h.store.Users().Create(m); err != nil {
		if storage.IsAlreadyExists(err) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "username already taken"})
		}
		log.Errorf("failed to create user: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "registration failed"})
	}

	token, err := h.verifier.Issue(m.ID)
	if err != nil {
		log.Errorf("failed to issue token: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "registration failed"})
	}

	return c.JSON(http.StatusCreated, resource.NewToken(token, resource.NewUser(m)))
}

func (h *Handler) handleLogin(c echo.Context) error {
	r := &resource.LoginResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	m, err := h.store.Users().FindByUsername(r.Username)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "login failed"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(r.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}

	token, err := h.verifier.Issue(m.ID)
	if err != nil {
		log.Errorf("failed to issue token: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "login failed"})
	}

	return c.JSON(http.StatusOK, resource.NewToken(token, resource.NewUser(m)))
}
