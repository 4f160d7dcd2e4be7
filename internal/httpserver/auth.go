package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func badRequest(msg string) error {
	return fmt.Errorf("%s: %w", msg, domain.ErrValidation)
}

// bindJSON decodes the request body, reporting malformed payloads as
// validation failures.
func (h *handlers) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, h.logger, badRequest("invalid request body"))
		return false
	}
	return true
}

func (h *handlers) register(c *gin.Context) {
	var req usersvc.RegisterInput
	if !h.bindJSON(c, &req) {
		return
	}
	session, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusCreated, "user registered successfully", session)
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	session, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "login successful", session)
}

func (h *handlers) me(c *gin.Context) {
	u, err := h.Auth.Me(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, u)
}
