package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type roleRequest struct {
	Role string `json:"role"`
}

func (h *handlers) stats(c *gin.Context) {
	stats, err := h.Admin.Stats(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (h *handlers) listUsers(c *gin.Context) {
	users, page, err := h.Admin.ListUsers(c.Request.Context(), caller(c), queryInt(c, "page"), queryInt(c, "limit"), c.Query("search"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondPage(c, users, page)
}

func (h *handlers) updateUserRole(c *gin.Context) {
	var req roleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	u, err := h.Admin.UpdateUserRole(c.Request.Context(), caller(c), c.Param("id"), req.Role)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "user role updated", u)
}

func (h *handlers) deactivateUser(c *gin.Context) {
	if err := h.Admin.DeactivateUser(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "user deactivated", nil)
}

func (h *handlers) deleteUser(c *gin.Context) {
	if err := h.Admin.DeleteUser(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "user deleted", nil)
}
