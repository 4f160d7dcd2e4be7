package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) getWishlist(c *gin.Context) {
	products, err := h.Wishlist.Get(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, products)
}

func (h *handlers) addToWishlist(c *gin.Context) {
	products, err := h.Wishlist.Add(c.Request.Context(), caller(c), c.Param("productId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "product added to wishlist", products)
}

func (h *handlers) removeFromWishlist(c *gin.Context) {
	products, err := h.Wishlist.Remove(c.Request.Context(), caller(c), c.Param("productId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "product removed from wishlist", products)
}
