package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.Cart.GetOrCreate(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.ProductID == "" {
		writeError(c, h.logger, badRequest("productId required"))
		return
	}
	cart, err := h.Cart.AddItem(c.Request.Context(), caller(c), req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "item added to cart", cart)
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cart, err := h.Cart.UpdateItem(c.Request.Context(), caller(c), c.Param("itemId"), req.Quantity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	cart, err := h.Cart.RemoveItem(c.Request.Context(), caller(c), c.Param("itemId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

func (h *handlers) clearCart(c *gin.Context) {
	cart, err := h.Cart.Clear(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "cart cleared", cart)
}
