package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ordersvc "storefront/internal/service/order"
)

const idempotencyHeader = "Idempotency-Key"

type orderStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type paymentRequest struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}

// placeOrder answers 201 for a new order and 200 when an Idempotency-Key
// replays an earlier one.
func (h *handlers) placeOrder(c *gin.Context) {
	var in ordersvc.PlaceInput
	if !h.bindJSON(c, &in) {
		return
	}
	in.PlacementToken = c.GetHeader(idempotencyHeader)

	order, created, err := h.Orders.PlaceOrder(c.Request.Context(), caller(c), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !created {
		respondMessage(c, http.StatusOK, "order already placed", order)
		return
	}
	respondMessage(c, http.StatusCreated, "order placed successfully", order)
}

func (h *handlers) myOrders(c *gin.Context) {
	orders, err := h.Orders.ListMine(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, orders)
}

func (h *handlers) getOrder(c *gin.Context) {
	order, err := h.Orders.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, order)
}

func (h *handlers) cancelOrder(c *gin.Context) {
	order, err := h.Orders.CancelOrder(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "order cancelled successfully", order)
}

func (h *handlers) updatePayment(c *gin.Context) {
	var req paymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.Orders.UpdatePaymentStatus(c.Request.Context(), caller(c), c.Param("id"), req.PaymentID, req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "payment status updated", order)
}

func (h *handlers) allOrders(c *gin.Context) {
	orders, page, err := h.Orders.ListAll(c.Request.Context(), caller(c), c.Query("status"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondPage(c, orders, page)
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.Orders.UpdateStatus(c.Request.Context(), caller(c), c.Param("id"), req.Status, req.Note)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "order status updated", order)
}
