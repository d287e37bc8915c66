package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"alltech-shop/internal/models"
	"alltech-shop/internal/services/orders"
	"alltech-shop/pkg/logger"
)

type OrdersHTTPHandler struct {
	svc *orders.Service
	log *logger.Logger
}

func NewOrdersHTTPHandler(svc *orders.Service, log *logger.Logger) *OrdersHTTPHandler {
	return &OrdersHTTPHandler{
		svc: svc,
		log: log.WithComponent("http"),
	}
}

type sellRequest struct {
	Price    decimal.Decimal `json:"price" binding:"required"`
	Customer string          `json:"customer_name" binding:"required"`
	// Quantity only applies to accessories; screens always sell one unit.
	Quantity int `json:"quantity"`
	// Save parks a screen sale instead of completing it.
	Save bool `json:"save"`
}

// SellItem sells the item in the URL. Screens sell one unit and may be
// saved for later completion; accessories sell a quantity and always
// complete immediately.
func (h *OrdersHTTPHandler) SellItem(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var (
		order models.Order
		err   error
	)
	switch kind.Name {
	case models.Screens.Name:
		order, err = h.svc.SellScreen(c.Request.Context(), orders.SellScreenRequest{
			ID:       c.Param("id"),
			Price:    req.Price,
			Customer: req.Customer,
			Save:     req.Save,
		})
	default:
		order, err = h.svc.SellAccessory(c.Request.Context(), orders.SellAccessoryRequest{
			ID:       c.Param("id"),
			Quantity: req.Quantity,
			Price:    req.Price,
			Customer: req.Customer,
		})
	}
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, order)
}

// ListSaved returns the parked screen orders, newest first.
func (h *OrdersHTTPHandler) ListSaved(c *gin.Context) {
	saved, err := h.svc.ListSaved(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, saved)
}

// CompleteSaved finalizes a parked order into the completed ledgers.
func (h *OrdersHTTPHandler) CompleteSaved(c *gin.Context) {
	order, err := h.svc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, order)
}

// RefundSaved cancels a parked order and restores its stock.
func (h *OrdersHTTPHandler) RefundSaved(c *gin.Context) {
	if err := h.svc.Refund(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"id": c.Param("id")})
}
