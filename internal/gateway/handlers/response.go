// Package handlers contains the HTTP surface of the gateway.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alltech-shop/internal/auth"
	"alltech-shop/internal/mirror"
	"alltech-shop/internal/models"
	"alltech-shop/internal/services/inventory"
	"alltech-shop/internal/services/orders"
	"alltech-shop/internal/services/reports"
)

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// failErr maps the service error taxonomy onto HTTP statuses.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, inventory.ErrInvalidInput),
		errors.Is(err, orders.ErrInvalidInput):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, mirror.ErrDuplicateName):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, mirror.ErrNotFound),
		errors.Is(err, orders.ErrOrderNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrInsufficientStock):
		fail(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, mirror.ErrIndexWrite):
		// The store write went through; the index is stale, not the data.
		fail(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrSessionNotFound):
		fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrAccessDenied):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, reports.ErrSessionExpired):
		fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, reports.ErrUpstream):
		fail(c, http.StatusBadGateway, err.Error())
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}

// kindFromPath resolves the :kind URL segment.
func kindFromPath(c *gin.Context) (models.Kind, bool) {
	kind, ok := models.KindFromParam(c.Param("kind"))
	if !ok {
		fail(c, http.StatusNotFound, "Unknown product kind: "+c.Param("kind"))
	}
	return kind, ok
}
