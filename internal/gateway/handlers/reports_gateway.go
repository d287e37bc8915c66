package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alltech-shop/internal/auth"
	"alltech-shop/internal/gateway/middleware"
	"alltech-shop/internal/services/reports"
	"alltech-shop/pkg/logger"
)

// ReportsHTTPHandler proxies the backend's report endpoints with the
// caller's session tokens.
type ReportsHTTPHandler struct {
	gate   *auth.Gate
	client *reports.Client
	log    *logger.Logger
}

func NewReportsHTTPHandler(gate *auth.Gate, client *reports.Client, log *logger.Logger) *ReportsHTTPHandler {
	return &ReportsHTTPHandler{
		gate:   gate,
		client: client,
		log:    log.WithComponent("http"),
	}
}

func (h *ReportsHTTPHandler) tokenSource(c *gin.Context) (reports.TokenSource, bool) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		fail(c, http.StatusUnauthorized, "No session")
		return nil, false
	}
	return h.gate.TokenSource(claims.SessionID), true
}

func (h *ReportsHTTPHandler) Dashboard(c *gin.Context) {
	ts, ok := h.tokenSource(c)
	if !ok {
		return
	}

	payload, err := h.client.Dashboard(c.Request.Context(), ts)
	if err != nil {
		failErr(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// detailedReportTypes are the report names the backend serves. Anything
// else is rejected here rather than proxied into an arbitrary path.
var detailedReportTypes = map[string]bool{
	"lowstock": true,
	"sales":    true,
	"products": true,
}

// Detailed returns one page of a detailed report. The page query param
// carries the backend's own pagination URL from a previous response.
func (h *ReportsHTTPHandler) Detailed(c *gin.Context) {
	reportType := c.Param("type")
	if !detailedReportTypes[reportType] {
		fail(c, http.StatusBadRequest, "Unknown report type")
		return
	}

	ts, ok := h.tokenSource(c)
	if !ok {
		return
	}

	page, err := h.client.Detailed(c.Request.Context(), ts, reportType, c.Query("page"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, page)
}
