package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"alltech-shop/internal/models"
	"alltech-shop/internal/pagination"
	"alltech-shop/internal/services/inventory"
	"alltech-shop/pkg/logger"
)

type InventoryHTTPHandler struct {
	svc *inventory.Service
	log *logger.Logger
}

func NewInventoryHTTPHandler(svc *inventory.Service, log *logger.Logger) *InventoryHTTPHandler {
	return &InventoryHTTPHandler{
		svc: svc,
		log: log.WithComponent("http"),
	}
}

type itemRequest struct {
	ProductName string          `json:"product_name" binding:"required"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (r itemRequest) item() models.InventoryItem {
	return models.InventoryItem{
		ProductName: r.ProductName,
		Quantity:    r.Quantity,
		Price:       r.Price,
	}
}

func pageSize(c *gin.Context) int {
	size, err := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || size <= 0 {
		return pagination.DefaultPageSize
	}
	return size
}

// ListItems returns one page of the collection in key order. The cursor
// comes back as next_after and goes out again as the after query param.
func (h *InventoryHTTPHandler) ListItems(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	page, err := h.svc.ListPage(c.Request.Context(), kind, c.Query("after"), pageSize(c))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, page)
}

func (h *InventoryHTTPHandler) GetItem(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	item, err := h.svc.Get(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, item)
}

func (h *InventoryHTTPHandler) CreateItem(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	id, err := h.svc.Add(c.Request.Context(), kind, req.item())
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"id": id})
}

func (h *InventoryHTTPHandler) UpdateItem(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.Update(c.Request.Context(), kind, c.Param("id"), req.item()); err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"id": c.Param("id")})
}

func (h *InventoryHTTPHandler) DeleteItem(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), kind, c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"id": c.Param("id")})
}

// Customers suggests customer names from the kind's receipt history.
func (h *InventoryHTTPHandler) Customers(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	names, err := h.svc.Customers(c.Request.Context(), kind)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, names)
}

// FeedItems streams live snapshots of the first pages of the collection
// as server-sent events. Each event carries the full loaded window.
func (h *InventoryHTTPHandler) FeedItems(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	pager := h.svc.NewPager(c.Request.Context(), kind, pageSize(c))
	defer pager.Close()
	pager.LoadMore()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, open := <-pager.Updates():
			if !open {
				return false
			}
			items := make([]models.InventoryItem, 0, len(snap.Items))
			for _, e := range snap.Items {
				var item models.InventoryItem
				if err := json.Unmarshal(e.Data, &item); err != nil {
					h.log.Warn("skipping undecodable item in feed", "kind", kind.Name, "id", e.Key, "error", err)
					continue
				}
				item.ID = e.Key
				items = append(items, item)
			}
			c.SSEvent("snapshot", gin.H{"items": items, "has_more": snap.HasMore})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	if err := pager.Err(); err != nil {
		h.log.Warn("item feed ended with error", "kind", kind.Name, "error", err)
	}
}
