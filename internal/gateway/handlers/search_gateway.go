package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"alltech-shop/internal/auth"
	"alltech-shop/internal/search"
	"alltech-shop/internal/services/inventory"
	"alltech-shop/pkg/logger"
)

type SearchHTTPHandler struct {
	svc      *inventory.Service
	issuer   *auth.TokenIssuer
	opts     searchOptions
	upgrader websocket.Upgrader
	log      *logger.Logger
}

type searchOptions struct {
	limit int
}

func NewSearchHTTPHandler(svc *inventory.Service, issuer *auth.TokenIssuer, limit int, log *logger.Logger) *SearchHTTPHandler {
	if limit <= 0 {
		limit = 20
	}
	return &SearchHTTPHandler{
		svc:      svc,
		issuer:   issuer,
		opts:     searchOptions{limit: limit},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS layer in front.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.WithComponent("http"),
	}
}

// Search answers a one-shot query against the kind's index.
func (h *SearchHTTPHandler) Search(c *gin.Context) {
	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	query := c.Query("q")
	limit := h.opts.limit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	if query == "" {
		success(c, []interface{}{})
		return
	}

	hits, err := h.svc.Search(c.Request.Context(), kind, query, limit)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, hits)
}

type searchMessage struct {
	Query string `json:"query"`
}

// SearchSocket runs a search-as-you-type session over a websocket. The
// client sends {"query": ...} on every keystroke; debounced results come
// back as they resolve.
//
// Browsers cannot attach headers to a websocket upgrade, so the gateway
// token arrives as a token query parameter; an Authorization header is
// accepted for non-browser clients. The token is checked before the
// upgrade.
func (h *SearchHTTPHandler) SearchSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		fail(c, http.StatusUnauthorized, "Missing token")
		return
	}
	if _, err := h.issuer.Parse(token); err != nil {
		fail(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	kind, ok := kindFromPath(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ta := search.NewTypeahead(c.Request.Context(), h.svc.Writer(kind).Index(),
		search.DefaultDebounce, h.opts.limit)
	defer ta.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range ta.Results() {
			if err := conn.WriteJSON(result); err != nil {
				return
			}
		}
	}()

	for {
		var msg searchMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		ta.SetQuery(msg.Query)
	}

	ta.Close()
	<-done
}
