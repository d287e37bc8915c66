package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alltech-shop/internal/auth"
	"alltech-shop/internal/gateway/middleware"
	"alltech-shop/pkg/logger"
)

type AuthHTTPHandler struct {
	gate *auth.Gate
	log  *logger.Logger
}

func NewAuthHTTPHandler(gate *auth.Gate, log *logger.Logger) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		gate: gate,
		log:  log.WithComponent("http"),
	}
}

type loginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// Login exchanges a Firebase ID token for a gateway token.
func (h *AuthHTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.gate.Login(c.Request.Context(), req.IDToken)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, result)
}

// Logout discards the caller's session.
func (h *AuthHTTPHandler) Logout(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		fail(c, http.StatusUnauthorized, "No session")
		return
	}
	if err := h.gate.Logout(c.Request.Context(), claims.SessionID); err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"logged_out": true})
}

// IntroState reports whether the daily walkthrough was already shown.
func (h *AuthHTTPHandler) IntroState(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		fail(c, http.StatusUnauthorized, "No session")
		return
	}
	state, err := h.gate.IntroState(c.Request.Context(), claims.SessionID)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, state)
}

// MarkIntroShown stamps the walkthrough as shown for today.
func (h *AuthHTTPHandler) MarkIntroShown(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		fail(c, http.StatusUnauthorized, "No session")
		return
	}
	if err := h.gate.MarkIntroShown(c.Request.Context(), claims.SessionID); err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"shown": true})
}

// Me reports the caller's identity as seen by the gateway.
func (h *AuthHTTPHandler) Me(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		fail(c, http.StatusUnauthorized, "No session")
		return
	}
	success(c, gin.H{"uid": claims.UID, "role": claims.Role})
}
