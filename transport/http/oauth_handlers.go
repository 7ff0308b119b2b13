package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/oauth"
	"github.com/hivelink/warden/service"
)

// OAuthHandlers serves the provider library's login and consent
// interaction routes.
type OAuthHandlers struct {
	controller  *oauth.Controller
	authService *service.AuthService
}

// NewOAuthHandlers creates new interaction handlers.
func NewOAuthHandlers(controller *oauth.Controller, authService *service.AuthService) *OAuthHandlers {
	return &OAuthHandlers{controller: controller, authService: authService}
}

// LoginPrompt enters the login interaction. A visitor with a live session
// completes immediately; otherwise the login UI is rendered.
func (h *OAuthHandlers) LoginPrompt(c *gin.Context) {
	uid := c.Param("uid")
	account := sessionAccount(c, h.authService)

	if account != "" {
		redirect, err := h.controller.Login(c.Request.Context(), uid, account, account)
		if err != nil {
			h.interactionError(c, err)
			return
		}
		c.Redirect(http.StatusFound, redirect)
		return
	}

	c.JSON(http.StatusOK, gin.H{"uid": uid, "prompt": core.PromptLogin})
}

// LoginSubmit completes the login interaction after the login UI ran the
// signing flow and a session was issued.
func (h *OAuthHandlers) LoginSubmit(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	uid := c.Param("uid")
	account := sessionAccount(c, h.authService)

	redirect, err := h.controller.Login(c.Request.Context(), uid, account, req.Username)
	if err != nil {
		h.interactionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirect_to": redirect})
}

// ConsentPrompt enters the consent interaction. Prior decisions
// short-circuit; an undecided pair gets the client metadata to render.
func (h *OAuthHandlers) ConsentPrompt(c *gin.Context) {
	uid := c.Param("uid")
	account := sessionAccount(c, h.authService)

	outcome, err := h.controller.Consent(c.Request.Context(), uid, account)
	if err != nil {
		h.interactionError(c, err)
		return
	}

	if outcome.Redirect != "" {
		c.Redirect(http.StatusFound, outcome.Redirect)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uid": uid,
		"client": gin.H{
			"id":         outcome.Prompt.Client.ID,
			"name":       outcome.Prompt.Client.Name,
			"logo_uri":   outcome.Prompt.Client.LogoURI,
			"policy_uri": outcome.Prompt.Client.PolicyURI,
		},
		"scopes": outcome.Prompt.Scopes,
		"claims": outcome.Prompt.Claims,
	})
}

// ConsentSubmit records the explicit yes/no decision.
func (h *OAuthHandlers) ConsentSubmit(c *gin.Context) {
	var req struct {
		OAuthClientID string `json:"oauthClientId" binding:"required"`
		Consent       *bool  `json:"consent" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	uid := c.Param("uid")
	account := sessionAccount(c, h.authService)

	redirect, err := h.controller.Decide(c.Request.Context(), uid, account, req.OAuthClientID, *req.Consent)
	if err != nil {
		h.interactionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirect_to": redirect})
}

// interactionError maps controller failures to OAuth protocol errors;
// raw internals never reach the browser.
func (h *OAuthHandlers) interactionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrProtocolState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
	case errors.Is(err, core.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access_denied"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
	}
}
