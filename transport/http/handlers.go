package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/service"
)

// ChallengeCookie carries the login challenge token between the challenge
// request and the login submission.
const ChallengeCookie = "warden_challenge"

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// Challenge issues a login challenge and sets it as a cookie so the
// client can embed it into the signed message.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Account string `json:"account"`
	}
	// The account is optional; an anonymous challenge binds at login.
	_ = c.ShouldBindJSON(&req)

	token, err := h.authService.CreateChallenge(req.Account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.SetCookie(ChallengeCookie, token, 300, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Login verifies the submitted signature set against on-chain authority
// and issues session tokens.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Username        string            `json:"username" binding:"required"`
		Signatures      map[string]string `json:"signatures" binding:"required"`
		LoginType       string            `json:"loginType"`
		HivesignerToken string            `json:"hivesignerToken"`
		Level           string            `json:"level"`
		Challenge       string            `json:"challenge"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	challenge := req.Challenge
	if challenge == "" {
		challenge, _ = c.Cookie(ChallengeCookie)
	}
	if challenge == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing login challenge"})
		return
	}

	level := core.AuthorityLevel(req.Level)
	if req.Level == "" {
		level = core.LevelPosting
	}
	if !level.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid authority level"})
		return
	}

	sigs := make(core.SignatureSet, len(req.Signatures))
	for lvl, sig := range req.Signatures {
		sigs[core.AuthorityLevel(lvl)] = sig
	}

	accessToken, refreshToken, err := h.authService.Login(c.Request.Context(), challenge, req.Username, level, sigs)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Authentication failed"

		switch {
		case errors.Is(err, core.ErrInvalidChallenge), errors.Is(err, core.ErrInvalidToken):
			status = http.StatusBadRequest
			msg = "Invalid challenge token"
		case errors.Is(err, core.ErrTokenExpired):
			status = http.StatusBadRequest
			msg = "Challenge token expired"
		case errors.Is(err, core.ErrChallengeUsed):
			status = http.StatusConflict
			msg = "Challenge already used"
		case errors.Is(err, core.ErrUnknownAccount):
			status = http.StatusBadRequest
			msg = "Unknown account"
		case errors.Is(err, core.ErrVerificationFailed):
			status = http.StatusUnauthorized
			msg = "Signatures do not satisfy account authority"
		}

		c.JSON(status, gin.H{"error": msg})
		return
	}

	// The challenge is consumed; drop the cookie.
	c.SetCookie(ChallengeCookie, "", -1, "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    300, // 5 minutes in seconds
	})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Failed to refresh tokens"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			status = http.StatusBadRequest
			msg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			status = http.StatusUnauthorized
			msg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			status = http.StatusUnauthorized
			msg = "Refresh token has been invalidated"
		}

		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    300,
	})
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
			return
		}
		if errors.Is(err, core.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	account, exists := c.Get("account")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account": account,
		"level":   c.GetString("level"),
	})
}

// Authorize checks if a user is authorized
func (h *AuthHandlers) Authorize(c *gin.Context) {
	account, exists := c.Get("account")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"account":    account,
	})
}
