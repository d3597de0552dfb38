package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signal-market/internal/auth"
	"signal-market/internal/services"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// GetMessage issues a single-use challenge a wallet must sign to log in.
// GET /auth/message
func (h *AuthHandler) GetMessage(c *gin.Context) {
	challenge, err := h.authService.Challenge(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, challenge)
}

// WalletLogin authenticates a wallet by a signature over the challenge
// message issued for nonce. Each nonce logs in once.
// EVM wallets send a personal_sign hex signature; Solana wallets send a
// base58 or hex ed25519 signature.
// POST /auth/wallet
func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		Nonce         string `json:"nonce" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.authService.ProcessWalletLogin(c.Request.Context(), req.WalletAddress, req.Signature, req.Nonce)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout handles user logout (stateless JWT, client-side only)
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// GetMe returns the currently authenticated user's profile
// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
