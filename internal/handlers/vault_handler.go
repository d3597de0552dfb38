package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signal-market/internal/custody"
	"signal-market/internal/fixedpoint"
)

const journalPageSize = 50

// VaultHandler exposes custody balances and the test-funds faucet.
type VaultHandler struct {
	vault     *custody.Vault
	faucet    bool
	faucetMax fixedpoint.Amount
}

// NewVaultHandler creates a VaultHandler. The faucet is served only when
// faucetEnabled is set and credits at most faucetMax per request.
func NewVaultHandler(vault *custody.Vault, faucetEnabled bool, faucetMax fixedpoint.Amount) *VaultHandler {
	return &VaultHandler{vault: vault, faucet: faucetEnabled, faucetMax: faucetMax}
}

// GetBalance returns the caller's available balance and recent journal.
// GET /api/vault/balance
func (h *VaultHandler) GetBalance(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	balance, err := h.vault.Balance(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	journal, err := h.vault.Journal(c.Request.Context(), caller, journalPageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"address":      caller,
		"available":    balance,
		"transactions": journal,
	})
}

// Faucet credits the caller with test funds.
// POST /api/vault/faucet
func (h *VaultHandler) Faucet(c *gin.Context) {
	if !h.faucet {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "faucet is disabled", "reason": "FAUCET_DISABLED"})
		return
	}
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	var req struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}
	if amount.IsZero() || amount > h.faucetMax {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "amount must be between 1 and " + h.faucetMax.Micros(),
			"reason": "INVALID_AMOUNT",
		})
		return
	}

	ref, err := h.vault.Deposit(c.Request.Context(), caller, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	balance, err := h.vault.Balance(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"reference": ref,
		"available": balance,
	})
}
