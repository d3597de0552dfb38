package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"signal-market/internal/models"
	"signal-market/internal/services"
)

// PositionHandler serves bets, claims and per-user queries.
type PositionHandler struct {
	settlement *services.SettlementService
	positions  *services.PositionService
	payouts    *services.PayoutService
	queries    *services.QueryService
}

func NewPositionHandler(settlement *services.SettlementService, positions *services.PositionService, payouts *services.PayoutService, queries *services.QueryService) *PositionHandler {
	return &PositionHandler{
		settlement: settlement,
		positions:  positions,
		payouts:    payouts,
		queries:    queries,
	}
}

// PlaceBet stakes amount on a side of a market. The stake is collected
// from the caller's vault balance.
// POST /api/markets/:id/bets
func (h *PositionHandler) PlaceBet(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	id, ok := marketIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Side   *uint8 `json:"side" binding:"required"`
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

	position, err := h.settlement.PlaceBet(c.Request.Context(), caller, id, models.Side(*req.Side), amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    models.NewPositionView(position),
	})
}

// ClaimPayout pays out the caller's winning position.
// POST /api/markets/:id/claim
func (h *PositionHandler) ClaimPayout(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	id, ok := marketIDParam(c)
	if !ok {
		return
	}

	claim, err := h.settlement.ClaimPayout(c.Request.Context(), caller, id)
	switch {
	case errors.Is(err, services.ErrPayoutPending):
		// Claimed in the ledger; funds follow when custody recovers.
		c.JSON(http.StatusAccepted, gin.H{
			"success":        true,
			"data":           claim,
			"payout_pending": true,
		})
		return
	case err != nil:
		respondError(c, err)
		return
	}
	respondOK(c, claim)
}

// GetUserPosition returns a user's position on one market.
// GET /api/markets/:id/positions/:user
func (h *PositionHandler) GetUserPosition(c *gin.Context) {
	id, ok := marketIDParam(c)
	if !ok {
		return
	}
	user, ok := userParam(c)
	if !ok {
		return
	}

	position, err := h.queries.GetUserPosition(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, position)
}

// CanClaim reports whether a user could claim on a market right now.
// GET /api/markets/:id/can-claim/:user
func (h *PositionHandler) CanClaim(c *gin.Context) {
	id, ok := marketIDParam(c)
	if !ok {
		return
	}
	user, ok := userParam(c)
	if !ok {
		return
	}

	can, err := h.payouts.CanClaim(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"canClaim": can})
}

// GetUserPositions returns every position of a user.
// GET /api/users/:user/positions
func (h *PositionHandler) GetUserPositions(c *gin.Context) {
	user, ok := userParam(c)
	if !ok {
		return
	}

	positions, err := h.positions.GetUserPositions(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    positions,
		"count":   len(positions),
	})
}

// GetPortfolio summarises a user's positions.
// GET /api/users/:user/portfolio
func (h *PositionHandler) GetPortfolio(c *gin.Context) {
	user, ok := userParam(c)
	if !ok {
		return
	}

	portfolio, err := h.queries.Portfolio(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, portfolio)
}
