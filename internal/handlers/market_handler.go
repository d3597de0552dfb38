package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"signal-market/internal/models"
	"signal-market/internal/services"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// MarketHandler serves market lifecycle and market-level queries.
type MarketHandler struct {
	markets *services.MarketService
	payouts *services.PayoutService
	queries *services.QueryService
}

func NewMarketHandler(markets *services.MarketService, payouts *services.PayoutService, queries *services.QueryService) *MarketHandler {
	return &MarketHandler{markets: markets, payouts: payouts, queries: queries}
}

// GetMarkets returns a page of markets, optionally filtered by status.
// GET /api/markets?status=&limit=&offset=
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	var status *models.MarketStatus
	if raw := c.Query("status"); raw != "" {
		s, err := models.ParseMarketStatus(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		status = &s
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		badRequest(c, "invalid limit")
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		badRequest(c, "invalid offset")
		return
	}

	markets, err := h.queries.ListMarkets(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    markets,
		"count":   len(markets),
	})
}

// GetMarketCounter returns how many markets have been created.
// GET /api/markets/counter
func (h *MarketHandler) GetMarketCounter(c *gin.Context) {
	n, err := h.queries.MarketCounter(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"marketCounter": n})
}

// GetMarketByID returns the market view.
// GET /api/markets/:id
func (h *MarketHandler) GetMarketByID(c *gin.Context) {
	id, ok := marketIDParam(c)
	if !ok {
		return
	}
	market, err := h.queries.GetMarket(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, market)
}

// GetOdds returns the implied odds of each side.
// GET /api/markets/:id/odds
func (h *MarketHandler) GetOdds(c *gin.Context) {
	id, ok := marketIDParam(c)
	if !ok {
		return
	}
	odds, err := h.queries.ImpliedOdds(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, odds)
}

// GetPayoutPreview previews the payout of a stake at current pools.
// GET /api/markets/:id/payout?side=&amount=
func (h *MarketHandler) GetPayoutPreview(c *gin.Context) {
	id, ok := marketIDParam(c)
	if !ok {
		return
	}
	side, err := strconv.ParseUint(c.Query("side"), 10, 8)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "side must be 0 or 1", "reason": "INVALID_SIDE"})
		return
	}
	amount, ok := parseAmount(c, c.Query("amount"))
	if !ok {
		return
	}

	payout, err := h.payouts.CalculatePayout(c.Request.Context(), id, models.Side(side), amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"payout": payout})
}

// CreateMarket opens a new market (owner only)
// POST /api/markets
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	var req struct {
		Question string `json:"question"`
		Deadline int64  `json:"deadline" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	id, err := h.markets.CreateMarket(c.Request.Context(), caller, req.Question, req.Deadline)
	if err != nil {
		respondError(c, err)
		return
	}

	market, err := h.queries.GetMarket(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    market,
	})
}

// ResolveMarket records the outcome of a market (owner only)
// POST /api/markets/:id/resolve
func (h *MarketHandler) ResolveMarket(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	id, ok := marketIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Outcome *bool `json:"outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.markets.ResolveMarket(c.Request.Context(), caller, id, *req.Outcome); err != nil {
		respondError(c, err)
		return
	}

	market, err := h.queries.GetMarket(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, market)
}

// GetStats returns platform-wide aggregates.
// GET /api/stats
func (h *MarketHandler) GetStats(c *gin.Context) {
	stats, err := h.queries.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}

// GetOwner returns the owner address.
// GET /api/owner
func (h *MarketHandler) GetOwner(c *gin.Context) {
	respondOK(c, gin.H{"owner": h.queries.Owner()})
}
