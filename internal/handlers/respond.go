package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"signal-market/internal/auth"
	"signal-market/internal/fixedpoint"
	"signal-market/internal/ledger"
	"signal-market/internal/repository"
	"signal-market/internal/services"
	"signal-market/internal/wallet"
)

var reasonStatus = map[string]int{
	"UNAUTHORIZED":       http.StatusForbidden,
	"MARKET_NOT_FOUND":   http.StatusNotFound,
	"NO_POSITION":        http.StatusNotFound,
	"ALREADY_RESOLVED":   http.StatusConflict,
	"ALREADY_CLAIMED":    http.StatusConflict,
	"SIDE_MISMATCH":      http.StatusConflict,
	"MARKET_NOT_ACTIVE":  http.StatusConflict,
	"TOO_EARLY":          http.StatusConflict,
	"NOT_RESOLVED":       http.StatusConflict,
	"NOT_WINNER":         http.StatusConflict,
	"INVALID_DEADLINE":   http.StatusBadRequest,
	"EMPTY_QUESTION":     http.StatusBadRequest,
	"INVALID_AMOUNT":     http.StatusBadRequest,
	"INVALID_SIDE":       http.StatusBadRequest,
	"INVALID_ADDRESS":    http.StatusBadRequest,
	"AMOUNT_OVERFLOW":    http.StatusBadRequest,
	"INSUFFICIENT_FUNDS": http.StatusPaymentRequired,
}

// errorStatus maps err to an HTTP status and a stable reason code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, wallet.ErrBadSignature):
		return http.StatusUnauthorized, "BAD_SIGNATURE"
	case errors.Is(err, services.ErrInvalidNonce):
		return http.StatusUnauthorized, "INVALID_NONCE"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	}

	reason := ledger.Reason(err)
	if status, ok := reasonStatus[reason]; ok {
		return status, reason
	}
	return http.StatusInternalServerError, reason
}

// respondError writes the {"error","reason"} body for err. Internal errors
// are not echoed to the client.
func respondError(c *gin.Context, err error) {
	status, reason := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "reason": reason})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "reason": "BAD_REQUEST"})
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// marketIDParam parses the :id path parameter.
func marketIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid market id")
		return 0, false
	}
	return id, true
}

// userParam canonicalises the :user path parameter.
func userParam(c *gin.Context) (string, bool) {
	user, _, err := wallet.Canonical(c.Param("user"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return user, true
}

// parseAmount reads a micro-unit integer string. Any malformed or negative
// amount reads as INVALID_AMOUNT; an out-of-range one as AMOUNT_OVERFLOW.
func parseAmount(c *gin.Context, s string) (fixedpoint.Amount, bool) {
	amount, err := fixedpoint.ParseMicros(s)
	switch {
	case errors.Is(err, fixedpoint.ErrOverflow):
		respondError(c, ledger.ErrAmountOverflow)
		return 0, false
	case err != nil:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "INVALID_AMOUNT"})
		return 0, false
	}
	return amount, true
}

func callerAddress(c *gin.Context) (string, bool) {
	addr, ok := auth.GetWalletAddress(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return addr, ok
}
