package ledger

import "errors"

// Precondition failures. Every mutating operation returns exactly one of
// these (wrapped or bare) when it rejects a call, and retains no state.
var (
	ErrUnauthorized    = errors.New("caller is not the owner")
	ErrInvalidDeadline = errors.New("deadline must be in the future")
	ErrEmptyQuestion   = errors.New("question must not be blank")
	ErrMarketNotFound  = errors.New("market not found")
	ErrAlreadyResolved = errors.New("market already resolved")
	ErrTooEarly        = errors.New("market deadline has not passed")
	ErrMarketNotActive = errors.New("market is not accepting bets")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidSide     = errors.New("side must be 0 (yes) or 1 (no)")
	ErrSideMismatch    = errors.New("position already held on the other side")
	ErrNotResolved     = errors.New("market is not resolved")
	ErrNoPosition      = errors.New("no position on this market")
	ErrNotWinner       = errors.New("position is not on the winning side")
	ErrAlreadyClaimed  = errors.New("payout already claimed")
	ErrAmountOverflow  = errors.New("amount exceeds ledger capacity")
	ErrInvalidAddress  = errors.New("invalid address")

	// ErrInsufficientFunds is returned by custody when a stake exceeds the
	// payer's available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

var reasons = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, "UNAUTHORIZED"},
	{ErrInvalidDeadline, "INVALID_DEADLINE"},
	{ErrEmptyQuestion, "EMPTY_QUESTION"},
	{ErrMarketNotFound, "MARKET_NOT_FOUND"},
	{ErrAlreadyResolved, "ALREADY_RESOLVED"},
	{ErrTooEarly, "TOO_EARLY"},
	{ErrMarketNotActive, "MARKET_NOT_ACTIVE"},
	{ErrInvalidAmount, "INVALID_AMOUNT"},
	{ErrInvalidSide, "INVALID_SIDE"},
	{ErrSideMismatch, "SIDE_MISMATCH"},
	{ErrNotResolved, "NOT_RESOLVED"},
	{ErrNoPosition, "NO_POSITION"},
	{ErrNotWinner, "NOT_WINNER"},
	{ErrAlreadyClaimed, "ALREADY_CLAIMED"},
	{ErrAmountOverflow, "AMOUNT_OVERFLOW"},
	{ErrInvalidAddress, "INVALID_ADDRESS"},
	{ErrInsufficientFunds, "INSUFFICIENT_FUNDS"},
}

// Reason returns the stable reason code of err, or "INTERNAL" when err is
// not a ledger precondition failure.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return "INTERNAL"
}

// IsRejection reports whether err is a precondition failure rather than an
// infrastructure error.
func IsRejection(err error) bool {
	return Reason(err) != "INTERNAL"
}
