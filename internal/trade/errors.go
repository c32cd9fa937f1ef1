package trade

import "errors"

var (
	// ErrNotFound means no candidate or pool matched the request.
	ErrNotFound = errors.New("trade: not found")

	// ErrInsufficientResource means no wallet can fund the trade or there
	// is nothing to sell.
	ErrInsufficientResource = errors.New("trade: insufficient resource")
)
