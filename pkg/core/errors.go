package core

import "errors"

// Errors
var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrOrderNotFound     = errors.New("order not found")
	ErrNoLiquidity       = errors.New("no liquidity")
	ErrStaleReference    = errors.New("stale arena reference")
	ErrCapacityExhausted = errors.New("arena capacity exhausted")
)
