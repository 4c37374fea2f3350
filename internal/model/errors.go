package model

import "errors"

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrUnknownSymbol      = errors.New("unknown symbol")
)
