package model

type TradeErrorKind int

const (
	KindNone TradeErrorKind = iota
	KindInsufficientFunds
	KindInsufficientShares
	KindInvalidQuantity
	KindInvalidType
	KindUnknownSymbol
)

func (k TradeErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInsufficientShares:
		return "insufficient_shares"
	case KindInvalidQuantity:
		return "invalid_quantity"
	case KindInvalidType:
		return "invalid_type"
	case KindUnknownSymbol:
		return "unknown_symbol"
	default:
		return "unknown"
	}
}

// TradeResult is the outcome of a trade request. Transaction is set only on success,
// Kind only on failure.
type TradeResult struct {
	Success     bool
	Kind        TradeErrorKind
	Message     string
	Transaction *Transaction
}
