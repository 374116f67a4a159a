package types

// SignalAction is the action a strategy recommends for a symbol at a step.
type SignalAction string

const (
	// SignalActionBuy tells the ledger to open or extend a position.
	SignalActionBuy SignalAction = "BUY"
	// SignalActionSell tells the ledger to reduce a position.
	SignalActionSell SignalAction = "SELL"
	// SignalActionHold tells the ledger to do nothing.
	SignalActionHold SignalAction = "HOLD"
)

// Signal is a strategy's recommendation for one symbol at one step.
type Signal struct {
	Symbol   string       `json:"symbol" yaml:"symbol"`
	Action   SignalAction `json:"action" yaml:"action"`
	Quantity int64        `json:"quantity" yaml:"quantity"`
}
