package strategy

import (
	"sort"

	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// Strategy kind identifiers, resolved through the Registry.
const (
	TypeBuyAndHold       = "buy_and_hold"
	TypeSMACrossover     = "sma_crossover"
	TypeRSIMeanReversion = "rsi_mean_reversion"
	TypeMomentum         = "momentum"
)

// Strategy is the signal-generation contract the simulation loop consumes.
// GenerateSignals receives the per-symbol snapshot of one simulated step and
// returns the recommended signals in the order they should be applied.
// Implementations may keep per-symbol history between calls; a single
// instance serves exactly one run.
type Strategy interface {
	// Name returns the strategy identifier used in results and logs.
	Name() string
	// GenerateSignals produces the signals for one step. An error marks the
	// whole step as faulted; the loop logs it and moves on.
	GenerateSignals(snapshot types.DaySnapshot) ([]types.Signal, error)
}

// Constructor builds a strategy instance from its parameter map.
type Constructor func(params map[string]float64) (Strategy, error)

// Registry maps strategy type tags to constructors. No reflection: every
// variant is registered explicitly.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

// Register adds a constructor under a type tag.
func (r *Registry) Register(strategyType string, constructor Constructor) error {
	if _, exists := r.constructors[strategyType]; exists {
		return errors.Newf(errors.ErrCodeInvalidStrategyType, "strategy type %q already registered", strategyType)
	}

	r.constructors[strategyType] = constructor

	return nil
}

// Create instantiates the strategy selected by a StrategySpec.
func (r *Registry) Create(spec types.StrategySpec) (Strategy, error) {
	constructor, ok := r.constructors[spec.Type]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "unknown strategy type: %s", spec.Type)
	}

	instance, err := constructor(spec.Params)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyParams, err, "failed to construct strategy %s", spec.Type)
	}

	return instance, nil
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// DefaultRegistry returns a registry with all built-in strategies.
func DefaultRegistry() *Registry {
	registry := NewRegistry()

	// Registration of built-ins cannot collide.
	_ = registry.Register(TypeBuyAndHold, NewBuyAndHold)
	_ = registry.Register(TypeSMACrossover, NewSMACrossover)
	_ = registry.Register(TypeRSIMeanReversion, NewRSIMeanReversion)
	_ = registry.Register(TypeMomentum, NewMomentum)

	return registry
}

// sortedSymbols returns the snapshot's symbols in lexical order so that
// signal emission order is deterministic across runs.
func sortedSymbols(snapshot types.DaySnapshot) []string {
	symbols := make([]string, 0, len(snapshot))
	for symbol := range snapshot {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// paramOr reads a parameter with a fallback default.
func paramOr(params map[string]float64, key string, fallback float64) float64 {
	if value, ok := params[key]; ok {
		return value
	}

	return fallback
}
