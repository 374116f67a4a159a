package provider

import (
	"context"
	"time"

	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
	ProviderAlpaca  ProviderType = "alpaca"
)

// Config carries provider credentials. Binance needs none for public kline
// data.
type Config struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// Provider fetches daily bars from an external market-data source. A range
// with no data yields an empty slice, not an error; errors are reserved for
// transport failures.
type Provider interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error)
}

// NewMarketDataProvider creates a provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType, config Config) (Provider, error) {
	switch providerType {
	case ProviderPolygon:
		return NewPolygonClient(config.APIKey)
	case ProviderBinance:
		return NewBinanceClient()
	case ProviderAlpaca:
		return NewAlpacaClient(config.APIKey, config.APISecret)
	default:
		return nil, errors.Newf(errors.ErrCodeProviderNotFound, "unsupported market data provider: %s", providerType)
	}
}
