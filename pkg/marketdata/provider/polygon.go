package provider

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// PolygonClient fetches daily aggregates from the Polygon REST API.
type PolygonClient struct {
	client *polygon.Client
}

// NewPolygonClient creates a Polygon-backed provider.
func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingConfiguration, "polygon provider requires an API key")
	}

	return &PolygonClient{client: polygon.New(apiKey)}, nil
}

// GetBars implements Provider.
func (c *PolygonClient) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := c.client.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.Bar{
			Symbol: symbol,
			Date:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataFetchFailed, iter.Err(), "failed to fetch polygon aggregates for %s", symbol)
	}

	return bars, nil
}
