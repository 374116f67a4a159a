package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNoMarketData, "no bars available")
	assert.Equal(t, ErrCodeNoMarketData, err.Code)
	assert.Equal(t, "[200] no bars available", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeNoMarketData, "no bars for %s", "AAPL")
	assert.Equal(t, "[200] no bars for AAPL", err.Error())
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrCodeSaveFailed, "failed to save run", cause)

	assert.Equal(t, "[601] failed to save run: disk full", err.Error())
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, Is(err, cause))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeInsufficientCash, GetCode(New(ErrCodeInsufficientCash, "x")))
	assert.Equal(t, ErrCodeUnknown, GetCode(fmt.Errorf("plain error")))
	assert.Equal(t, ErrCodeUnknown, GetCode(nil))
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(ErrCodeRunNotFound, "missing"))

	assert.True(t, HasCode(wrapped, ErrCodeRunNotFound))
	assert.False(t, HasCode(wrapped, ErrCodeSaveFailed))
}
