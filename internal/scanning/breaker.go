package scanning

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig controls when the breaker opens and for how long
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultBreakerConfig opens after 5 upstream failures in a row for 30s
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

// Breaker wraps a Scanner with a circuit breaker. It never retries: a call
// either reaches the model once or fails fast while the breaker is open.
type Breaker struct {
	next    Scanner
	breaker *gobreaker.CircuitBreaker[*ExtractionResult]
}

// NewBreaker wraps next
func NewBreaker(name string, next Scanner, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// A caller giving up or a bad upload says nothing about the model's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrUnsupportedImage)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Scanner circuit breaker state changed", "scanner", name, "from", from.String(), "to", to.String())
		},
	}

	return &Breaker{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*ExtractionResult](settings),
	}
}

// ScanReceipt forwards to the wrapped scanner unless the breaker is open
func (b *Breaker) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ExtractionResult, error) {
	return b.breaker.Execute(func() (*ExtractionResult, error) {
		return b.next.ScanReceipt(ctx, imageData, contentType)
	})
}

// Close closes the wrapped scanner
func (b *Breaker) Close() error {
	return b.next.Close()
}
