package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Name string
	// MaxRequests is how many trial calls are let through while half-open.
	MaxRequests uint32
	// Interval clears the failure counts while closed. Zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration
	// FailureRatio trips the breaker once at least MinRequests were seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig opens after half of at least five calls fail and
// retries after 30 seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// BreakerPublisher guards a Publisher with a circuit breaker so an
// unreachable broker fails fast instead of stalling every request.
type BreakerPublisher struct {
	next    Publisher
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
	metrics *Metrics
	name    string
}

// NewBreakerPublisher wraps next. metrics may be nil.
func NewBreakerPublisher(next Publisher, cfg BreakerConfig, logger *slog.Logger, metrics *Metrics) *BreakerPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if metrics != nil {
				metrics.breakerState.WithLabelValues(name).Set(stateValue(to))
			}
		},
	}

	if metrics != nil {
		metrics.breakerState.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))
	}

	return &BreakerPublisher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:  logger,
		metrics: metrics,
		name:    cfg.Name,
	}
}

// Publish forwards to the wrapped publisher unless the breaker is open.
func (b *BreakerPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Publish(ctx, topic, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		if b.metrics != nil {
			b.metrics.rejected.WithLabelValues(b.name).Inc()
		}
		return ErrCircuitOpen
	}
	return err
}

// State returns the current breaker state.
func (b *BreakerPublisher) State() gobreaker.State {
	return b.breaker.State()
}

// Close closes the wrapped publisher.
func (b *BreakerPublisher) Close() error {
	return b.next.Close()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(context.Context, string, *Event) error { return nil }

// Close is a no-op.
func (NopPublisher) Close() error { return nil }
