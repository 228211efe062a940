package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// WithTimeout bounds every call with a deadline. A call that has not returned
// when the deadline passes fails with ErrTimeout even if the underlying store
// ignores the context.
func WithTimeout(next Port, timeout time.Duration) Port {
	if timeout <= 0 {
		return next
	}
	return &timeoutPort{next: next, timeout: timeout}
}

type timeoutPort struct {
	next    Port
	timeout time.Duration
}

type callResult[T any] struct {
	value T
	err   error
}

func withDeadline[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		value, err := fn(ctx)
		done <- callResult[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		if errors.Is(res.err, context.DeadlineExceeded) {
			return res.value, fmt.Errorf("%w: %s after %s", ErrTimeout, op, timeout)
		}
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %s after %s", ErrTimeout, op, timeout)
		}
		return zero, ctx.Err()
	}
}

func (p *timeoutPort) Select(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	return withDeadline(ctx, p.timeout, "select "+collection, func(ctx context.Context) ([]Record, error) {
		return p.next.Select(ctx, collection, filter)
	})
}

func (p *timeoutPort) Exists(ctx context.Context, collection string, filter Filter) (bool, error) {
	return withDeadline(ctx, p.timeout, "exists "+collection, func(ctx context.Context) (bool, error) {
		return p.next.Exists(ctx, collection, filter)
	})
}

func (p *timeoutPort) Insert(ctx context.Context, collection string, record Record) error {
	_, err := withDeadline(ctx, p.timeout, "insert "+collection, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.next.Insert(ctx, collection, record)
	})
	return err
}

func (p *timeoutPort) Update(ctx context.Context, collection string, filter Filter, record Record) error {
	_, err := withDeadline(ctx, p.timeout, "update "+collection, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.next.Update(ctx, collection, filter, record)
	})
	return err
}

func (p *timeoutPort) Delete(ctx context.Context, collection string, filter Filter) error {
	_, err := withDeadline(ctx, p.timeout, "delete "+collection, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.next.Delete(ctx, collection, filter)
	})
	return err
}

// BreakerSettings configures WithBreaker.
type BreakerSettings struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// WithBreaker trips after FailureThreshold consecutive store failures and
// rejects calls with ErrUnavailable until OpenTimeout has passed. Not-found
// and duplicate answers count as successes.
func WithBreaker(next Port, settings BreakerSettings, logger *slog.Logger) Port {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.HalfOpenRequests == 0 {
		settings.HalfOpenRequests = 1
	}
	if settings.Name == "" {
		settings.Name = "store"
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate)
		},
	})
	return &breakerPort{next: next, breaker: breaker}
}

type breakerPort struct {
	next    Port
	breaker *gobreaker.CircuitBreaker[any]
}

func (p *breakerPort) execute(fn func() (any, error)) (any, error) {
	result, err := p.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, err
}

func (p *breakerPort) Select(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	result, err := p.execute(func() (any, error) {
		return p.next.Select(ctx, collection, filter)
	})
	if err != nil {
		return nil, err
	}
	records, _ := result.([]Record)
	return records, nil
}

func (p *breakerPort) Exists(ctx context.Context, collection string, filter Filter) (bool, error) {
	result, err := p.execute(func() (any, error) {
		return p.next.Exists(ctx, collection, filter)
	})
	if err != nil {
		return false, err
	}
	exists, _ := result.(bool)
	return exists, nil
}

func (p *breakerPort) Insert(ctx context.Context, collection string, record Record) error {
	_, err := p.execute(func() (any, error) {
		return nil, p.next.Insert(ctx, collection, record)
	})
	return err
}

func (p *breakerPort) Update(ctx context.Context, collection string, filter Filter, record Record) error {
	_, err := p.execute(func() (any, error) {
		return nil, p.next.Update(ctx, collection, filter, record)
	})
	return err
}

func (p *breakerPort) Delete(ctx context.Context, collection string, filter Filter) error {
	_, err := p.execute(func() (any, error) {
		return nil, p.next.Delete(ctx, collection, filter)
	})
	return err
}

// WithLogging logs every call at debug level and failures at warn level.
func WithLogging(next Port, logger *slog.Logger) Port {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingPort{next: next, logger: logger.With("component", "store")}
}

type loggingPort struct {
	next   Port
	logger *slog.Logger
}

func (p *loggingPort) log(ctx context.Context, op, collection string, started time.Time, err error) {
	attrs := []any{
		"op", op,
		"collection", collection,
		"duration_ms", time.Since(started).Milliseconds(),
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		p.logger.WarnContext(ctx, "store call failed", append(attrs, "error", err)...)
		return
	}
	p.logger.DebugContext(ctx, "store call", attrs...)
}

func (p *loggingPort) Select(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	started := time.Now()
	records, err := p.next.Select(ctx, collection, filter)
	p.log(ctx, "select", collection, started, err)
	return records, err
}

func (p *loggingPort) Exists(ctx context.Context, collection string, filter Filter) (bool, error) {
	started := time.Now()
	exists, err := p.next.Exists(ctx, collection, filter)
	p.log(ctx, "exists", collection, started, err)
	return exists, err
}

func (p *loggingPort) Insert(ctx context.Context, collection string, record Record) error {
	started := time.Now()
	err := p.next.Insert(ctx, collection, record)
	p.log(ctx, "insert", collection, started, err)
	return err
}

func (p *loggingPort) Update(ctx context.Context, collection string, filter Filter, record Record) error {
	started := time.Now()
	err := p.next.Update(ctx, collection, filter, record)
	p.log(ctx, "update", collection, started, err)
	return err
}

func (p *loggingPort) Delete(ctx context.Context, collection string, filter Filter) error {
	started := time.Now()
	err := p.next.Delete(ctx, collection, filter)
	p.log(ctx, "delete", collection, started, err)
	return err
}
