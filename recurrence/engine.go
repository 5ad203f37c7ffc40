package recurrence

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Engine answers occurrence queries for rules, with optional caching and a
// cap on the size of every answer. It is safe for concurrent use.
type Engine struct {
	cache   *OccurrenceCache
	config  EngineConfig
	logger  *slog.Logger
	metrics *Metrics
}

// Option represents a configuration option for the Engine
type Option func(*Engine)

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics makes the engine report cache and occurrence counters.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewEngine creates a new recurrence engine with default configuration
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig, opts...)
}

// Next returns up to n occurrences of r on or after after. A zero after
// means from the start.
func (e *Engine) Next(r Rule, after time.Time, n int) ([]time.Time, error) {
	const op = "next"
	if n < 1 {
		return nil, fmt.Errorf("%w: occurrence count must be 1 or greater, got %d", ErrInvalidArgument, n)
	}
	if n > e.config.MaxOccurrences {
		e.logger.Warn("occurrence request truncated",
			"rule", r.String(),
			"requested", n,
			"limit", e.config.MaxOccurrences)
		e.metrics.truncated(op)
		n = e.config.MaxOccurrences
	}

	key := cacheKey{operation: op, rule: r, from: after, n: n}
	if out, ok := e.lookup(op, key); ok {
		return out, nil
	}

	out, _ := r.generate(r.start, 0, after, n)
	e.store(key, out)
	e.metrics.returned(op, len(out))
	e.logger.Debug("occurrences generated",
		"operation", op,
		"rule", r.String(),
		"count", len(out))
	return out, nil
}

// Between returns the occurrences of r in [from, to), at most
// MaxOccurrences of them. An empty range yields nothing, and a range ending
// before it starts is ErrInvalidArgument.
func (e *Engine) Between(r Rule, from, to time.Time) ([]time.Time, error) {
	const op = "between"
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	key := cacheKey{operation: op, rule: r, from: from, to: to}
	if out, ok := e.lookup(op, key); ok {
		return out, nil
	}

	var out []time.Time
	for t := range r.Occurrences(from) {
		if !t.Before(to) {
			break
		}
		if len(out) == e.config.MaxOccurrences {
			e.logger.Warn("occurrence range truncated",
				"rule", r.String(),
				"from", from,
				"to", to,
				"limit", e.config.MaxOccurrences)
			e.metrics.truncated(op)
			break
		}
		out = append(out, t)
	}

	e.store(key, out)
	e.metrics.returned(op, len(out))
	return out, nil
}

// HasOccurrenceInRange reports whether the event happens in [from, to).
// Unlike the generators, the start itself counts as an occurrence here.
// Ranges are checked as in Between.
func (e *Engine) HasOccurrenceInRange(r Rule, from, to time.Time) (bool, error) {
	if err := checkRange(from, to); err != nil {
		return false, err
	}
	if !to.After(from) {
		return false, nil
	}
	// Fast path: the start is in range
	if !r.start.Before(from) && r.start.Before(to) {
		return true, nil
	}
	if r.period == None {
		return false, nil
	}
	for t := range r.Occurrences(from) {
		return t.Before(to), nil
	}
	return false, nil
}

func checkRange(from, to time.Time) error {
	if to.Before(from) {
		return fmt.Errorf("%w: range end %s is before range start %s", ErrInvalidArgument,
			to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return nil
}

// Close releases the cache, if any.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// CacheStats returns statistics of the engine cache. It is zero when
// caching is disabled.
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

func (e *Engine) lookup(op string, key cacheKey) ([]time.Time, bool) {
	if e.cache == nil {
		return nil, false
	}
	out, ok := e.cache.get(key)
	e.metrics.cacheResult(op, ok)
	if ok {
		e.metrics.returned(op, len(out))
	}
	return out, ok
}

func (e *Engine) store(key cacheKey, out []time.Time) {
	if e.cache != nil {
		e.cache.set(key, out)
	}
}
