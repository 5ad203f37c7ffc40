package recurrence

import (
	"time"
)

// EngineConfig tunes an Engine.
type EngineConfig struct {
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxOccurrences is the upper limit on occurrences returned by one Next
	// or Between call.
	MaxOccurrences int
}

// DefaultEngineConfig caches for a few minutes and allows up to 1000
// occurrences per call.
var DefaultEngineConfig = EngineConfig{
	CacheEnabled:   true,
	CacheConfig:    DefaultCacheConfig,
	MaxOccurrences: 1000,
}

// HighPerformanceConfig keeps more expansions around for longer.
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute,
		MaxEntries:      5000,
		CleanupInterval: 10 * time.Minute,
	},
	MaxOccurrences: 500,
}

// LowMemoryConfig keeps the cache small and sweeps it often.
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},
	MaxOccurrences: 200,
}

// DisabledCacheConfig expands every query from scratch.
var DisabledCacheConfig = EngineConfig{
	MaxOccurrences: 1000,
}

// NewEngineWithConfig returns an Engine using config. A MaxOccurrences below
// one falls back to the default limit.
func NewEngineWithConfig(config EngineConfig, opts ...Option) *Engine {
	e := &Engine{
		config: config,
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if config.CacheEnabled {
		e.cache = NewOccurrenceCache(config.CacheConfig)
	}
	if e.config.MaxOccurrences < 1 {
		e.config.MaxOccurrences = DefaultEngineConfig.MaxOccurrences
	}
	return e
}
