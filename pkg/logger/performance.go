package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PerformanceConfig controls level gating and log rate limiting for the context logger.
type PerformanceConfig struct {
	MinLogLevel     zapcore.Level `json:"min_log_level"`
	MaxLogPerSecond int           `json:"max_log_per_second"`
	EnableRateLimit bool          `json:"enable_rate_limit"`
}

func ProductionConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.InfoLevel,
		MaxLogPerSecond: 1000,
		EnableRateLimit: true,
	}
}

func DevelopmentConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.DebugLevel,
		MaxLogPerSecond: 10000,
		EnableRateLimit: false,
	}
}

// OptimizedLogger gates entries by level and rate before any fields are built.
type OptimizedLogger struct {
	config      PerformanceConfig
	logger      *zap.Logger
	rateLimiter *RateLimiter
}

// RateLimiter caps the number of log entries written per second.
type RateLimiter struct {
	maxLogs   int
	current   int
	lastReset time.Time
	mu        sync.Mutex
}

func NewRateLimiter(maxLogs int) *RateLimiter {
	return &RateLimiter{
		maxLogs:   maxLogs,
		lastReset: time.Now(),
	}
}

func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastReset) >= time.Second {
		rl.current = 0
		rl.lastReset = now
	}

	if rl.current >= rl.maxLogs {
		return false
	}

	rl.current++
	return true
}

func NewOptimizedLogger(config PerformanceConfig, base *zap.Logger) *OptimizedLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &OptimizedLogger{
		config:      config,
		logger:      base.WithOptions(zap.AddCallerSkip(1)),
		rateLimiter: NewRateLimiter(config.MaxLogPerSecond),
	}
}

// ShouldLog reports whether an entry at level would be written.
func (ol *OptimizedLogger) ShouldLog(level zapcore.Level) bool {
	if level < ol.config.MinLogLevel {
		return false
	}

	if ol.config.EnableRateLimit && !ol.rateLimiter.Allow() {
		return false
	}

	return true
}

var (
	optimizedLogger *OptimizedLogger
	optimizedMu     sync.RWMutex
)

func SetOptimizedLogger(l *OptimizedLogger) {
	optimizedMu.Lock()
	defer optimizedMu.Unlock()
	optimizedLogger = l
}

// GetOptimizedLogger returns the process context logger, falling back to GetLogger's core.
func GetOptimizedLogger() *OptimizedLogger {
	optimizedMu.RLock()
	l := optimizedLogger
	optimizedMu.RUnlock()
	if l != nil {
		return l
	}

	l = NewOptimizedLogger(DevelopmentConfig(), GetLogger())
	SetOptimizedLogger(l)
	return l
}
