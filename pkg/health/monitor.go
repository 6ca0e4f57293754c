package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Status represents health check status
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// CheckResult represents the result of a health check
type CheckResult struct {
	Name         string
	Status       Status
	Message      string
	Latency      time.Duration
	LastCheck    time.Time
	LastError    error
	CheckCount   int
	FailureCount int
}

// Checker checks one dependency.
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// DatabaseChecker pings the gorm connection pool.
type DatabaseChecker struct {
	DB *gorm.DB
}

func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{LastCheck: start}

	if c.DB == nil {
		result.Status = StatusUnhealthy
		result.Message = "Database connection not initialized"
		return result
	}

	sqlDB, err := c.DB.DB()
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Failed to get database instance"
		result.LastError = err
		return result
	}

	err = sqlDB.PingContext(ctx)
	result.Latency = time.Since(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Database ping failed"
		result.LastError = err
		return result
	}

	stats := sqlDB.Stats()
	result.Status = StatusHealthy
	result.Message = fmt.Sprintf("open: %d, idle: %d", stats.OpenConnections, stats.Idle)
	return result
}

// Pinger is satisfied by the redis client wrapper.
type Pinger interface {
	IsEnabled() bool
	Ping(ctx context.Context) error
}

// RedisChecker reports disabled when redis is switched off.
type RedisChecker struct {
	Client Pinger
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{LastCheck: start}

	if c.Client == nil || !c.Client.IsEnabled() {
		result.Status = StatusDisabled
		return result
	}

	err := c.Client.Ping(ctx)
	result.Latency = time.Since(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Redis ping failed"
		result.LastError = err
		return result
	}
	result.Status = StatusHealthy
	return result
}

type registration struct {
	checker  Checker
	critical bool
}

// Monitor runs registered checkers on demand and, once started, on an interval.
// Only critical checkers decide overall health.
type Monitor struct {
	mu       sync.RWMutex
	checkers map[string]registration
	results  map[string]*CheckResult
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
}

// NewMonitor creates a new health monitor
func NewMonitor(interval time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		checkers: make(map[string]registration),
		results:  make(map[string]*CheckResult),
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds a checker under name. A failing critical checker makes the whole report unhealthy.
func (m *Monitor) Register(name string, checker Checker, critical bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkers[name] = registration{checker: checker, critical: critical}

	m.logger.Info("Registered health checker",
		zap.String("name", name),
		zap.Bool("critical", critical),
	)
}

// Start starts the health monitor
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running || m.interval <= 0 {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	go m.runChecks()
}

// Stop stops the health monitor
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.running = false
	m.cancel()
}

// runChecks runs health checks periodically
func (m *Monitor) runChecks() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckAll(m.ctx)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.CheckAll(m.ctx)
		}
	}
}

// CheckAll runs every checker now and reports whether all critical ones are healthy.
func (m *Monitor) CheckAll(ctx context.Context) (map[string]CheckResult, bool) {
	m.mu.RLock()
	names := make([]string, 0, len(m.checkers))
	checkers := make(map[string]registration, len(m.checkers))
	for name, reg := range m.checkers {
		names = append(names, name)
		checkers[name] = reg
	}
	m.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]CheckResult, len(names))
	healthy := true

	for _, name := range names {
		reg := checkers[name]
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		result := reg.checker.Check(checkCtx)
		cancel()
		result.Name = name

		m.mu.Lock()
		if existing, ok := m.results[name]; ok {
			result.CheckCount = existing.CheckCount + 1
			result.FailureCount = existing.FailureCount
		} else {
			result.CheckCount = 1
		}
		if result.Status == StatusUnhealthy {
			result.FailureCount++
		}
		stored := result
		m.results[name] = &stored
		m.mu.Unlock()

		if result.Status == StatusUnhealthy {
			if reg.critical {
				healthy = false
			}
			m.logger.Warn("Health check failed",
				zap.String("name", name),
				zap.Bool("critical", reg.critical),
				zap.Duration("latency", result.Latency),
				zap.Error(result.LastError),
			)
		}
		results[name] = result
	}

	return results, healthy
}

// GetResult returns the last stored result for name.
func (m *Monitor) GetResult(name string) (*CheckResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, exists := m.results[name]
	if !exists {
		return nil, false
	}
	resultCopy := *result
	return &resultCopy, true
}
