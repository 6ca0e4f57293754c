package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents circuit breaker state
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls fail fast
	StateHalfOpen              // a few trial calls are let through
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config defines circuit breaker configuration
type Config struct {
	Threshold        int           // consecutive failures before opening
	Timeout          time.Duration // open duration before trial calls
	SuccessThreshold int           // trial successes needed to close
	MaxHalfOpen      int           // concurrent trial calls allowed

	// IsFailure decides which errors count against the circuit. Nil counts every
	// non-nil error except context cancellation.
	IsFailure func(error) bool

	// OnStateChange is called with the lock held; it must not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		Timeout:          30 * time.Second,
		SuccessThreshold: 2,
		MaxHalfOpen:      1,
	}
}

// Breaker guards calls to one upstream. It never retries; an open circuit
// returns ErrCircuitOpen without calling through.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	halfOpenInFlight int
	openedAt         time.Time
	config           Config
	logger           *zap.Logger
	name             string
	now              func() time.Time
}

func NewBreaker(name string, config Config, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Threshold <= 0 {
		config.Threshold = DefaultConfig().Threshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.MaxHalfOpen <= 0 {
		config.MaxHalfOpen = 1
	}

	return &Breaker{
		state:  StateClosed,
		config: config,
		logger: logger,
		name:   name,
		now:    time.Now,
	}
}

// Execute runs fn if the circuit admits the call and records its outcome.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.Timeout {
			return ErrCircuitOpen
		}
		b.transitionTo(StateHalfOpen)
		b.halfOpenInFlight = 1
		return nil

	case StateHalfOpen:
		if b.halfOpenInFlight >= b.config.MaxHalfOpen {
			return ErrTooManyRequests
		}
		b.halfOpenInFlight++
		return nil

	default:
		return nil
	}
}

func (b *Breaker) isFailure(err error) bool {
	if err == nil {
		return false
	}
	if b.config.IsFailure != nil {
		return b.config.IsFailure(err)
	}
	return !errors.Is(err, context.Canceled)
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	if b.isFailure(err) {
		b.failures++
		b.successes = 0
		switch b.state {
		case StateClosed:
			if b.failures >= b.config.Threshold {
				b.transitionTo(StateOpen)
			}
		case StateHalfOpen:
			b.transitionTo(StateOpen)
		}
		return
	}

	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transitionTo(StateClosed)
		}
	}
}

// must hold lock
func (b *Breaker) transitionTo(newState State) {
	oldState := b.state
	b.state = newState
	b.halfOpenInFlight = 0
	b.successes = 0

	switch newState {
	case StateOpen:
		b.openedAt = b.now()
	case StateClosed:
		b.failures = 0
	}

	b.logger.Info("Circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
		zap.Int("failures", b.failures),
	)

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, oldState, newState)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Name() string {
	return b.name
}

// Reset forces the circuit closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.halfOpenInFlight = 0

	b.logger.Info("Circuit breaker reset", zap.String("name", b.name))
}
