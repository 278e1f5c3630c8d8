package resilience

import (
	"errors"
	"sync"
	"time"

	"batepapo/backend/pkg/clock"
	"batepapo/backend/pkg/logger"
)

// ErrOpen is returned instead of running the call while the breaker is open
var ErrOpen = errors.New("circuit open")

// State is the current position of a breaker
type State string

const (
	// StateClosed lets every call through
	StateClosed State = "closed"
	// StateOpen short-circuits calls until the cool-down elapses
	StateOpen State = "open"
	// StateHalfOpen lets trial calls through to probe recovery
	StateHalfOpen State = "half-open"
)

// Config holds breaker thresholds
type Config struct {
	Name string
	// FailureThreshold consecutive failures open the breaker
	FailureThreshold uint
	// SuccessThreshold trial successes close it again
	SuccessThreshold uint
	// CoolDown is how long the breaker stays open
	CoolDown time.Duration
}

// DefaultConfig returns thresholds suited to a background storage job
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 3,
		SuccessThreshold: 1,
		CoolDown:         time.Minute,
	}
}

// Stats is a snapshot of breaker counters
type Stats struct {
	State         State
	Requests      uint64
	Failures      uint64
	Successes     uint64
	Rejected      uint64
	Opened        uint64
	LastFailureAt time.Time
	NextAttemptAt time.Time
}

// Breaker stops calling a failing dependency for a while after repeated
// failures
type Breaker struct {
	mu        sync.Mutex
	config    Config
	clock     clock.Clock
	log       *logger.Logger
	state     State
	failures  uint
	successes uint
	stats     Stats
}

// New creates a closed breaker
func New(config Config, clk clock.Clock, log *logger.Logger) *Breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	return &Breaker{
		config: config,
		clock:  clk,
		log:    log.ForComponent("breaker"),
		state:  StateClosed,
	}
}

// Execute runs fn unless the breaker is open
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}

	if err := fn(); err != nil {
		b.recordFailure(err)
		return err
	}
	b.recordSuccess()
	return nil
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a copy of the counters
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.State = b.state
	return s
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.Requests++
	switch b.state {
	case StateOpen:
		if b.clock.Now().Before(b.stats.NextAttemptAt) {
			b.stats.Rejected++
			return false
		}
		b.state = StateHalfOpen
		b.successes = 0
		b.log.Info("Circuit breaker half-open", "name", b.config.Name)
		return true
	case StateHalfOpen:
		return b.successes < b.config.SuccessThreshold
	default:
		return true
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.Successes++
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
			b.log.Info("Circuit breaker closed", "name", b.config.Name)
		}
	}
}

func (b *Breaker) recordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.stats.Failures++
	b.stats.LastFailureAt = now

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.open(now, err)
		}
	case StateHalfOpen:
		b.open(now, err)
	}
}

func (b *Breaker) open(now time.Time, err error) {
	b.state = StateOpen
	b.stats.Opened++
	b.stats.NextAttemptAt = now.Add(b.config.CoolDown)
	b.log.Warn("Circuit breaker opened",
		"name", b.config.Name,
		"failures", b.failures,
		"error", err.Error(),
		"next_attempt", b.stats.NextAttemptAt.Format(time.RFC3339),
	)
}
