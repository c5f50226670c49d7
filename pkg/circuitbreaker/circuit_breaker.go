package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the state of a breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures a Breaker. Zero values fall back to defaults.
type Config struct {
	Name             string
	FailureThreshold uint32
	Cooldown         time.Duration
	HalfOpenProbes   uint32
}

// Breaker guards calls to an upstream service. After FailureThreshold
// consecutive failures it opens and rejects calls until Cooldown has
// passed, then lets HalfOpenProbes calls through to test recovery.
type Breaker struct {
	name             string
	failureThreshold uint32
	cooldown         time.Duration
	halfOpenProbes   uint32

	mu          sync.Mutex
	state       State
	failures    uint32
	probes      uint32
	probeOKs    uint32
	lastFailure time.Time

	logger *logrus.Logger
}

func New(cfg Config, logger *logrus.Logger) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenProbes == 0 {
		cfg.HalfOpenProbes = 3
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Breaker{
		name:             cfg.Name,
		failureThreshold: cfg.FailureThreshold,
		cooldown:         cfg.Cooldown,
		halfOpenProbes:   cfg.HalfOpenProbes,
		logger:           logger,
	}
}

// OpenError is returned when the breaker rejects a call without
// invoking the wrapped function.
type OpenError struct {
	Name string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}

// IsOpenError reports whether err is a breaker rejection rather than
// an error from the wrapped call.
func IsOpenError(err error) bool {
	_, ok := err.(*OpenError)
	return ok
}

// Do runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.allow() {
		return &OpenError{Name: b.name}
	}

	err := fn(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// State returns the breaker's current state, applying the
// open-to-half-open transition if the cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpen()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.probes < b.halfOpenProbes {
			b.probes++
			return true
		}
		return false
	default:
		return false
	}
}

// maybeHalfOpen transitions open to half-open once the cooldown has
// elapsed. Callers must hold b.mu.
func (b *Breaker) maybeHalfOpen() {
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.cooldown {
		b.state = StateHalfOpen
		b.probes = 0
		b.probeOKs = 0
		b.logger.WithField("circuit_breaker", b.name).Info("Circuit breaker half-open, probing upstream")
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.probeOKs++
		if b.probeOKs >= b.halfOpenProbes {
			b.state = StateClosed
			b.failures = 0
			b.logger.WithField("circuit_breaker", b.name).Info("Circuit breaker closed after recovery")
		}
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	case StateHalfOpen:
		b.trip()
	}
}

// trip moves the breaker to open. Callers must hold b.mu.
func (b *Breaker) trip() {
	b.state = StateOpen
	b.logger.WithFields(logrus.Fields{
		"circuit_breaker": b.name,
		"failures":        b.failures,
	}).Warn("Circuit breaker opened")
}
