// Package circuitbreaker guards connector transports against hammering an
// unhealthy processor endpoint. It is transport policy inside a connector
// adapter, not part of routing: a routed call that trips the breaker fails
// like any other transport error.
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the state of one endpoint's circuit.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

const (
	defaultFailureThreshold         = 5
	defaultOpenStateTimeout         = 30 * time.Second
	defaultHalfOpenSuccessThreshold = 2
)

type endpointState struct {
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	lastFailureTime      time.Time
	openUntil            time.Time
}

// CircuitBreaker tracks health per connector endpoint, in memory.
type CircuitBreaker struct {
	mu                       sync.RWMutex
	endpoints                map[string]*endpointState
	failureThreshold         int
	openStateTimeout         time.Duration
	halfOpenSuccessThreshold int
}

// New creates a CircuitBreaker with default settings.
func New() *CircuitBreaker {
	return NewWithSettings(defaultFailureThreshold, defaultOpenStateTimeout, defaultHalfOpenSuccessThreshold)
}

// NewWithSettings creates a CircuitBreaker with custom thresholds.
func NewWithSettings(failThreshold int, openTimeout time.Duration, halfOpenSuccess int) *CircuitBreaker {
	return &CircuitBreaker{
		endpoints:                make(map[string]*endpointState),
		failureThreshold:         failThreshold,
		openStateTimeout:         openTimeout,
		halfOpenSuccessThreshold: halfOpenSuccess,
	}
}

// Caller must hold the write lock.
func (cb *CircuitBreaker) getEndpointState(endpoint string) *endpointState {
	es, exists := cb.endpoints[endpoint]
	if !exists {
		es = &endpointState{state: Closed}
		cb.endpoints[endpoint] = es
	}
	return es
}

// IsHealthy reports whether requests are allowed. It takes the write lock
// because an expired Open circuit transitions to HalfOpen here.
func (cb *CircuitBreaker) IsHealthy(endpoint string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	es := cb.getEndpointState(endpoint)

	switch es.state {
	case Closed:
		return true
	case Open:
		if time.Now().After(es.openUntil) {
			es.state = HalfOpen
			es.consecutiveSuccesses = 0
			return true
		}
		return false
	case HalfOpen:
		return true
	default:
		es.state = Closed
		return true
	}
}

// RecordFailure records a failed call against the endpoint.
func (cb *CircuitBreaker) RecordFailure(endpoint string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	es := cb.getEndpointState(endpoint)
	es.lastFailureTime = time.Now()

	switch es.state {
	case Closed:
		es.consecutiveFailures++
		if es.consecutiveFailures >= cb.failureThreshold {
			es.state = Open
			es.openUntil = time.Now().Add(cb.openStateTimeout)
		}
	case HalfOpen:
		es.state = Open
		es.openUntil = time.Now().Add(cb.openStateTimeout)
		es.consecutiveFailures = 0
		es.consecutiveSuccesses = 0
	case Open:
		return
	}
}

// RecordSuccess records a successful call against the endpoint.
func (cb *CircuitBreaker) RecordSuccess(endpoint string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	es := cb.getEndpointState(endpoint)

	switch es.state {
	case Closed:
		es.consecutiveFailures = 0
	case HalfOpen:
		es.consecutiveSuccesses++
		if es.consecutiveSuccesses >= cb.halfOpenSuccessThreshold {
			es.state = Closed
			es.consecutiveFailures = 0
			es.consecutiveSuccesses = 0
		}
	case Open:
		return
	}
}

// GetState returns the current state without triggering transitions.
func (cb *CircuitBreaker) GetState(endpoint string) State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	es, exists := cb.endpoints[endpoint]
	if !exists {
		return Closed
	}
	return es.state
}
