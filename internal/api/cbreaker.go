package api

import (
	"sync"
	"time"
)

// CircuitBreaker stops calls to a failing destination for openFor after
// threshold consecutive failures.
type CircuitBreaker struct {
	name       string
	mu         sync.Mutex
	failures   int
	openedTill time.Time
	threshold  int
	openFor    time.Duration
	open       bool
	now        func() time.Time
}

var (
	breakersMu         sync.Mutex
	breakers           = map[string]*CircuitBreaker{}
	cbDefaultThreshold = 3
	cbDefaultOpenFor   = 30 * time.Second
)

// ConfigureBreakers sets defaults for breakers created afterwards.
func ConfigureBreakers(threshold int, openFor time.Duration) {
	breakersMu.Lock()
	defer breakersMu.Unlock()
	if threshold > 0 {
		cbDefaultThreshold = threshold
	}
	if openFor > 0 {
		cbDefaultOpenFor = openFor
	}
}

func GetBreaker(name string) *CircuitBreaker {
	breakersMu.Lock()
	defer breakersMu.Unlock()
	if b, ok := breakers[name]; ok {
		return b
	}
	b := &CircuitBreaker{name: name, threshold: cbDefaultThreshold, openFor: cbDefaultOpenFor, now: time.Now}
	breakers[name] = b
	// expose initial state
	SetBreakerState(name, false)
	return b
}

func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.now().Before(b.openedTill) {
		b.open = true
		SetBreakerState(b.name, true)
		return false
	}
	if b.open { // transition to closed
		b.open = false
		SetBreakerState(b.name, false)
	}
	return true
}

func (b *CircuitBreaker) ReportSuccess() {
	b.mu.Lock()
	b.failures = 0
	if b.open {
		b.open = false
		SetBreakerState(b.name, false)
	}
	b.mu.Unlock()
}

func (b *CircuitBreaker) ReportFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.openedTill = b.now().Add(b.openFor)
		b.failures = 0
		b.open = true
		SetBreakerState(b.name, true)
	}
}
