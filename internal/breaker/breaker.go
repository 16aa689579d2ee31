package breaker

import (
	"sync"
	"time"
)

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

type Config struct {
	FailureThreshold int
	Cooldown         time.Duration
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// Breaker tracks consecutive failures for one provider identity. Closed
// passes calls through; FailureThreshold consecutive failures open it;
// after Cooldown the next Allow transitions to half-open and admits a
// single probe, whose outcome closes or reopens the circuit.
type Breaker struct {
	mu             sync.Mutex
	cfg            Config
	state          State
	probing        bool
	failures       int
	lastFailure    time.Time
	lastTransition time.Time
}

// Snapshot is a side-effect-free view of breaker health.
type Snapshot struct {
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
	LastTransition      time.Time `json:"last_transition,omitzero"`
}

func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	return &Breaker{
		cfg:   cfg,
		state: StateClosed,
	}
}

// Allow reports whether a call may proceed. In the open state it refuses
// until the cool-down has elapsed, then moves to half-open and admits the
// probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		// Exactly one probe at a time; everyone else waits for its outcome.
		if b.probing {
			return false
		}
		b.probing = true
		return true
	case StateOpen:
		if time.Since(b.lastTransition) >= b.cfg.Cooldown {
			b.transition(StateHalfOpen)
			b.probing = true
			return true
		}
		return false
	}
	return true
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case StateHalfOpen:
		// Failed probe: restart the cool-down.
		b.transition(StateOpen)
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	}
}

// Reset forces the breaker back to closed with counters zeroed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.lastFailure = time.Time{}
	b.transition(StateClosed)
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:               b.state.String(),
		ConsecutiveFailures: b.failures,
		LastFailure:         b.lastFailure,
		LastTransition:      b.lastTransition,
	}
}

// transition assumes b.mu is held.
func (b *Breaker) transition(to State) {
	b.state = to
	b.probing = false
	b.lastTransition = time.Now()
}
