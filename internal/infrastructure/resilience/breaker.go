package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned while the breaker rejects calls
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when the half-open probe quota is used up
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxRequests is the number of probes admitted while half-open, and the
	// number of consecutive probe successes that close the breaker
	MaxRequests uint32
	// Interval clears the counts periodically while closed
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing
	Timeout time.Duration
	// ReadyToTrip decides, after a failure while closed, whether to open
	ReadyToTrip func(counts Counts) bool
	// OnStateChange is called outside the breaker lock on every transition
	OnStateChange func(name string, from State, to State)
	// Now replaces the clock in tests
	Now func() time.Time
}

// Counts holds the statistics of the current generation
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) success() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

type transition struct {
	from, to State
}

// Breaker stops calling a failing dependency for a while. Every state change
// or periodic reset starts a new generation; results from an older
// generation are ignored.
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time // zero while half-open
}

// New creates a closed breaker
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Interval <= 0 {
		settings.Interval = 60 * time.Second
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}

	return &Breaker{
		name:     name,
		settings: settings,
		expiry:   settings.Now().Add(settings.Interval),
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	var changes []transition
	b.advance(&changes)
	state := b.state
	b.mu.Unlock()

	b.notify(changes)
	return state
}

// Counts returns a copy of the current generation's counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Allow admits one call. The caller must report the outcome through done
// exactly once.
func (b *Breaker) Allow() (done func(success bool), err error) {
	b.mu.Lock()
	var changes []transition
	b.advance(&changes)

	switch {
	case b.state == StateOpen:
		err = ErrCircuitOpen
	case b.state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests:
		err = ErrTooManyRequests
	default:
		b.counts.Requests++
	}
	generation := b.generation
	b.mu.Unlock()

	b.notify(changes)
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func(success bool) {
		once.Do(func() { b.record(generation, success) })
	}, nil
}

// Execute runs req if the breaker admits it. A panic counts as a failure.
func (b *Breaker) Execute(req func() (any, error)) (any, error) {
	done, err := b.Allow()
	if err != nil {
		return nil, err
	}

	defer func() {
		if e := recover(); e != nil {
			done(false)
			panic(e)
		}
	}()

	result, err := req()
	done(err == nil)
	return result, err
}

// Call runs fn through b and keeps its result type
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	done, err := b.Allow()
	if err != nil {
		return zero, err
	}

	defer func() {
		if e := recover(); e != nil {
			done(false)
			panic(e)
		}
	}()

	result, err := fn()
	done(err == nil)
	return result, err
}

func (b *Breaker) record(generation uint64, success bool) {
	b.mu.Lock()
	var changes []transition
	b.advance(&changes)

	if generation == b.generation {
		if success {
			b.counts.success()
			if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
				b.transition(StateClosed, &changes)
			}
		} else {
			b.counts.failure()
			switch b.state {
			case StateClosed:
				if b.settings.ReadyToTrip(b.counts) {
					b.transition(StateOpen, &changes)
				}
			case StateHalfOpen:
				b.transition(StateOpen, &changes)
			}
		}
	}
	b.mu.Unlock()

	b.notify(changes)
}

// advance applies time-based changes: the closed-state reset and the
// open-to-half-open timeout
func (b *Breaker) advance(changes *[]transition) {
	now := b.settings.Now()
	switch b.state {
	case StateClosed:
		if now.After(b.expiry) {
			b.newGeneration(now)
		}
	case StateOpen:
		if now.After(b.expiry) {
			b.transition(StateHalfOpen, changes)
		}
	}
}

func (b *Breaker) transition(to State, changes *[]transition) {
	if b.state == to {
		return
	}
	*changes = append(*changes, transition{from: b.state, to: to})
	b.state = to
	b.newGeneration(b.settings.Now())
}

func (b *Breaker) newGeneration(now time.Time) {
	b.generation++
	b.counts = Counts{}
	switch b.state {
	case StateClosed:
		b.expiry = now.Add(b.settings.Interval)
	case StateOpen:
		b.expiry = now.Add(b.settings.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}
}

func (b *Breaker) notify(changes []transition) {
	if b.settings.OnStateChange == nil {
		return
	}
	for _, c := range changes {
		b.settings.OnStateChange(b.name, c.from, c.to)
	}
}
