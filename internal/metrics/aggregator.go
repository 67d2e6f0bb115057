package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// revenueScale is the number of fixed-point units per currency unit.
const revenueScale = 1_000_000

// Aggregator holds the service counters and gauges. It is created once at
// startup and handed to every call site that records something.
type Aggregator struct {
	mu sync.Mutex

	requests map[string]uint64

	greetingChanges uint64
	purchaseSuccess uint64
	purchaseFailure uint64
	authSuccess     uint64
	authFailure     uint64
	revenueMicros   int64

	pizzaLatencyMS   float64
	serviceLatencyMS float64

	active *ActiveUsers
	now    func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithActiveWindow overrides the recency window used by the active-user tracker.
func WithActiveWindow(window time.Duration) Option {
	return func(a *Aggregator) { a.active.window = window }
}

// WithClock replaces time.Now for the aggregator and its tracker.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
		a.active.now = now
	}
}

// New returns an empty aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		requests: make(map[string]uint64),
		active:   NewActiveUsers(DefaultActiveWindow),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ActiveUsers exposes the session tracker so the reporter can sweep it.
func (a *Aggregator) ActiveUsers() *ActiveUsers { return a.active }

// IncRequest bumps the counter for an endpoint key such as "[GET] /api/order/menu".
func (a *Aggregator) IncRequest(endpoint string) {
	a.mu.Lock()
	a.requests[endpoint]++
	a.mu.Unlock()
}

func (a *Aggregator) GreetingChanged() { a.inc(&a.greetingChanges) }

func (a *Aggregator) PizzaPurchaseSuccess() { a.inc(&a.purchaseSuccess) }

func (a *Aggregator) PizzaPurchaseFailure() { a.inc(&a.purchaseFailure) }

func (a *Aggregator) AuthSuccess() { a.inc(&a.authSuccess) }

func (a *Aggregator) AuthFailure() { a.inc(&a.authFailure) }

func (a *Aggregator) inc(counter *uint64) {
	a.mu.Lock()
	*counter++
	a.mu.Unlock()
}

// PizzaPurchaseRevenue adds amount to the revenue total. Amounts are rounded
// to the nearest micro-unit so repeated additions never drift. Non-positive
// amounts are ignored since the total is exported as a monotonic sum.
func (a *Aggregator) PizzaPurchaseRevenue(amount float64) {
	if !(amount > 0) {
		return
	}
	micros := int64(math.Round(amount * revenueScale))
	a.mu.Lock()
	a.revenueMicros += micros
	a.mu.Unlock()
}

// PizzaLatency overwrites the factory latency gauge with end-start.
func (a *Aggregator) PizzaLatency(start, end time.Time) {
	ms := durationMS(end.Sub(start))
	a.mu.Lock()
	a.pizzaLatencyMS = ms
	a.mu.Unlock()
}

// ServiceLatency overwrites the request latency gauge with end-start.
func (a *Aggregator) ServiceLatency(start, end time.Time) {
	ms := durationMS(end.Sub(start))
	a.mu.Lock()
	a.serviceLatencyMS = ms
	a.mu.Unlock()
}

// SetActiveUser marks token as active as of now.
func (a *Aggregator) SetActiveUser(token string) { a.active.Set(token) }

// UserLoggedOut drops token from the active set immediately.
func (a *Aggregator) UserLoggedOut(token string) { a.active.Remove(token) }

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Snapshot is a point-in-time copy of the aggregator state.
type Snapshot struct {
	Requests         map[string]uint64
	GreetingChanges  uint64
	PurchaseSuccess  uint64
	PurchaseFailure  uint64
	AuthSuccess      uint64
	AuthFailure      uint64
	RevenueMicros    int64
	PizzaLatencyMS   float64
	ServiceLatencyMS float64
	ActiveUsers      int
	Taken            time.Time
}

// Revenue returns the accumulated revenue in currency units.
func (s Snapshot) Revenue() float64 {
	return float64(s.RevenueMicros) / revenueScale
}

// Endpoints returns the request keys in sorted order.
func (s Snapshot) Endpoints() []string {
	keys := make([]string, 0, len(s.Requests))
	for k := range s.Requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot copies the current counters. It does not sweep the active-user
// tracker; ActiveUsers reflects whatever the last sweep left behind.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	requests := make(map[string]uint64, len(a.requests))
	for k, v := range a.requests {
		requests[k] = v
	}
	snap := Snapshot{
		Requests:         requests,
		GreetingChanges:  a.greetingChanges,
		PurchaseSuccess:  a.purchaseSuccess,
		PurchaseFailure:  a.purchaseFailure,
		AuthSuccess:      a.authSuccess,
		AuthFailure:      a.authFailure,
		RevenueMicros:    a.revenueMicros,
		PizzaLatencyMS:   a.pizzaLatencyMS,
		ServiceLatencyMS: a.serviceLatencyMS,
		Taken:            a.now(),
	}
	a.mu.Unlock()
	snap.ActiveUsers = a.active.Count()
	return snap
}
