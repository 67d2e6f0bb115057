package metrics

import (
	"sync"
	"time"
)

// DefaultActiveWindow is how long a session counts as active after login.
const DefaultActiveWindow = 5 * time.Minute

// ActiveUsers tracks session tokens by the time they were last seen.
type ActiveUsers struct {
	mu       sync.Mutex
	sessions map[string]time.Time
	window   time.Duration
	now      func() time.Time
}

// NewActiveUsers creates a tracker with the given recency window.
func NewActiveUsers(window time.Duration) *ActiveUsers {
	return &ActiveUsers{
		sessions: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}
}

// Set upserts token with the current time.
func (u *ActiveUsers) Set(token string) {
	if token == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sessions[token] = u.now()
}

// Remove drops token regardless of how recently it was seen.
func (u *ActiveUsers) Remove(token string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.sessions, token)
}

// SweepExpired evicts every token older than the window and returns how many
// were removed.
func (u *ActiveUsers) SweepExpired() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.window <= 0 {
		return 0
	}
	deadline := u.now().Add(-u.window)
	evicted := 0
	for token, seen := range u.sessions {
		if seen.Before(deadline) {
			delete(u.sessions, token)
			evicted++
		}
	}
	return evicted
}

// Count returns the number of tracked tokens without sweeping.
func (u *ActiveUsers) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.sessions)
}

// Contains reports whether token is currently tracked.
func (u *ActiveUsers) Contains(token string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.sessions[token]
	return ok
}
