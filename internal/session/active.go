// Package session tracks which user, if any, is logged in.
//
// ActiveUser holds the current identity and fans transitions out to
// subscribers. FileSource feeds an ActiveUser from a session file on disk.
package session

import "sync"

// Change is one transition of the active identity. Active is false on
// logout, in which case User is empty.
type Change struct {
	User   string `json:"user,omitempty"`
	Active bool   `json:"active"`
}

// ActiveUser is the observable active-user signal.
// It is safe for concurrent use.
type ActiveUser struct {
	mu     sync.Mutex
	user   string
	active bool
	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	ch   chan Change
	done chan struct{}
}

// NewActiveUser returns a signal with no active user.
func NewActiveUser() *ActiveUser {
	return &ActiveUser{subs: make(map[int]*subscriber)}
}

// Login makes user the active identity. Logging in as the current user
// publishes nothing.
func (a *ActiveUser) Login(user string) {
	if user == "" {
		a.Logout()
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active && a.user == user {
		return
	}
	a.user, a.active = user, true
	a.publish(Change{User: user, Active: true})
}

// Logout clears the active identity. It publishes nothing when nobody is
// logged in.
func (a *ActiveUser) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return
	}
	a.user, a.active = "", false
	a.publish(Change{})
}

// Current returns the active user, if any.
func (a *ActiveUser) Current() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user, a.active
}

// Subscribe returns a channel receiving every later transition, in order,
// and a function that cancels the subscription and closes the channel.
//
// Delivery blocks the publisher once buffer changes are queued, so a
// subscriber must keep draining its channel until it cancels.
func (a *ActiveUser) Subscribe(buffer int) (<-chan Change, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sub := &subscriber{ch: make(chan Change, max(buffer, 0)), done: make(chan struct{})}
	id := a.nextID
	a.nextID++
	a.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Unblock a publisher stuck on this subscriber before taking mu.
			close(sub.done)
			a.mu.Lock()
			defer a.mu.Unlock()
			delete(a.subs, id)
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// publish must be called with mu held.
func (a *ActiveUser) publish(c Change) {
	for _, sub := range a.subs {
		select {
		case sub.ch <- c:
		case <-sub.done:
		}
	}
}
