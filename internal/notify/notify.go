// Package notify carries transient, user-visible notifications from the
// stores to whichever view is on screen.
package notify

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Level is the notification severity.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 4 * time.Second

// Notification is one toast.
type Notification struct {
	ID      int64
	Level   Level
	Message string
	Hint    string
	At      time.Time
	TTL     time.Duration
}

// Expired reports whether n should no longer be shown at now.
func (n Notification) Expired(now time.Time) bool {
	return now.Sub(n.At) >= n.TTL
}

// Notifier receives notifications. Stores depend on this interface.
type Notifier interface {
	Notify(level Level, message string)
	Error(message string, err error)
}

// Center is the process-wide Notifier. It keeps the active notifications
// and fans them out to subscribers.
type Center struct {
	mu     sync.Mutex
	nextID int64
	active []Notification
	subs   map[int]func(Notification)
	subSeq int
	now    func() time.Time
}

var _ Notifier = (*Center)(nil)

// NewCenter creates an empty Center.
func NewCenter() *Center {
	return &Center{
		subs: make(map[int]func(Notification)),
		now:  time.Now,
	}
}

// Notify publishes a notification with the default TTL.
func (c *Center) Notify(level Level, message string) {
	c.publish(Notification{Level: level, Message: message})
}

// Error publishes an error notification. The first user hint attached to
// err, if any, is carried along.
func (c *Center) Error(message string, err error) {
	n := Notification{Level: LevelError, Message: message}
	if err != nil {
		if hints := errors.GetAllHints(err); len(hints) > 0 {
			n.Hint = hints[0]
		}
	}
	c.publish(n)
}

func (c *Center) publish(n Notification) {
	c.mu.Lock()
	c.nextID++
	n.ID = c.nextID
	n.At = c.now()
	if n.TTL == 0 {
		n.TTL = DefaultTTL
	}
	c.active = append(c.active, n)
	subs := make([]func(Notification), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Active returns the notifications that have not expired, oldest first,
// and drops expired ones.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	kept := c.active[:0]
	for _, n := range c.active {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	c.active = kept

	out := make([]Notification, len(kept))
	copy(out, kept)
	return out
}

// Dismiss removes a notification by ID.
func (c *Center) Dismiss(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.active {
		if n.ID == id {
			c.active = append(c.active[:i], c.active[i+1:]...)
			return
		}
	}
}

// Subscribe registers fn for every future notification and returns a
// function that removes the subscription.
func (c *Center) Subscribe(fn func(Notification)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subSeq++
	id := c.subSeq
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Notify(Level, string) {}
func (Discard) Error(string, error)  {}
