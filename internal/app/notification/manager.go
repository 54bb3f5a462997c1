// Package notification fans player statuses out to subscribers.
package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/app/playback"
)

// Notification is a status stamped with delivery metadata.
type Notification struct {
	SequenceNo uint64
	Time       time.Time
	Status     playback.Status
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// StreamFunc adapts a function to Stream.
type StreamFunc func(*Notification) error

// Send calls f(n).
func (f StreamFunc) Send(n *Notification) error {
	return f(n)
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// DefaultSendTimeout bounds a single delivery to one subscriber.
const DefaultSendTimeout = 500 * time.Millisecond

// Manager fans statuses out to its subscriptions.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    atomic.Uint64
	sendTimeout   time.Duration
}

// NewManager creates a manager. A non-positive sendTimeout uses
// DefaultSendTimeout.
func NewManager(sendTimeout time.Duration) *Manager {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   sendTimeout,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast stamps st with the next sequence number and sends it to all
// subscribers. Each send runs in its own goroutine with a timeout so a slow
// subscriber cannot hold up the others.
func (m *Manager) Broadcast(st playback.Status) *Notification {
	n := &Notification{
		SequenceNo: m.sequenceNo.Add(1),
		Time:       time.Now(),
		Status:     st,
	}

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(n)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Warn().Err(err).Msgf("notification: subscriber %s", s.id)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: subscriber %s timed out", s.id)
			}
		}(sub)
	}

	wg.Wait()
	return n
}

// Pump broadcasts every status from the channel until it is closed or ctx
// is done.
func (m *Manager) Pump(ctx context.Context, statuses <-chan playback.Status) {
	for {
		select {
		case st, ok := <-statuses:
			if !ok {
				return
			}
			m.Broadcast(st)
		case <-ctx.Done():
			return
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
