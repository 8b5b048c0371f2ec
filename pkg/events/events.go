package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventPodCreated    EventType = "pod.created"
	EventPodScheduled  EventType = "pod.scheduled"
	EventPodStarted    EventType = "pod.started"
	EventPodStopped    EventType = "pod.stopped"
	EventPodFailed     EventType = "pod.failed"
	EventPodEvicted    EventType = "pod.evicted"
	EventPodDeleted    EventType = "pod.deleted"
	EventPodRolledBack EventType = "pod.rolled_back"

	EventNodeRegistered  EventType = "node.registered"
	EventNodeReconnected EventType = "node.reconnected"
	EventNodeOffline     EventType = "node.offline"
	EventNodeUnhealthy   EventType = "node.unhealthy"
	EventNodeCordoned    EventType = "node.cordoned"
	EventNodeUncordoned  EventType = "node.uncordoned"
	EventNodeDraining    EventType = "node.draining"

	EventNamespaceCreated     EventType = "namespace.created"
	EventNamespaceTerminating EventType = "namespace.terminating"
	EventNamespaceDeleted     EventType = "namespace.deleted"

	EventPackRegistered EventType = "pack.registered"
	EventPackDeleted    EventType = "pack.deleted"

	EventSecretCreated EventType = "secret.created"
	EventSecretUpdated EventType = "secret.updated"
	EventSecretDeleted EventType = "secret.deleted"

	EventSessionInstalled EventType = "auth.session.installed"
	EventSessionRefreshed EventType = "auth.session.refreshed"
	EventSessionCleared   EventType = "auth.session.cleared"
)

// Event represents a cluster event
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// New builds an event with a fresh ID. Metadata pairs are given as
// alternating key, value strings.
func New(eventType EventType, message string, kv ...string) *Event {
	e := &Event{
		ID:      uuid.New().String(),
		Type:    eventType,
		Message: message,
	}
	if len(kv) > 0 {
		e.Metadata = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Metadata[kv[i]] = kv[i+1]
		}
	}
	return e
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker and waits for the distribution loop to exit.
// Safe to call more than once.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
	})
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	// Set timestamp if not set
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	defer close(b.doneCh)
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
