// Package events is the in-process notification channel between the
// reconciliation core and dependent views (dashboard, vehicle table).
// Publishing is fire-and-forget: it never blocks and does not require any
// subscriber to exist.
package events

import "sync"

const (
	OrderCreated       = "orderCreated"
	OrderStatusUpdated = "orderStatusUpdated"
	OrderStatusChanged = "orderStatusChanged"
	NewPendingOrders   = "newPendingOrders"
)

// Event carries the order identity the subscribers need for re-derivation.
// Count is only set on NewPendingOrders: how many pending reservations
// arrived since the previous reconciliation pass.
type Event struct {
	Topic     string `json:"topic"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status,omitempty"`
	VehicleID string `json:"vehicle_id,omitempty"`
	Count     int    `json:"count,omitempty"`
}

type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe returns a channel receiving every event published on topic.
// Slow subscribers drop events rather than blocking publishers.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the event to current subscribers without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e.Topic] {
		select {
		case ch <- e:
		default:
			// subscriber is not keeping up; drop
		}
	}
}
