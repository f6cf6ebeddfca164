package leads

import "sync"

// EventType identifies what changed in the lead set.
type EventType string

const (
	EventAdded        EventType = "added"
	EventRemoved      EventType = "removed"
	EventStateChanged EventType = "state_changed"
	EventNotesChanged EventType = "notes_changed"
)

// Event is published after every successful mutation so dependent views can
// refresh without polling.
type Event struct {
	Type   EventType `json:"type"`
	LeadID string    `json:"leadId"`
}

// Notifier is a subscription-based fan-out of lead-set changes.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of future events and a cancel function. The
// channel is buffered; a subscriber that falls behind misses events rather
// than blocking mutations.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan Event, 16)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
