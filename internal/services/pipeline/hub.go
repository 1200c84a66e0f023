package pipeline

import "sync"

// Event types emitted to the presentation layer.
const (
	EventInvoiceUpdated  = "invoice-updated"
	EventProcessingError = "processing-error"
)

type Event struct {
	Type      string `json:"type"`
	InvoiceID string `json:"invoice_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Hub fans pipeline events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event and catches up from the
// repository on its next read.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener; the returned func unsubscribes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
