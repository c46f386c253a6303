package service

import (
	"sync"

	"github.com/google/uuid"

	"github.com/evalbridge/evalbridge/internal/domain"
)

// RealtimeHub fans aggregation state snapshots out to event stream
// subscribers. Slow subscribers are skipped rather than blocking the
// aggregation path; each buffered channel holds the most recent snapshots
// and a consumer that falls behind simply misses intermediate states.
type RealtimeHub struct {
	mu          sync.Mutex
	subscribers map[instanceKey]map[chan *domain.AggregationState]struct{}
}

// NewRealtimeHub creates an empty hub
func NewRealtimeHub() *RealtimeHub {
	return &RealtimeHub{
		subscribers: make(map[instanceKey]map[chan *domain.AggregationState]struct{}),
	}
}

// Subscribe registers a listener for one form's aggregation updates. The
// returned cancel func must be called when the consumer goes away.
func (h *RealtimeHub) Subscribe(projectID uuid.UUID, formID string) (<-chan *domain.AggregationState, func()) {
	key := instanceKey{projectID: projectID, formID: formID}
	ch := make(chan *domain.AggregationState, 16)

	h.mu.Lock()
	if h.subscribers[key] == nil {
		h.subscribers[key] = make(map[chan *domain.AggregationState]struct{})
	}
	h.subscribers[key][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[key]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, key)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the form
func (h *RealtimeHub) Publish(projectID uuid.UUID, formID string, state *domain.AggregationState) {
	key := instanceKey{projectID: projectID, formID: formID}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers[key] {
		select {
		case ch <- state:
		default:
		}
	}
}
