package memory

import (
	"context"
	"sync"

	"qa-live-service/internal/domain"
)

const subscriberBuffer = 8

// Hub is an in-process Notifier. Slow subscribers lose their oldest pending update.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.GroupState]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan domain.GroupState]struct{})}
}

func (h *Hub) Publish(_ context.Context, state domain.GroupState) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[state.GroupID] {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, groupID string) (<-chan domain.GroupState, func(), error) {
	ch := make(chan domain.GroupState, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.subscribers[groupID]
	if !ok {
		subs = make(map[chan domain.GroupState]struct{})
		h.subscribers[groupID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[groupID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, groupID)
		}
	}
	return ch, cancel, nil
}

// Subscribers reports how many listeners a group has. It is a diagnostics API;
// delivery never consults it.
func (h *Hub) Subscribers(groupID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[groupID])
}
