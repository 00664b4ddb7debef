package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"qa-live-service/internal/domain"
)

// GroupStateStore is an in-memory group state store.
type GroupStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.GroupState
}

func NewGroupStateStore() *GroupStateStore {
	return &GroupStateStore{states: make(map[string]domain.GroupState)}
}

func (s *GroupStateStore) Get(_ context.Context, groupID string) (domain.GroupState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[groupID]
	if !ok {
		return domain.GroupState{}, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupID)
	}
	return cloneState(state), nil
}

func (s *GroupStateStore) Put(_ context.Context, state domain.GroupState, expectedVersion int64) (domain.GroupState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.states[state.GroupID].Version
	if expectedVersion != domain.AnyVersion && current != expectedVersion {
		return domain.GroupState{}, fmt.Errorf("%w: group %s is at version %d, expected %d",
			domain.ErrStoreConflict, state.GroupID, current, expectedVersion)
	}
	state.Version = current + 1
	s.states[state.GroupID] = cloneState(state)
	return state, nil
}

func (s *GroupStateStore) ListByStatus(_ context.Context, status domain.QAStatus) ([]domain.GroupState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.GroupState, 0)
	for _, state := range s.states {
		if state.Status == status {
			out = append(out, cloneState(state))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out, nil
}

// cloneState detaches the option slice so callers cannot mutate stored payloads.
func cloneState(state domain.GroupState) domain.GroupState {
	state.Payload.Options = append([]domain.BroadcastOption(nil), state.Payload.Options...)
	return state
}
