package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"qa-live-service/internal/domain"
)

// ParticipantStore is an in-memory group roster.
type ParticipantStore struct {
	mu     sync.RWMutex
	groups map[string]map[string]domain.Participant
}

func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{groups: make(map[string]map[string]domain.Participant)}
}

func (s *ParticipantStore) Get(_ context.Context, groupID, participantID string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.groups[groupID][participantID]
	if !ok {
		return domain.Participant{}, fmt.Errorf("%w: %s", domain.ErrParticipantNotFound, participantID)
	}
	return participant, nil
}

func (s *ParticipantStore) Upsert(_ context.Context, participant domain.Participant) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.groups[participant.GroupID]
	if !ok {
		roster = make(map[string]domain.Participant)
		s.groups[participant.GroupID] = roster
	}
	if existing, ok := roster[participant.ParticipantID]; ok && !existing.CreatedAt.IsZero() {
		participant.CreatedAt = existing.CreatedAt
	}
	roster[participant.ParticipantID] = participant
	return participant, nil
}

func (s *ParticipantStore) List(_ context.Context, groupID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, 0, len(s.groups[groupID]))
	for _, participant := range s.groups[groupID] {
		out = append(out, participant)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}
