package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"qa-live-service/internal/domain"
)

// ResponseLogStore keeps responses per group, indexed by sort key.
type ResponseLogStore struct {
	mu     sync.RWMutex
	groups map[string]map[string]domain.ResponseLog
}

func NewResponseLogStore() *ResponseLogStore {
	return &ResponseLogStore{groups: make(map[string]map[string]domain.ResponseLog)}
}

func (s *ResponseLogStore) Insert(_ context.Context, entry domain.ResponseLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entry.Key()
	byKey, ok := s.groups[key.GroupID]
	if !ok {
		byKey = make(map[string]domain.ResponseLog)
		s.groups[key.GroupID] = byKey
	}
	if _, exists := byKey[key.SortKey()]; exists {
		return fmt.Errorf("%w: participant %s, question %s", domain.ErrDuplicateResponse, key.ParticipantID, key.QuestionID)
	}
	byKey[key.SortKey()] = entry
	return nil
}

func (s *ResponseLogStore) List(_ context.Context, query domain.ResponseQuery) (domain.ResponsePage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := s.groups[query.GroupID]
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		if k > query.Cursor {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	page := domain.ResponsePage{Items: make([]domain.ResponseLog, 0)}
	for _, k := range keys {
		entry := byKey[k]
		if !query.Matches(entry) {
			continue
		}
		if query.Limit > 0 && len(page.Items) == query.Limit {
			page.NextCursor = page.Items[len(page.Items)-1].Key().SortKey()
			break
		}
		page.Items = append(page.Items, entry)
	}
	return page, nil
}
