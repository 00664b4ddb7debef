package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"qa-live-service/internal/domain"
)

// insertResponseScript stores the response only if its key is unused and indexes it.
var insertResponseScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('ZADD', KEYS[2], 0, ARGV[2])
return 1
`)

const scanBatch = 200

// ResponseLogStore keeps each response as its own key plus a lexicographic index per group.
type ResponseLogStore struct {
	client *redis.Client
}

func NewResponseLogStore(client *redis.Client) *ResponseLogStore {
	return &ResponseLogStore{client: client}
}

func (s *ResponseLogStore) Insert(ctx context.Context, entry domain.ResponseLog) error {
	key := entry.Key()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	created, err := insertResponseScript.Run(ctx, s.client,
		[]string{responseKey(key.GroupID, key.SortKey()), responseIndexKey(key.GroupID)},
		string(data), key.SortKey(),
	).Int()
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	if created == 0 {
		return fmt.Errorf("%w: participant %s, question %s", domain.ErrDuplicateResponse, key.ParticipantID, key.QuestionID)
	}
	return nil
}

func (s *ResponseLogStore) List(ctx context.Context, query domain.ResponseQuery) (domain.ResponsePage, error) {
	lo, hi := lexRange(query)

	// Collect one key more than requested to know whether another page exists.
	var sortKeys []string
	for offset := int64(0); ; offset += scanBatch {
		members, err := s.client.ZRangeByLex(ctx, responseIndexKey(query.GroupID), &redis.ZRangeBy{
			Min:    lo,
			Max:    hi,
			Offset: offset,
			Count:  scanBatch,
		}).Result()
		if err != nil {
			return domain.ResponsePage{}, fmt.Errorf("scan responses: %w", err)
		}
		for _, member := range members {
			if memberMatches(query, member) {
				sortKeys = append(sortKeys, member)
			}
		}
		if len(members) < scanBatch || (query.Limit > 0 && len(sortKeys) > query.Limit) {
			break
		}
	}

	page := domain.ResponsePage{Items: make([]domain.ResponseLog, 0)}
	if query.Limit > 0 && len(sortKeys) > query.Limit {
		sortKeys = sortKeys[:query.Limit]
		page.NextCursor = sortKeys[len(sortKeys)-1]
	}
	if len(sortKeys) == 0 {
		return page, nil
	}

	keys := make([]string, len(sortKeys))
	for i, sortKey := range sortKeys {
		keys[i] = responseKey(query.GroupID, sortKey)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return domain.ResponsePage{}, fmt.Errorf("load responses: %w", err)
	}
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var entry domain.ResponseLog
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return domain.ResponsePage{}, fmt.Errorf("decode response: %w", err)
		}
		page.Items = append(page.Items, entry)
	}
	return page, nil
}

// lexRange narrows the index scan to the cursor and, when filtered, to one participant.
func lexRange(query domain.ResponseQuery) (string, string) {
	lo, hi := "-", "+"
	prefix := ""
	if query.ParticipantID != "" {
		prefix = query.ParticipantID + domain.KeySeparator
		lo = "[" + prefix
		// '$' sorts right after '#'
		hi = "(" + query.ParticipantID + "$"
	}
	if query.Cursor != "" && query.Cursor >= prefix {
		lo = "(" + query.Cursor
	}
	return lo, hi
}

func memberMatches(query domain.ResponseQuery, member string) bool {
	parts := strings.SplitN(member, domain.KeySeparator, 3)
	if len(parts) != 3 {
		return false
	}
	return query.Matches(domain.ResponseLog{ParticipantID: parts[0], SessionID: parts[1], QuestionID: parts[2]})
}
