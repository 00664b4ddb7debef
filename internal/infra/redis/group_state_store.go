package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"qa-live-service/internal/domain"
)

// putStateScript writes the state when the stored version matches ARGV[1]
// (negative skips the check). It returns {1, newVersion} or {0, currentVersion}.
var putStateScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], 'version') or '0')
local expected = tonumber(ARGV[1])
if expected >= 0 and current ~= expected then
	return {0, current}
end
local nextVersion = current + 1
redis.call('HSET', KEYS[1], 'version', nextVersion, 'data', ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
return {1, nextVersion}
`)

// GroupStateStore keeps one hash per group; writes go through a compare-and-set script.
type GroupStateStore struct {
	client *redis.Client
}

func NewGroupStateStore(client *redis.Client) *GroupStateStore {
	return &GroupStateStore{client: client}
}

func (s *GroupStateStore) Get(ctx context.Context, groupID string) (domain.GroupState, error) {
	fields, err := s.client.HGetAll(ctx, groupKey(groupID)).Result()
	if err != nil {
		return domain.GroupState{}, fmt.Errorf("get group state: %w", err)
	}
	if len(fields) == 0 {
		return domain.GroupState{}, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupID)
	}
	return decodeState(fields)
}

func (s *GroupStateStore) Put(ctx context.Context, state domain.GroupState, expectedVersion int64) (domain.GroupState, error) {
	state.Version = 0
	data, err := json.Marshal(state)
	if err != nil {
		return domain.GroupState{}, fmt.Errorf("encode group state: %w", err)
	}

	res, err := putStateScript.Run(ctx, s.client,
		[]string{groupKey(state.GroupID), groupsKey()},
		expectedVersion, string(data), state.GroupID,
	).Int64Slice()
	if err != nil {
		return domain.GroupState{}, fmt.Errorf("put group state: %w", err)
	}
	if len(res) != 2 {
		return domain.GroupState{}, fmt.Errorf("put group state: unexpected reply %v", res)
	}
	if res[0] == 0 {
		return domain.GroupState{}, fmt.Errorf("%w: group %s is at version %d, expected %d",
			domain.ErrStoreConflict, state.GroupID, res[1], expectedVersion)
	}
	state.Version = res[1]
	return state, nil
}

func (s *GroupStateStore) ListByStatus(ctx context.Context, status domain.QAStatus) ([]domain.GroupState, error) {
	groupIDs, err := s.client.SMembers(ctx, groupsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(groupIDs))
	for i, groupID := range groupIDs {
		cmds[i] = pipe.HGetAll(ctx, groupKey(groupID))
	}
	if len(cmds) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("load groups: %w", err)
		}
	}

	out := make([]domain.GroupState, 0)
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		state, err := decodeState(fields)
		if err != nil {
			return nil, err
		}
		if state.Status == status {
			out = append(out, state)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out, nil
}

func decodeState(fields map[string]string) (domain.GroupState, error) {
	var state domain.GroupState
	if err := json.Unmarshal([]byte(fields["data"]), &state); err != nil {
		return domain.GroupState{}, fmt.Errorf("decode group state: %w", err)
	}
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return domain.GroupState{}, errors.New("decode group state: bad version")
	}
	state.Version = version
	return state, nil
}
