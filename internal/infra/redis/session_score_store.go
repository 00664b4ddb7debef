package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"qa-live-service/internal/domain"
)

// SessionScoreStore keeps running totals as hashes incremented atomically in a MULTI block.
type SessionScoreStore struct {
	client *redis.Client
}

func NewSessionScoreStore(client *redis.Client) *SessionScoreStore {
	return &SessionScoreStore{client: client}
}

func (s *SessionScoreStore) Add(ctx context.Context, delta domain.SessionScore) (domain.SessionScore, error) {
	member := delta.ParticipantID + domain.KeySeparator + delta.SessionID
	key := scoreKey(delta.GroupID, member)

	var (
		score     *redis.FloatCmd
		scoreMax  *redis.IntCmd
		responses *redis.IntCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		score = pipe.HIncrByFloat(ctx, key, "score", delta.Score)
		scoreMax = pipe.HIncrBy(ctx, key, "scoreMax", int64(delta.ScoreMax))
		responses = pipe.HIncrBy(ctx, key, "responses", int64(delta.Responses))
		pipe.HSet(ctx, key, "modifiedAt", delta.ModifiedAt.UTC().Format(time.RFC3339Nano))
		pipe.SAdd(ctx, scoreIndexKey(delta.GroupID), member)
		return nil
	})
	if err != nil {
		return domain.SessionScore{}, fmt.Errorf("add session score: %w", err)
	}
	return domain.SessionScore{
		GroupID:       delta.GroupID,
		ParticipantID: delta.ParticipantID,
		SessionID:     delta.SessionID,
		Score:         score.Val(),
		ScoreMax:      int(scoreMax.Val()),
		Responses:     int(responses.Val()),
		ModifiedAt:    delta.ModifiedAt,
	}, nil
}

func (s *SessionScoreStore) List(ctx context.Context, groupID, participantID, sessionID string) ([]domain.SessionScore, error) {
	members, err := s.client.SMembers(ctx, scoreIndexKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list session scores: %w", err)
	}

	type pending struct {
		participantID, sessionID string
		cmd                      *redis.MapStringStringCmd
	}
	var loads []pending
	pipe := s.client.Pipeline()
	for _, member := range members {
		parts := strings.SplitN(member, domain.KeySeparator, 2)
		if len(parts) != 2 {
			continue
		}
		if participantID != "" && parts[0] != participantID {
			continue
		}
		if sessionID != "" && parts[1] != sessionID {
			continue
		}
		loads = append(loads, pending{parts[0], parts[1], pipe.HGetAll(ctx, scoreKey(groupID, member))})
	}
	out := make([]domain.SessionScore, 0, len(loads))
	if len(loads) == 0 {
		return out, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load session scores: %w", err)
	}

	for _, load := range loads {
		fields := load.cmd.Val()
		total := domain.SessionScore{GroupID: groupID, ParticipantID: load.participantID, SessionID: load.sessionID}
		total.Score, _ = strconv.ParseFloat(fields["score"], 64)
		total.ScoreMax, _ = strconv.Atoi(fields["scoreMax"])
		total.Responses, _ = strconv.Atoi(fields["responses"])
		total.ModifiedAt, _ = time.Parse(time.RFC3339Nano, fields["modifiedAt"])
		out = append(out, total)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ParticipantID != out[j].ParticipantID {
			return out[i].ParticipantID < out[j].ParticipantID
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out, nil
}
