package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"qa-live-service/internal/domain"
)

// ParticipantStore keeps a group's roster in one hash.
type ParticipantStore struct {
	client *redis.Client
}

func NewParticipantStore(client *redis.Client) *ParticipantStore {
	return &ParticipantStore{client: client}
}

func (s *ParticipantStore) Get(ctx context.Context, groupID, participantID string) (domain.Participant, error) {
	raw, err := s.client.HGet(ctx, participantsKey(groupID), participantID).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Participant{}, fmt.Errorf("%w: %s", domain.ErrParticipantNotFound, participantID)
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return decodeParticipant(raw)
}

func (s *ParticipantStore) Upsert(ctx context.Context, participant domain.Participant) (domain.Participant, error) {
	key := participantsKey(participant.GroupID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, participant.ParticipantID).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			if existing, decodeErr := decodeParticipant(raw); decodeErr == nil && !existing.CreatedAt.IsZero() {
				participant.CreatedAt = existing.CreatedAt
			}
		}
		data, err := json.Marshal(participant)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, participant.ParticipantID, data)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.Participant{}, fmt.Errorf("%w: participant %s changed concurrently", domain.ErrStoreConflict, participant.ParticipantID)
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("upsert participant: %w", err)
	}
	return participant, nil
}

func (s *ParticipantStore) List(ctx context.Context, groupID string) ([]domain.Participant, error) {
	values, err := s.client.HVals(ctx, participantsKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	out := make([]domain.Participant, 0, len(values))
	for _, raw := range values {
		participant, err := decodeParticipant(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, participant)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}

func decodeParticipant(raw string) (domain.Participant, error) {
	var participant domain.Participant
	if err := json.Unmarshal([]byte(raw), &participant); err != nil {
		return domain.Participant{}, fmt.Errorf("decode participant: %w", err)
	}
	return participant, nil
}
