package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"qa-live-service/internal/domain"
)

const subscriberBuffer = 8

// Notifier fans group states out across instances through Redis pub/sub.
type Notifier struct {
	client *redis.Client
	logger *slog.Logger
}

func NewNotifier(client *redis.Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, logger: logger}
}

func (n *Notifier) Publish(ctx context.Context, state domain.GroupState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode group state: %w", err)
	}
	if err := n.client.Publish(ctx, eventsChannel(state.GroupID), data).Err(); err != nil {
		return fmt.Errorf("publish group state: %w", err)
	}
	return nil
}

func (n *Notifier) Subscribe(ctx context.Context, groupID string) (<-chan domain.GroupState, func(), error) {
	ps := n.client.Subscribe(ctx, eventsChannel(groupID))
	// wait for the subscription confirmation so no publish after return is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe group %s: %w", groupID, err)
	}

	out := make(chan domain.GroupState, subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var state domain.GroupState
				if err := json.Unmarshal([]byte(msg.Payload), &state); err != nil {
					n.logger.Warn("dropping malformed group state", "group_id", groupID, "err", err)
					continue
				}
				deliverLatest(out, state)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
	return out, cancel, nil
}

// deliverLatest drops the oldest pending state when the subscriber lags.
func deliverLatest(ch chan domain.GroupState, state domain.GroupState) {
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
