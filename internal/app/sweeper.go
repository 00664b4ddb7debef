package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"qa-live-service/internal/domain"
)

// CloseExpired writes the close for every opened question past its deadline and
// returns how many it closed. A state that changed since it was listed is left alone.
func (s *QAService) CloseExpired(ctx context.Context) (int, error) {
	states, err := s.groups.ListByStatus(ctx, domain.QAOpened)
	if err != nil {
		return 0, err
	}

	now := s.now()
	closed := 0
	for _, state := range states {
		if !state.Expired(now) {
			continue
		}
		state.Status = domain.QAClosed
		state.ModifiedBy = domain.SystemPrincipal.Name()
		state.ModifiedAt = now
		stored, err := s.groups.Put(ctx, state, state.Version)
		if errors.Is(err, domain.ErrStoreConflict) {
			continue
		}
		if err != nil {
			return closed, err
		}
		closed++
		s.logger.Info("question expired", "group_id", stored.GroupID, "question_id", stored.QuestionID, "version", stored.Version)
		s.publish(ctx, stored)
	}
	return closed, nil
}

// Sweeper periodically closes expired questions so correctness does not depend on
// a client countdown calling close.
type Sweeper struct {
	service  *QAService
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(service *QAService, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run sweeps until ctx is canceled.
func (sw *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	sw.logger.Info("expiry sweeper started", "interval", sw.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sw.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep, logging instead of failing.
func (sw *Sweeper) RunOnce(ctx context.Context) {
	closed, err := sw.service.CloseExpired(ctx)
	if err != nil && ctx.Err() == nil {
		sw.logger.Error("expiry sweep", "err", err)
		return
	}
	if closed > 0 {
		sw.logger.Debug("expiry sweep", "closed", closed)
	}
}
