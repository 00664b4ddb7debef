package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"qa-live-service/internal/domain"
)

type groupStateRow struct {
	bun.BaseModel `bun:"table:group_states"`

	GroupID string            `bun:"group_id,pk"`
	Status  string            `bun:"status"`
	Version int64             `bun:"version"`
	Data    domain.GroupState `bun:"data,type:jsonb"`
}

// GroupStateStore keeps one row per group; version checks run inside the statements.
type GroupStateStore struct {
	db *bun.DB
}

func NewGroupStateStore(db *bun.DB) *GroupStateStore {
	return &GroupStateStore{db: db}
}

func (s *GroupStateStore) Get(ctx context.Context, groupID string) (domain.GroupState, error) {
	var row groupStateRow
	err := s.db.NewSelect().Model(&row).Where("group_id = ?", groupID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GroupState{}, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupID)
	}
	if err != nil {
		return domain.GroupState{}, fmt.Errorf("get group state: %w", err)
	}
	return row.state(), nil
}

func (s *GroupStateStore) Put(ctx context.Context, state domain.GroupState, expectedVersion int64) (domain.GroupState, error) {
	state.Version = 0
	data, err := json.Marshal(state)
	if err != nil {
		return domain.GroupState{}, fmt.Errorf("encode group state: %w", err)
	}

	var (
		query string
		args  []interface{}
	)
	switch {
	case expectedVersion == domain.AnyVersion:
		query = `INSERT INTO group_states (group_id, status, version, data, modified_at)
			VALUES (?, ?, 1, ?, ?)
			ON CONFLICT (group_id) DO UPDATE SET
				status = EXCLUDED.status,
				data = EXCLUDED.data,
				modified_at = EXCLUDED.modified_at,
				version = group_states.version + 1
			RETURNING version`
		args = []interface{}{state.GroupID, string(state.Status), string(data), state.ModifiedAt}
	case expectedVersion == 0:
		query = `INSERT INTO group_states (group_id, status, version, data, modified_at)
			VALUES (?, ?, 1, ?, ?)
			ON CONFLICT (group_id) DO NOTHING
			RETURNING version`
		args = []interface{}{state.GroupID, string(state.Status), string(data), state.ModifiedAt}
	default:
		query = `UPDATE group_states SET
				status = ?, data = ?, modified_at = ?, version = version + 1
			WHERE group_id = ? AND version = ?
			RETURNING version`
		args = []interface{}{string(state.Status), string(data), state.ModifiedAt, state.GroupID, expectedVersion}
	}

	var version int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GroupState{}, fmt.Errorf("%w: group %s is not at version %d",
			domain.ErrStoreConflict, state.GroupID, expectedVersion)
	}
	if err != nil {
		return domain.GroupState{}, fmt.Errorf("put group state: %w", err)
	}
	state.Version = version
	return state, nil
}

func (s *GroupStateStore) ListByStatus(ctx context.Context, status domain.QAStatus) ([]domain.GroupState, error) {
	var rows []groupStateRow
	err := s.db.NewSelect().Model(&rows).
		Where("status = ?", string(status)).
		Order("group_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list group states: %w", err)
	}
	out := make([]domain.GroupState, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.state())
	}
	return out, nil
}

func (r groupStateRow) state() domain.GroupState {
	state := r.Data
	state.GroupID = r.GroupID
	state.Version = r.Version
	return state
}
