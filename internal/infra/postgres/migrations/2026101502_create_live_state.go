package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createLiveStateSQL = `
CREATE TABLE IF NOT EXISTS group_states (
	group_id     TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	version      BIGINT NOT NULL,
	data         JSONB NOT NULL,
	modified_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS group_states_status_idx ON group_states (status);

CREATE TABLE IF NOT EXISTS response_logs (
	group_id        TEXT NOT NULL,
	sort_key        TEXT NOT NULL,
	participant_id  TEXT NOT NULL,
	session_id      TEXT NOT NULL,
	question_id     TEXT NOT NULL,
	data            JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (group_id, sort_key)
);
CREATE INDEX IF NOT EXISTS response_logs_question_idx ON response_logs (group_id, question_id);

CREATE TABLE IF NOT EXISTS session_scores (
	group_id        TEXT NOT NULL,
	participant_id  TEXT NOT NULL,
	session_id      TEXT NOT NULL,
	score           DOUBLE PRECISION NOT NULL DEFAULT 0,
	score_max       INTEGER NOT NULL DEFAULT 0,
	responses       INTEGER NOT NULL DEFAULT 0,
	modified_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (group_id, participant_id, session_id)
);
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createLiveStateSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS session_scores; DROP TABLE IF EXISTS response_logs; DROP TABLE IF EXISTS group_states`)
			return err
		},
	)
}
