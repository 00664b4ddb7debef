package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createContentSQL = `
CREATE TABLE IF NOT EXISTS questions (
	id          TEXT PRIMARY KEY,
	entity_id   TEXT NOT NULL DEFAULT '',
	group_id    TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	data        JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS questions_group_session_idx ON questions (group_id, session_id);

CREATE TABLE IF NOT EXISTS participants (
	group_id        TEXT NOT NULL,
	participant_id  TEXT NOT NULL,
	user_id         TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	modified_at     TIMESTAMPTZ NOT NULL,
	modified_by     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (group_id, participant_id)
);
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createContentSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS participants; DROP TABLE IF EXISTS questions`)
			return err
		},
	)
}
