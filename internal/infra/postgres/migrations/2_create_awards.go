package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createAwardsSQL = `
CREATE TABLE IF NOT EXISTS player_xp (
	user_id TEXT PRIMARY KEY,
	xp INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS xp_awards (
	session_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	xp_earned INTEGER NOT NULL,
	old_xp INTEGER NOT NULL,
	new_xp INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createAwardsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`DROP TABLE IF EXISTS xp_awards; DROP TABLE IF EXISTS player_xp`)
			return err
		},
	)
}
