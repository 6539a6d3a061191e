package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"melee-tracker/internal/constants"
	"melee-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: sqlDB, logger: logger}
}

type PlayerRow struct {
	ID         domain.PlayerID
	Tag        string
	BadgeCount int
}

const upsertPlayerSQL = `
INSERT INTO players (id, tag, badge_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    tag = excluded.tag,
    badge_count = excluded.badge_count,
    updated_at = excluded.updated_at`

func (r *PlayerRepository) Upsert(ctx context.Context, row PlayerRow) error {
	now := time.Now()
	if _, err := r.db.ExecContext(ctx, upsertPlayerSQL, row.ID, row.Tag, row.BadgeCount, now, now); err != nil {
		return fmt.Errorf("upsert player %s: %w", row.ID, err)
	}
	return nil
}

func (r *PlayerRepository) UpsertBatch(ctx context.Context, rows []PlayerRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for i := 0; i < len(rows); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(rows))
		for _, row := range rows[i:end] {
			if _, err := tx.ExecContext(ctx, upsertPlayerSQL, row.ID, row.Tag, row.BadgeCount, now, now); err != nil {
				return fmt.Errorf("upsert player %s: %w", row.ID, err)
			}
		}
	}

	return tx.Commit()
}

func (r *PlayerRepository) Get(ctx context.Context, id domain.PlayerID) (*PlayerRow, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, tag, badge_count FROM players WHERE id = ?`, id)

	var out PlayerRow
	if err := row.Scan(&out.ID, &out.Tag, &out.BadgeCount); err != nil {
		return nil, fmt.Errorf("get player %s: %w", id, err)
	}
	return &out, nil
}

func (r *PlayerRepository) All(ctx context.Context) ([]PlayerRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tag, badge_count FROM players ORDER BY badge_count DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []PlayerRow
	for rows.Next() {
		var p PlayerRow
		if err := rows.Scan(&p.ID, &p.Tag, &p.BadgeCount); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
