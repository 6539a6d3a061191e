package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"melee-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ErrNoArchivedResults is returned when a player has no archived raw
// payload.
var ErrNoArchivedResults = errors.New("no archived results")

// ResultRepository archives the raw provider payloads, one row per
// fetch, so a run can be rebuilt without re-hitting the API.
type ResultRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewResultRepository(sqlDB *sql.DB, logger zerolog.Logger) *ResultRepository {
	return &ResultRepository{db: sqlDB, logger: logger}
}

// Insert stores one raw results payload (already gzip-compressed JSON).
func (r *ResultRepository) Insert(ctx context.Context, playerID domain.PlayerID, payload []byte) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO raw_results (id, player_id, payload, fetched_at) VALUES (?, ?, ?, ?)`,
		id, playerID, payload, time.Now())
	if err != nil {
		return fmt.Errorf("insert raw results for %s: %w", playerID, err)
	}

	r.logger.Debug().
		Str("player_id", string(playerID)).
		Int("payload_bytes", len(payload)).
		Msg("raw results archived")
	return nil
}

// Latest returns the most recently fetched payload for a player.
func (r *ResultRepository) Latest(ctx context.Context, playerID domain.PlayerID) ([]byte, time.Time, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM raw_results
		 WHERE player_id = ? ORDER BY fetched_at DESC LIMIT 1`,
		playerID)

	var payload []byte
	var fetchedAt time.Time
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, fmt.Errorf("player %s: %w", playerID, ErrNoArchivedResults)
		}
		return nil, time.Time{}, fmt.Errorf("load raw results for %s: %w", playerID, err)
	}
	return payload, fetchedAt, nil
}
