package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"melee-tracker/internal/constants"
	"melee-tracker/internal/domain"
	"melee-tracker/internal/ingest"

	"github.com/rs/zerolog"
)

// SetRepository archives the run's deduplicated sets and the in-scope
// tournaments they belong to. The ledger itself lives in memory for the
// duration of a run; this table is the durable trail.
type SetRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSetRepository(sqlDB *sql.DB, logger zerolog.Logger) *SetRepository {
	return &SetRepository{db: sqlDB, logger: logger}
}

const upsertSetSQL = `
INSERT INTO sets (winner_id, loser_id, tournament_id, set_id,
                  winner_score, loser_score, has_scores, played_at,
                  created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (winner_id, loser_id, tournament_id, set_id) DO UPDATE SET
    winner_score = excluded.winner_score,
    loser_score = excluded.loser_score,
    has_scores = excluded.has_scores,
    played_at = excluded.played_at,
    updated_at = excluded.updated_at`

func (r *SetRepository) UpsertBatch(ctx context.Context, sets []ingest.RecordedSet) error {
	if len(sets) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for i := 0; i < len(sets); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(sets))
		for _, s := range sets[i:end] {
			_, err := tx.ExecContext(ctx, upsertSetSQL,
				s.Winner, s.Loser, s.TournamentID, s.SetID,
				s.WinnerScore, s.LoserScore, s.HasScores, s.PlayedAt,
				now, now)
			if err != nil {
				return fmt.Errorf("upsert set %s/%s: %w", s.TournamentID, s.SetID, err)
			}
		}
	}

	return tx.Commit()
}

const upsertTournamentSQL = `
INSERT INTO tournaments (id, name, start_time, online, attendees, location,
                         created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    start_time = excluded.start_time,
    online = excluded.online,
    attendees = excluded.attendees,
    location = excluded.location,
    updated_at = excluded.updated_at`

func (r *SetRepository) UpsertTournaments(ctx context.Context, tournaments []domain.Tournament) error {
	if len(tournaments) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, t := range tournaments {
		_, err := tx.ExecContext(ctx, upsertTournamentSQL,
			t.ID, t.Name, t.StartTime, t.Online, t.Attendees, t.Location, now, now)
		if err != nil {
			return fmt.Errorf("upsert tournament %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// CountBetween returns how many archived sets exist between two players,
// in either direction.
func (r *SetRepository) CountBetween(ctx context.Context, a, b domain.PlayerID) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sets
		 WHERE (winner_id = ? AND loser_id = ?) OR (winner_id = ? AND loser_id = ?)`,
		a, b, b, a)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count sets between %s and %s: %w", a, b, err)
	}
	return count, nil
}
