package service

import (
	"context"
	"fmt"
	"os"

	"melee-tracker/internal/api"
	"melee-tracker/internal/cache"
	"melee-tracker/internal/config"
	"melee-tracker/internal/constants"
	"melee-tracker/internal/domain"
	"melee-tracker/internal/identity"
	"melee-tracker/internal/ingest"
	"melee-tracker/internal/ledger"
	"melee-tracker/internal/rank"
	"melee-tracker/internal/report"
	"melee-tracker/internal/repository"
	"melee-tracker/internal/sheetcfg"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RunOptions are per-invocation report knobs.
type RunOptions struct {
	// ContinueOnError skips a player whose ingestion fails instead of
	// aborting the whole run.
	ContinueOnError bool

	// Stdout additionally prints the wins and losses tables to the
	// terminal.
	Stdout bool
}

// ReportService runs the aggregation pipeline end to end: load the
// config tables, ingest every tracked player's history through the
// identity resolver into one ledger, archive the deduplicated sets, and
// publish the sorted views.
type ReportService struct {
	client     *api.Client
	kv         cache.Cache
	loader     *sheetcfg.Loader
	setRepo    *repository.SetRepository
	playerRepo *repository.PlayerRepository
	cfg        *config.Config
	logger     zerolog.Logger
}

func NewReportService(
	client *api.Client,
	kv cache.Cache,
	loader *sheetcfg.Loader,
	setRepo *repository.SetRepository,
	playerRepo *repository.PlayerRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *ReportService {
	return &ReportService{
		client:     client,
		kv:         kv,
		loader:     loader,
		setRepo:    setRepo,
		playerRepo: playerRepo,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *ReportService) Run(ctx context.Context, opts RunOptions) error {
	logger := s.logger.With().Str("run_id", uuid.New().String()).Logger()

	tables, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config tables: %w", err)
	}

	resolver, err := identity.NewResolver(tables.Duplicates, tables.Swaps, logger)
	if err != nil {
		// A broken mapping table would misattribute every affected
		// set; nothing downstream is trustworthy.
		return fmt.Errorf("identity configuration: %w", err)
	}

	led := ledger.New()
	ing := ingest.New(resolver, led, ingest.Scope{
		WindowStart: s.cfg.WindowStart,
		WindowEnd:   s.cfg.WindowEnd,
		Banned:      tables.Banned,
	}, logger)

	for _, entry := range tables.Primaries() {
		canonical := resolver.Resolve(entry.PlayerID, "")
		logger.Debug().
			Str("tag", entry.Tag).
			Str("player_id", string(canonical)).
			Msg("ingesting player")

		results, err := s.loadResults(ctx, canonical)
		if err == nil {
			err = ing.IngestPlayer(ctx, canonical, results)
		}
		if err != nil {
			if opts.ContinueOnError {
				logger.Error().Err(err).Str("tag", entry.Tag).Msg("skipping player")
				continue
			}
			return fmt.Errorf("ingest %s: %w", entry.Tag, err)
		}

		logger.Info().Str("tag", entry.Tag).Msg("ingested player")
	}

	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	if err := s.setRepo.UpsertTournaments(dbCtx, ing.Tournaments()); err != nil {
		return fmt.Errorf("archive tournaments: %w", err)
	}
	if err := s.setRepo.UpsertBatch(dbCtx, ing.Recorded()); err != nil {
		return fmt.Errorf("archive sets: %w", err)
	}

	ranker := rank.NewProvider(s.client, s.kv, tables.CopyBadges, logger)
	strength := func(id domain.PlayerID) float64 {
		return ranker.Strength(ctx, id)
	}

	data := report.Build(led, ing, strength)

	players := led.Players()
	playerRows := make([]repository.PlayerRow, 0, len(players))
	for _, id := range players {
		playerRows = append(playerRows, repository.PlayerRow{
			ID:         id,
			Tag:        ing.TagFor(id),
			BadgeCount: int(strength(id)),
		})
	}
	playerCtx, cancelPlayers := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancelPlayers()
	if err := s.playerRepo.UpsertBatch(playerCtx, playerRows); err != nil {
		return fmt.Errorf("archive players: %w", err)
	}

	if s.cfg.OutputXLSX != "" {
		if err := report.WriteXLSX(s.cfg.OutputXLSX, data, logger); err != nil {
			return err
		}
	}
	if s.cfg.OutputCSVDir != "" {
		if err := report.WriteCSV(s.cfg.OutputCSVDir, data); err != nil {
			return err
		}
		logger.Info().Str("dir", s.cfg.OutputCSVDir).Msg("report CSVs written")
	}
	if opts.Stdout {
		report.PrintWins(os.Stdout, data)
		report.PrintLosses(os.Stdout, data)
	}

	logger.Info().
		Int("players", len(data.Wins)).
		Int("unique_sets", len(ing.Recorded())).
		Msg("report run complete")
	return nil
}

// loadResults serves a player's history from the KV cache when present
// and falls back to the provider, refilling the cache on the way out.
func (s *ReportService) loadResults(ctx context.Context, id domain.PlayerID) (map[string]domain.TournamentRecord, error) {
	var results map[string]domain.TournamentRecord
	ok, err := cache.GetJSON(ctx, s.kv, resultsKey(id), &results)
	if err != nil {
		s.logger.Warn().Err(err).Str("player_id", string(id)).Msg("results cache read failed")
	}
	if ok {
		return results, nil
	}

	apiCtx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	results, err = s.client.GetPlayerResults(apiCtx, id)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.kv, resultsKey(id), results, constants.ResultsCacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("player_id", string(id)).Msg("results cache write failed")
	}
	return results, nil
}
