package service

import (
	"context"
	"fmt"

	"melee-tracker/internal/api"
	"melee-tracker/internal/cache"
	"melee-tracker/internal/constants"
	"melee-tracker/internal/domain"
	"melee-tracker/internal/repository"
	"melee-tracker/internal/sheetcfg"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func resultsKey(id domain.PlayerID) string { return fmt.Sprintf("%s:results", id) }
func profileKey(id domain.PlayerID) string { return fmt.Sprintf("%s:profile", id) }

// ScrapeService refreshes the local copies of every tracked player's
// data: results and profile go into the KV cache, the raw payload into
// the archive table, and the tag/badge row into the players table.
type ScrapeService struct {
	client     *api.Client
	kv         cache.Cache
	loader     *sheetcfg.Loader
	resultRepo *repository.ResultRepository
	playerRepo *repository.PlayerRepository
	logger     zerolog.Logger
}

func NewScrapeService(
	client *api.Client,
	kv cache.Cache,
	loader *sheetcfg.Loader,
	resultRepo *repository.ResultRepository,
	playerRepo *repository.PlayerRepository,
	logger zerolog.Logger,
) *ScrapeService {
	return &ScrapeService{
		client:     client,
		kv:         kv,
		loader:     loader,
		resultRepo: resultRepo,
		playerRepo: playerRepo,
		logger:     logger,
	}
}

// ScrapeAll fetches every roster entry, duplicates included: an
// alternate account's feed can carry sets the primary's feed lacks. With
// skipKnown, players whose results are already cached are left alone. A
// single player failing is logged and skipped; the call only errors when
// the roster cannot be loaded or nothing at all succeeds.
func (s *ScrapeService) ScrapeAll(ctx context.Context, skipKnown bool) error {
	logger := s.logger.With().Str("run_id", uuid.New().String()).Logger()

	tables, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config tables: %w", err)
	}

	succeeded, failed := 0, 0
	for _, entry := range tables.Roster {
		if skipKnown {
			if _, ok, err := s.kv.Get(ctx, resultsKey(entry.PlayerID)); err == nil && ok {
				logger.Info().Str("tag", entry.Tag).Msg("skipping cached player")
				continue
			}
		}

		logger.Info().
			Str("tag", entry.Tag).
			Str("player_id", string(entry.PlayerID)).
			Msg("scraping player")

		if err := s.scrapePlayer(ctx, entry); err != nil {
			logger.Error().Err(err).Str("tag", entry.Tag).Msg("failed to scrape player")
			failed++
			continue
		}
		succeeded++
	}

	logger.Info().Int("succeeded", succeeded).Int("failed", failed).Msg("scrape finished")
	if succeeded == 0 && failed > 0 {
		return fmt.Errorf("all %d players failed to scrape", failed)
	}
	return nil
}

func (s *ScrapeService) scrapePlayer(ctx context.Context, entry domain.RosterEntry) error {
	apiCtx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(apiCtx)
	var results map[string]domain.TournamentRecord
	var profile *domain.Profile

	g.Go(func() error {
		var err error
		results, err = s.client.GetPlayerResults(gCtx, entry.PlayerID)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = s.client.GetPlayerProfile(gCtx, entry.PlayerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := cache.SetJSON(ctx, s.kv, resultsKey(entry.PlayerID), results, constants.ResultsCacheTTL); err != nil {
		return fmt.Errorf("cache results: %w", err)
	}
	if err := cache.SetJSON(ctx, s.kv, profileKey(entry.PlayerID), profile, constants.ProfileCacheTTL); err != nil {
		return fmt.Errorf("cache profile: %w", err)
	}

	payload, err := cache.EncodeJSON(results)
	if err != nil {
		return fmt.Errorf("encode archive payload: %w", err)
	}
	if err := s.resultRepo.Insert(ctx, entry.PlayerID, payload); err != nil {
		return err
	}

	tag := entry.Tag
	if tag == "" || tag == "^" {
		tag = profile.Tag
	}
	return s.playerRepo.Upsert(ctx, repository.PlayerRow{
		ID:         entry.PlayerID,
		Tag:        tag,
		BadgeCount: profile.BadgeCount,
	})
}
