package rank

import (
	"context"
	"fmt"
	"hash/fnv"

	"melee-tracker/internal/cache"
	"melee-tracker/internal/constants"
	"melee-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// ProfileFetcher supplies a player's profile, which carries the offline
// badge count used as the ranking key.
type ProfileFetcher interface {
	GetPlayerProfile(ctx context.Context, id domain.PlayerID) (*domain.Profile, error)
}

// Provider resolves the ranking key for report ordering. Badge counts go
// through the KV cache with a TTL; a player listed in the copy table
// borrows another player's count with a small deterministic offset
// subtracted, so borrowed counts never tie exactly with the original.
// The key orders report rows and nothing else.
type Provider struct {
	fetcher  ProfileFetcher
	cache    cache.Cache
	copyFrom map[domain.PlayerID]domain.PlayerID
	logger   zerolog.Logger

	memo map[domain.PlayerID]float64
}

func NewProvider(
	fetcher ProfileFetcher,
	kv cache.Cache,
	copyFrom map[domain.PlayerID]domain.PlayerID,
	logger zerolog.Logger,
) *Provider {
	return &Provider{
		fetcher:  fetcher,
		cache:    kv,
		copyFrom: copyFrom,
		logger:   logger,
		memo:     make(map[domain.PlayerID]float64),
	}
}

// Strength returns the ranking key for a player. Lookup failures degrade
// to 0 with a warning: a misordered report row beats an aborted run.
func (p *Provider) Strength(ctx context.Context, id domain.PlayerID) float64 {
	if key, ok := p.memo[id]; ok {
		return key
	}

	var key float64
	if src, ok := p.copyFrom[id]; ok {
		key = float64(p.badgeCount(ctx, src)) - copyOffset(id)
	} else {
		key = float64(p.badgeCount(ctx, id))
	}

	p.memo[id] = key
	return key
}

func (p *Provider) badgeCount(ctx context.Context, id domain.PlayerID) int {
	key := fmt.Sprintf("%s:num_badges", id)

	var count int
	ok, err := cache.GetJSON(ctx, p.cache, key, &count)
	if err != nil {
		p.logger.Warn().Err(err).Str("player_id", string(id)).Msg("badge cache read failed")
	}
	if ok {
		return count
	}

	profile, err := p.fetcher.GetPlayerProfile(ctx, id)
	if err != nil {
		p.logger.Warn().Err(err).Str("player_id", string(id)).Msg("badge count unavailable, using 0")
		return 0
	}
	count = profile.BadgeCount

	if err := cache.SetJSON(ctx, p.cache, key, count, constants.BadgeCacheTTL); err != nil {
		p.logger.Warn().Err(err).Str("player_id", string(id)).Msg("badge cache write failed")
	}
	return count
}

// copyOffset derives a stable value in [0.0001, 0.1) from the player id.
// Subtracting it breaks ties between players sharing a borrowed count
// while keeping the order reproducible across runs.
func copyOffset(id domain.PlayerID) float64 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return float64(h.Sum32()%999+1) / 10000.0
}
