package identity

import (
	"fmt"
	"melee-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// Resolver canonicalizes raw player ids. Two rules apply, in order, each
// at most once per call:
//
//  1. a tournament-scoped bracket swap (someone entered under another
//     person's account for that one event), then
//  2. the global duplicate-account mapping.
//
// Bounding each rule to a single application keeps resolution O(1) and
// makes mapping cycles impossible at resolve time; chained duplicate
// tables are rejected up front instead.
type Resolver struct {
	duplicates map[domain.PlayerID]domain.PlayerID
	swaps      map[string]map[domain.PlayerID]domain.PlayerID
	logger     zerolog.Logger
}

func NewResolver(
	duplicates map[domain.PlayerID]domain.PlayerID,
	swaps map[string]map[domain.PlayerID]domain.PlayerID,
	logger zerolog.Logger,
) (*Resolver, error) {
	for raw, canonical := range duplicates {
		if raw == canonical {
			return nil, fmt.Errorf("duplicate mapping %q points at itself", raw)
		}
		if next, ok := duplicates[canonical]; ok {
			return nil, fmt.Errorf(
				"duplicate mapping chain: %q -> %q -> %q; targets must be canonical ids",
				raw, canonical, next)
		}
	}

	return &Resolver{
		duplicates: duplicates,
		swaps:      swaps,
		logger:     logger,
	}, nil
}

// Resolve maps a raw id from a set record onto its canonical id. The
// tournament id scopes bracket swaps; pass "" when no tournament context
// exists (e.g. canonicalizing a roster entry). An id with no mapping is
// returned unchanged.
func (r *Resolver) Resolve(raw domain.PlayerID, tournamentID string) domain.PlayerID {
	id := raw

	if swaps, ok := r.swaps[tournamentID]; ok {
		if actual, ok := swaps[id]; ok {
			r.logger.Debug().
				Str("tournament_id", tournamentID).
				Str("entrant_id", string(id)).
				Str("actual_id", string(actual)).
				Msg("applying bracket swap")
			id = actual
		}
	}

	// A swapped-in account may itself be flagged as a duplicate, so the
	// global mapping runs second.
	if canonical, ok := r.duplicates[id]; ok {
		id = canonical
	}

	return id
}
