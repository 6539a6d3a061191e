package domain

import (
	"time"
)

// StartTimeLayout is the local-naive timestamp format the stats provider
// uses for tournament start times.
const StartTimeLayout = "2006-01-02T15:04:05"

// PlayerID is the opaque player identifier assigned by the stats provider.
// Identity resolution maps raw ids onto canonical ones; both are PlayerIDs.
type PlayerID string

type Tournament struct {
	ID        string
	Name      string
	StartTime time.Time
	Online    bool
	Attendees int
	Location  string
}

// Set is one completed match between two players inside a tournament
// bracket. Scores are kept as raw strings because the provider emits
// non-numeric values for forfeits and unreported games.
type Set struct {
	ID         string
	EventID    string
	P1ID       PlayerID
	P2ID       PlayerID
	P1Tag      string
	P2Tag      string
	P1Score    string
	P2Score    string
	WinnerID   PlayerID
	DQ         bool
	P1Standing int
	P2Standing int
}

// TournamentRecord is one tournament from a player's results feed.
type TournamentRecord struct {
	Info Tournament
	Sets []Set
}

// Profile carries the subset of the provider's player profile we keep:
// the tag and the offline badge count used as a ranking key.
type Profile struct {
	PlayerID   PlayerID
	Tag        string
	BadgeCount int
}

// RosterEntry is one row of the curated player sheet.
type RosterEntry struct {
	Tag      string
	PlayerID PlayerID

	// Duplicate marks a "^" row: an alternate account folded into the
	// preceding primary entry.
	Duplicate bool

	// CopyBadgesFrom borrows another player's badge count as a ranking
	// proxy when this player has none of their own.
	CopyBadgesFrom PlayerID
}
