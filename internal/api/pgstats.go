package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"melee-tracker/internal/config"
	"melee-tracker/internal/constants"
	"melee-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

// Client talks to the pgstats API and to the Google Sheets CSV export of
// the curated config spreadsheet. Every fetch retries with a constant
// backoff before giving up.
type Client struct {
	game    string
	sheetID string
	client  *fasthttp.Client
	logger  zerolog.Logger
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		game:    cfg.Game,
		sheetID: cfg.SheetID,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

// GetPlayerResults fetches a player's full tournament history: a map
// from tournament id to that tournament's info and set list.
func (c *Client) GetPlayerResults(ctx context.Context, id domain.PlayerID) (map[string]domain.TournamentRecord, error) {
	url := fmt.Sprintf("https://api.pgstats.com/players/data?playerId=%s&game=%s", id, c.game)
	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch results for player %s: %w", id, err)
	}

	var envelope struct {
		Result map[string]tournamentRecordJSON `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode results for player %s: %w", id, err)
	}

	results := make(map[string]domain.TournamentRecord, len(envelope.Result))
	for tournamentID, rec := range envelope.Result {
		results[tournamentID] = rec.toDomain(tournamentID, c.logger)
	}
	return results, nil
}

// GetPlayerProfile fetches a player's profile and reduces it to the tag
// plus the offline badge count used as the ranking key.
func (c *Client) GetPlayerProfile(ctx context.Context, id domain.PlayerID) (*domain.Profile, error) {
	url := fmt.Sprintf("https://api.pgstats.com/players/profile?playerId=%s&game=%s", id, c.game)
	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch profile for player %s: %w", id, err)
	}

	var envelope struct {
		Result struct {
			Tag    string `json:"tag"`
			Badges struct {
				ByEvents []struct {
					Online bool `json:"online"`
				} `json:"by_events"`
			} `json:"badges"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode profile for player %s: %w", id, err)
	}

	count := 0
	for _, badge := range envelope.Result.Badges.ByEvents {
		if !badge.Online {
			count++
		}
	}
	return &domain.Profile{PlayerID: id, Tag: envelope.Result.Tag, BadgeCount: count}, nil
}

// GetSheetCSV downloads one tab of the config spreadsheet as CSV rows.
func (c *Client) GetSheetCSV(ctx context.Context, gid string) ([][]string, error) {
	url := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", c.sheetID, gid)
	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet tab gid=%s: %w", gid, err)
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse sheet tab gid=%s: %w", gid, err)
	}
	return rows, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	backoff := retry.WithMaxRetries(constants.MaxFetchRetries, retry.NewConstant(constants.FetchRetryBackoff))

	var body []byte
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		b, err := c.fetch(ctx, url)
		if err != nil {
			c.logger.Info().
				Err(err).
				Int("attempt", attempt).
				Str("url", url).
				Msg("fetch failed, retrying")
			return retry.RetryableError(err)
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := c.client.DoDeadline(req, resp, time.Now().Add(constants.ExternalAPITimeout)); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("API error: %d", resp.StatusCode())
	}

	// Copy: the response buffer is recycled on release.
	return append([]byte(nil), resp.Body()...), nil
}

type tournamentRecordJSON struct {
	Info tournamentInfoJSON `json:"info"`
	Sets []setJSON          `json:"sets"`
}

type tournamentInfoJSON struct {
	ID        string  `json:"tournament_id"`
	Name      string  `json:"tournament_name"`
	StartTime string  `json:"start_time"`
	Online    bool    `json:"online"`
	Attendees flexInt `json:"attendees"`
	Location  string  `json:"location"`
}

type setJSON struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	P1ID       string    `json:"p1_id"`
	P2ID       string    `json:"p2_id"`
	P1Tag      string    `json:"p1_tag"`
	P2Tag      string    `json:"p2_tag"`
	P1Score    flexValue `json:"p1_score"`
	P2Score    flexValue `json:"p2_score"`
	WinnerID   string    `json:"winner_id"`
	DQ         bool      `json:"dq"`
	P1Standing flexInt   `json:"p1_standing"`
	P2Standing flexInt   `json:"p2_standing"`
}

func (r tournamentRecordJSON) toDomain(tournamentID string, logger zerolog.Logger) domain.TournamentRecord {
	info := domain.Tournament{
		ID:        r.Info.ID,
		Name:      r.Info.Name,
		Online:    r.Info.Online,
		Attendees: int(r.Info.Attendees),
		Location:  r.Info.Location,
	}
	if info.ID == "" {
		info.ID = tournamentID
	}

	if r.Info.StartTime != "" {
		start, err := time.Parse(domain.StartTimeLayout, r.Info.StartTime)
		if err != nil {
			// A tournament without a parseable date can never land in
			// the ranking window; the zero time keeps it out of scope.
			logger.Warn().
				Str("tournament_id", info.ID).
				Str("start_time", r.Info.StartTime).
				Msg("unparseable tournament start time")
		} else {
			info.StartTime = start
		}
	}

	rec := domain.TournamentRecord{Info: info, Sets: make([]domain.Set, 0, len(r.Sets))}
	for _, s := range r.Sets {
		rec.Sets = append(rec.Sets, domain.Set{
			ID:         s.ID,
			EventID:    s.EventID,
			P1ID:       domain.PlayerID(s.P1ID),
			P2ID:       domain.PlayerID(s.P2ID),
			P1Tag:      s.P1Tag,
			P2Tag:      s.P2Tag,
			P1Score:    string(s.P1Score),
			P2Score:    string(s.P2Score),
			WinnerID:   domain.PlayerID(s.WinnerID),
			DQ:         s.DQ,
			P1Standing: int(s.P1Standing),
			P2Standing: int(s.P2Standing),
		})
	}
	return rec
}

// flexValue accepts a JSON string, number, or null. The provider is not
// consistent about score types, and forfeits come through as strings.
type flexValue string

func (v *flexValue) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = flexValue(str)
		return nil
	}
	*v = flexValue(s)
	return nil
}

// flexInt accepts a JSON number, numeric string, or null; anything else
// decodes to zero.
type flexInt int

func (v *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*v = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		*v = 0
		return nil
	}
	*v = flexInt(n)
	return nil
}
