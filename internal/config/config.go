package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	// Config spreadsheet: the curated roster plus its auxiliary tabs.
	SheetID    string
	RosterGID  string
	SwapsGID   string
	BannedGID  string
	PeriodsGID string

	Game      string
	DBPath    string
	RedisAddr string
	RedisDB   int
	LogLevel  string

	// Ranking window: only offline tournaments starting inside
	// [WindowStart, WindowEnd] count.
	WindowStart time.Time
	WindowEnd   time.Time

	OutputXLSX   string
	OutputCSVDir string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		SheetID:      getEnv("SHEET_ID", ""),
		RosterGID:    getEnv("ROSTER_GID", "0"),
		SwapsGID:     getEnv("SWAPS_GID", ""),
		BannedGID:    getEnv("BANNED_GID", ""),
		PeriodsGID:   getEnv("PERIODS_GID", ""),
		Game:         getEnv("GAME", "melee"),
		DBPath:       getEnv("DB_PATH", "tracker.db"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      0,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		OutputXLSX:   getEnv("OUTPUT_XLSX", "report.xlsx"),
		OutputCSVDir: getEnv("OUTPUT_CSV_DIR", ""),
	}

	if cfg.SheetID == "" {
		return nil, fmt.Errorf("SHEET_ID is required")
	}

	var err error
	cfg.WindowStart, err = parseDate(getEnv("WINDOW_START", "2023-05-08"))
	if err != nil {
		return nil, fmt.Errorf("invalid WINDOW_START: %w", err)
	}
	cfg.WindowEnd, err = parseDate(getEnv("WINDOW_END", "2023-12-31"))
	if err != nil {
		return nil, fmt.Errorf("invalid WINDOW_END: %w", err)
	}
	if cfg.WindowEnd.Before(cfg.WindowStart) {
		return nil, fmt.Errorf("WINDOW_END %s precedes WINDOW_START %s", cfg.WindowEnd, cfg.WindowStart)
	}

	logger.Info().
		Str("sheet_id", cfg.SheetID).
		Str("game", cfg.Game).
		Str("db_path", cfg.DBPath).
		Str("redis_addr", cfg.RedisAddr).
		Time("window_start", cfg.WindowStart).
		Time("window_end", cfg.WindowEnd).
		Msg("configuration loaded")

	return cfg, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
