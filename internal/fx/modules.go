package fx

import (
	"melee-tracker/internal/api"
	"melee-tracker/internal/cache"
	"melee-tracker/internal/config"
	"melee-tracker/internal/database"
	"melee-tracker/internal/logger"
	"melee-tracker/internal/repository"
	"melee-tracker/internal/service"
	"melee-tracker/internal/sheetcfg"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideCache(r *cache.Redis) cache.Cache {
	return r
}

func ProvideLoader(client *api.Client, cfg *config.Config, log zerolog.Logger) *sheetcfg.Loader {
	return sheetcfg.NewLoader(client, cfg, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(cache.NewRedis),
	fx.Provide(ProvideCache),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewResultRepository),
	fx.Provide(repository.NewSetRepository),
	// api client + sheet config
	fx.Provide(api.NewClient),
	fx.Provide(ProvideLoader),
	// svc
	fx.Provide(service.NewScrapeService),
	fx.Provide(service.NewReportService),
)
