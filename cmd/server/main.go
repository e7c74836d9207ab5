package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/raphael2692/ssohub/internal/auth"
	"github.com/raphael2692/ssohub/internal/provision"
	"github.com/raphael2692/ssohub/internal/store"
	"github.com/raphael2692/ssohub/internal/web"
	"github.com/raphael2692/ssohub/pkg/config"
	"github.com/raphael2692/ssohub/pkg/cookie"
	"github.com/raphael2692/ssohub/pkg/httpserver"
	"github.com/raphael2692/ssohub/pkg/logger"
	"github.com/raphael2692/ssohub/pkg/pg"
)

type appConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"ssohub"`
}

func main() {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName))
	logger.SetAsDefault(log)

	if err := run(context.Background(), appCfg, log); err != nil {
		log.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, log *slog.Logger) error {
	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	var googleCfg auth.GoogleConfig
	config.MustLoad(&googleCfg)

	var microsoftCfg auth.MicrosoftConfig
	config.MustLoad(&microsoftCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	microsoft, err := auth.NewMicrosoftProvider(ctx, microsoftCfg)
	if err != nil {
		return err
	}
	registry := auth.NewRegistry(
		auth.NewGoogleProvider(googleCfg),
		microsoft,
	)

	provisioner := provision.New(
		store.NewPostgresStore(pool),
		provision.WithLogger(log),
	)

	handler := web.NewHandler(registry, provisioner, cookie.New(),
		web.WithLogger(log),
		web.WithSecureCookies(appCfg.Environment == "production"),
	)

	router := web.NewRouter(handler, httpserver.HealthCheckHandler(ctx, log, pg.Healthcheck(pool)))

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	log.InfoContext(ctx, "starting http server",
		"addr", httpCfg.Addr,
		"environment", appCfg.Environment,
		"providers", registry.Names(),
	)
	return srv.Run(ctx, router)
}
