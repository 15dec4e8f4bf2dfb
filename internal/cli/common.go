package cli

//
// common.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/config"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/download"
	"gitlab.com/kabes/go-podcatcher/internal/infra"
	"gitlab.com/kabes/go-podcatcher/internal/service"
)

// wrap prepare logger, injector and connected, migrated database before
// running command action.
func wrap(
	cmdfunc func(ctx context.Context, clicmd *cli.Command, i do.Injector) error,
) func(ctx context.Context, clicmd *cli.Command) error {
	return func(ctx context.Context, clicmd *cli.Command) error {
		if err := initializeLogger(clicmd.String("log.level"), clicmd.String("log.format")); err != nil {
			return err
		}

		ctx = log.Logger.WithContext(ctx)

		dbconf := config.DBConfig{Driver: "sqlite3", Connstr: clicmd.String("database")}
		if err := dbconf.Validate(); err != nil {
			return aerr.Wrapf(err, "invalid database configuration")
		}

		downconf := config.DownloadsConf{
			Dir:     clicmd.String("downloads.dir"),
			Workers: clicmd.Int("downloads.workers"),
		}
		if err := downconf.Validate(); err != nil {
			return aerr.Wrapf(err, "invalid downloads configuration")
		}

		injector := createInjector()
		do.ProvideValue(injector, dbconf)
		do.ProvideValue(injector, downconf)

		database := do.MustInvoke[*db.Database](injector)
		if err := database.Connect(ctx, dbconf.Driver, dbconf.Connstr); err != nil {
			return aerr.Wrapf(err, "connect to database failed")
		}

		if err := database.Migrate(ctx, dbconf.Driver); err != nil {
			return aerr.Wrapf(err, "migrate database failed")
		}

		database.RegisterMetrics(do.MustInvoke[prometheus.Registerer](injector))

		defer shutdownInjector(ctx, injector)

		return cmdfunc(ctx, clicmd, injector)
	}
}

func createInjector() *do.RootScope {
	return do.New(
		db.Package,
		infra.Package,
		service.Package,
		download.Package,
	)
}

func shutdownInjector(ctx context.Context, injector *do.RootScope) {
	report := injector.Shutdown()
	if report != nil && !report.Succeed {
		log.Ctx(ctx).Error().Msgf("shutdown failed: %s", report.Error())
	}
}
