package db

//
// mod.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
)

//go:embed "migrations/*.sql"
var embedMigrations embed.FS

type Database struct {
	db *sqlx.DB
}

func NewDatabaseI(_ do.Injector) (*Database, error) {
	return &Database{}, nil //nolint:exhaustruct
}

func (r *Database) Connect(ctx context.Context, driver, connstr string) error {
	var err error

	// add some required parameters to connstr
	connstr, err = prepareSqliteConnstr(connstr)
	if err != nil {
		return err
	}

	logger := log.Ctx(ctx)
	logger.Info().Msgf("connecting to %q %q", driver, connstr)

	r.db, err = sqlx.Open(driver, connstr)
	if err != nil {
		return aerr.Wrapf(err, "open database failed").WithTag(aerr.InternalError).WithMeta("connstr", connstr)
	}

	r.db.SetConnMaxIdleTime(30 * time.Second) //nolint:mnd
	r.db.SetConnMaxLifetime(60 * time.Second) //nolint:mnd
	r.db.SetMaxIdleConns(1)
	r.db.SetMaxOpenConns(10) //nolint:mnd

	if err := r.onConnect(ctx, r.db); err != nil {
		return aerr.Wrapf(err, "call startup scripts error").WithTag(aerr.InternalError)
	}

	if err := r.db.PingContext(ctx); err != nil {
		return aerr.Wrapf(err, "ping database failed").WithTag(aerr.InternalError)
	}

	return nil
}

func (r *Database) RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(collectors.NewDBStatsCollector(r.db.DB, "main"))
}

// Shutdown close database. Called by samber/do.
func (r *Database) Shutdown(ctx context.Context) error {
	if r.db == nil {
		return nil
	}

	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db error: %w", err)
	}

	logger := log.Ctx(ctx)
	logger.Debug().Msg("db closed")

	return nil
}

func (r *Database) Migrate(ctx context.Context, driver string) error {
	if driver != "sqlite3" {
		panic("only sqlite3")
	}

	logger := log.Ctx(ctx)

	migdir, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		panic(fmt.Errorf("prepare migration fs failed: %w", err))
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, r.db.DB, migdir)
	if err != nil {
		panic(fmt.Errorf("create goose provider failed: %w", err))
	}

	ver, err := provider.GetDBVersion(ctx)
	if err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "", "failed to check current database version")
	}

	logger.Info().Msgf("current database version: %d", ver)

	for {
		res, err := provider.UpByOne(ctx)
		if res != nil {
			logger.Debug().Msgf("migration: %s", res)
		}

		if errors.Is(err, goose.ErrNoNextVersion) {
			break
		} else if err != nil {
			return aerr.ApplyFor(aerr.ErrDatabase, err, "", "migrate database up failed")
		}
	}

	ver, err = provider.GetDBVersion(ctx)
	if err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "", "failed to check current database version")
	}

	logger.Info().Msgf("migrated database version: %d", ver)

	_, err = r.db.ExecContext(ctx, "PRAGMA optimize")
	if err != nil {
		return aerr.ApplyFor(aerr.ErrDatabase, err, "execute optimize script failed")
	}

	return nil
}

func (r *Database) GetConnection(ctx context.Context) (*sqlx.Conn, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, aerr.ApplyFor(aerr.ErrDatabase, err, "failed open connection")
	}

	if err := r.onConnect(ctx, conn); err != nil {
		return nil, aerr.ApplyFor(aerr.ErrDatabase, err, "failed run onConnect scripts")
	}

	return conn, nil
}

func (r *Database) CloseConnection(_ context.Context, conn *sqlx.Conn) {
	if err := conn.Close(); err != nil {
		log.Logger.Error().Err(err).Msg("close connection failed")
	}
}

func (r *Database) onConnect(ctx context.Context, db sqlx.ExecerContext) error {
	_, err := db.ExecContext(ctx,
		"PRAGMA temp_store = MEMORY; PRAGMA foreign_keys = ON;")
	if err != nil {
		return aerr.Wrapf(err, "exec onConnect pragmas failed")
	}

	return nil
}

//------------------------------------------------------------------------------

func prepareSqliteConnstr(connstr string) (string, error) {
	if strings.HasPrefix(connstr, ":memory:") {
		return connstr, nil
	}

	parsed, err := url.Parse(connstr)
	if err != nil {
		return "", aerr.ApplyFor(aerr.ErrInvalidConf, err, "", "invalid database connection string")
	}

	if parsed.Path == "" && parsed.Opaque == "" {
		return "", aerr.ErrInvalidConf.WithUserMsg("invalid database connection string - missing path")
	}

	query := parsed.Query()
	if !query.Has("_fk") && !query.Has("_foreign_keys") {
		query.Set("_fk", "ON")
	}

	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

//------------------------------------------------------------------------------

// InConnectionR run `fun` with database access object in context.
// Open/close connection. Return `fun` result and error.
func InConnectionR[T any](ctx context.Context, r *Database,
	fun func(ctx context.Context) (T, error),
) (T, error) {
	conn, err := r.GetConnection(ctx)
	if err != nil {
		return *new(T), err
	}

	defer r.CloseConnection(ctx, conn)

	return fun(WithCtx(ctx, conn))
}

// InConnection run `fun` with database access object in context.
func InConnection(ctx context.Context, r *Database, fun func(ctx context.Context) error) error {
	conn, err := r.GetConnection(ctx)
	if err != nil {
		return err
	}

	defer r.CloseConnection(ctx, conn)

	return fun(WithCtx(ctx, conn))
}

// InTransaction run `fun` in db transaction.
func InTransaction(ctx context.Context, r *Database, fun func(ctx context.Context) error) error {
	_, err := InTransactionR(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fun(ctx)
	})

	return err
}

// InTransactionR run `fun` in db transaction; return `fun` result and error.
func InTransactionR[T any](ctx context.Context, r *Database,
	fun func(ctx context.Context) (T, error),
) (T, error) {
	conn, err := r.GetConnection(ctx)
	if err != nil {
		return *new(T), err
	}

	defer r.CloseConnection(ctx, conn)

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return *new(T), aerr.ApplyFor(aerr.ErrDatabase, err, "begin tx failed")
	}

	res, err := fun(WithCtx(ctx, tx))
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			merr := errors.Join(err, fmt.Errorf("rollback error: %w", rerr))

			return res, aerr.ApplyFor(aerr.ErrDatabase, merr, "execute func in trans and rollback error")
		}

		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, aerr.ApplyFor(aerr.ErrDatabase, err, "commit tx failed")
	}

	return res, nil
}
