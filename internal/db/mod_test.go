package db

//
// mod_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-podcatcher/internal/assert"
)

func prepareDatabase(t *testing.T) *Database {
	t.Helper()

	ctx := log.Logger.WithContext(t.Context())

	database, err := NewDatabaseI(nil)
	assert.NoErr(t, err)

	connstr := filepath.Join(t.TempDir(), "test.sqlite")
	assert.NoErr(t, database.Connect(ctx, "sqlite3", connstr))
	t.Cleanup(func() { _ = database.Shutdown(ctx) })

	assert.NoErr(t, database.Migrate(ctx, "sqlite3"))

	return database
}

func TestRegisterMetrics(t *testing.T) {
	database := prepareDatabase(t)

	// metrics land in the given registry, not in the global one
	reg := prometheus.NewRegistry()
	database.RegisterMetrics(reg)

	families, err := reg.Gather()
	assert.NoErr(t, err)
	assert.True(t, len(families) > 0)
}

func TestRegisterMetricsSeparateRegistries(t *testing.T) {
	// two databases with own registries must not collide
	first := prepareDatabase(t)
	second := prepareDatabase(t)

	first.RegisterMetrics(prometheus.NewRegistry())
	second.RegisterMetrics(prometheus.NewRegistry())
}
