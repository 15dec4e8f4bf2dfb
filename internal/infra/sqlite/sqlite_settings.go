package sqlite

//
// sqlite_settings.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
)

func (Repository) GetSetting(ctx context.Context, key string) (string, error) {
	dbctx := db.MustCtx(ctx)

	var value string

	err := dbctx.GetContext(ctx, &value, "SELECT value FROM settings WHERE key=?", key)

	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, sql.ErrNoRows):
		return "", repository.ErrNoData
	default:
		return "", aerr.Wrapf(err, "query setting failed").WithTag(aerr.InternalError).
			WithMeta("key", key)
	}
}

func (Repository) SaveSetting(ctx context.Context, key, value string) error {
	logger := log.Ctx(ctx)
	logger.Debug().Str("key", key).Msg("sqlite.Repository: save setting")

	dbctx := db.MustCtx(ctx)

	_, err := dbctx.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) "+
			"ON CONFLICT (key) DO UPDATE SET value=excluded.value, updated_at=current_timestamp",
		key, value)
	if err != nil {
		return aerr.Wrapf(err, "save setting failed").WithTag(aerr.InternalError).
			WithMeta("key", key)
	}

	return nil
}
