package service

//
// settings.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
)

const playbackSpeedKey = "playback_speed"

// SettingsSrv keep user preferences in settings repository.
type SettingsSrv struct {
	db           *db.Database
	settingsRepo repository.Settings
}

func NewSettingsSrv(i do.Injector) (*SettingsSrv, error) {
	return &SettingsSrv{
		db:           do.MustInvoke[*db.Database](i),
		settingsRepo: do.MustInvoke[repository.Settings](i),
	}, nil
}

// PlaybackSpeed return persisted playback speed; default when not set or
// invalid.
func (s *SettingsSrv) PlaybackSpeed(ctx context.Context) (float64, error) {
	value, err := db.InConnectionR(ctx, s.db, func(ctx context.Context) (string, error) {
		return s.settingsRepo.GetSetting(ctx, playbackSpeedKey)
	})

	switch {
	case errors.Is(err, repository.ErrNoData):
		return model.DefaultPlaybackSpeed, nil
	case err != nil:
		return model.DefaultPlaybackSpeed, aerr.ApplyFor(ErrRepositoryError, err)
	}

	speed, err := strconv.ParseFloat(value, 64)
	if err != nil || speed <= 0 {
		zerolog.Ctx(ctx).Warn().Str("value", value).Msg("invalid persisted playback speed")

		return model.DefaultPlaybackSpeed, nil
	}

	return speed, nil
}

func (s *SettingsSrv) SetPlaybackSpeed(ctx context.Context, speed float64) error {
	if speed <= 0 {
		return aerr.ErrValidation.WithMsg("playback speed must be positive").
			WithMeta("speed", speed)
	}

	err := db.InTransaction(ctx, s.db, func(ctx context.Context) error {
		return s.settingsRepo.SaveSetting(ctx, playbackSpeedKey,
			strconv.FormatFloat(speed, 'f', -1, 64))
	})
	if err != nil {
		return aerr.ApplyFor(ErrRepositoryError, err)
	}

	return nil
}
