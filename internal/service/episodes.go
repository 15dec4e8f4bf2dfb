package service

//
// episodes.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
)

// EpisodesSrv expose episode listings and local episode state changes.
type EpisodesSrv struct {
	db           *db.Database
	episodesRepo repository.Episodes
}

func NewEpisodesSrv(i do.Injector) (*EpisodesSrv, error) {
	return &EpisodesSrv{
		db:           do.MustInvoke[*db.Database](i),
		episodesRepo: do.MustInvoke[repository.Episodes](i),
	}, nil
}

func (e *EpisodesSrv) GetEpisode(ctx context.Context, episodeid int64) (*model.Episode, error) {
	//nolint:wrapcheck
	return db.InConnectionR(ctx, e.db, func(ctx context.Context) (*model.Episode, error) {
		episode, err := e.episodesRepo.GetEpisode(ctx, episodeid)
		if errors.Is(err, repository.ErrNoData) {
			return nil, ErrUnknownEpisode
		} else if err != nil {
			return nil, aerr.ApplyFor(ErrRepositoryError, err)
		}

		return episode, nil
	})
}

func (e *EpisodesSrv) ListEpisodes(ctx context.Context, podcastid int64) ([]model.Episode, error) {
	//nolint:wrapcheck
	return db.InConnectionR(ctx, e.db, func(ctx context.Context) ([]model.Episode, error) {
		return e.episodesRepo.ListEpisodes(ctx, podcastid)
	})
}

// ListRecentlyPlayed return resume candidates: started, unfinished, not
// archived, newest activity first.
func (e *EpisodesSrv) ListRecentlyPlayed(ctx context.Context, limit uint) ([]model.Episode, error) {
	//nolint:wrapcheck
	return db.InConnectionR(ctx, e.db, func(ctx context.Context) ([]model.Episode, error) {
		return e.episodesRepo.ListRecentlyPlayed(ctx, limit)
	})
}

func (e *EpisodesSrv) ListRecentEpisodes(ctx context.Context, limit uint) ([]model.Episode, error) {
	//nolint:wrapcheck
	return db.InConnectionR(ctx, e.db, func(ctx context.Context) ([]model.Episode, error) {
		return e.episodesRepo.ListRecentEpisodes(ctx, limit)
	})
}

func (e *EpisodesSrv) ListDownloaded(ctx context.Context) ([]model.Episode, error) {
	//nolint:wrapcheck
	return db.InConnectionR(ctx, e.db, func(ctx context.Context) ([]model.Episode, error) {
		return e.episodesRepo.ListDownloaded(ctx)
	})
}

//------------------------------------------------------------------------------

// SetArchived change archived flag. Archiving deletes downloaded media and
// reset download state.
func (e *EpisodesSrv) SetArchived(ctx context.Context, episodeid int64, archived bool) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Int64("episode_id", episodeid).Bool("archived", archived).Msg("set archived")

	//nolint:wrapcheck
	return db.InTransaction(ctx, e.db, func(ctx context.Context) error {
		episode, err := e.episodesRepo.GetEpisode(ctx, episodeid)
		if errors.Is(err, repository.ErrNoData) {
			return ErrUnknownEpisode
		} else if err != nil {
			return aerr.ApplyFor(ErrRepositoryError, err)
		}

		if archived && episode.DownloadStatus == model.StatusDownloaded {
			removeEpisodeFile(ctx, episode)

			err = e.episodesRepo.UpdateDownloadStatus(ctx, episodeid, model.StatusNotDownloaded, "")
			if err != nil {
				return aerr.ApplyFor(ErrRepositoryError, err)
			}
		}

		if err := e.episodesRepo.UpdateArchived(ctx, episodeid, archived); err != nil {
			return aerr.ApplyFor(ErrRepositoryError, err)
		}

		return nil
	})
}
