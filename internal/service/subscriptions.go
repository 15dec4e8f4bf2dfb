package service

//
// subscriptions.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
)

type SubscriptionsSrv struct {
	db           *db.Database
	podcastsRepo repository.Podcasts
	episodesRepo repository.Episodes
	feedSync     *FeedSyncSrv
}

func NewSubscriptionsSrv(i do.Injector) (*SubscriptionsSrv, error) {
	return &SubscriptionsSrv{
		db:           do.MustInvoke[*db.Database](i),
		podcastsRepo: do.MustInvoke[repository.Podcasts](i),
		episodesRepo: do.MustInvoke[repository.Episodes](i),
		feedSync:     do.MustInvoke[*FeedSyncSrv](i),
	}, nil
}

// FindPodcast return persisted podcast for feed url.
func (s *SubscriptionsSrv) FindPodcast(ctx context.Context, feedurl string) (*model.Podcast, error) {
	//nolint:wrapcheck
	return db.InConnectionR(ctx, s.db, func(ctx context.Context) (*model.Podcast, error) {
		podcast, err := s.podcastsRepo.GetPodcastByFeedURL(ctx, feedurl)
		if errors.Is(err, repository.ErrNoData) {
			return nil, ErrUnknownPodcast
		} else if err != nil {
			return nil, aerr.ApplyFor(ErrRepositoryError, err)
		}

		return podcast, nil
	})
}

// ListSubscriptions return all subscribed podcasts.
func (s *SubscriptionsSrv) ListSubscriptions(ctx context.Context) (model.Podcasts, error) {
	//nolint:wrapcheck
	return db.InConnectionR(ctx, s.db, func(ctx context.Context) (model.Podcasts, error) {
		return s.podcastsRepo.ListSubscribedPodcasts(ctx)
	})
}

// Subscribe sync feed and mark podcast as subscribed.
func (s *SubscriptionsSrv) Subscribe(ctx context.Context, feedurl string) (*model.Podcast, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("feed_url", feedurl).Msg("subscribe podcast")

	podcast, err := s.feedSync.SyncPodcast(ctx, feedurl)
	if err != nil {
		return nil, err
	}

	err = db.InTransaction(ctx, s.db, func(ctx context.Context) error {
		return s.podcastsRepo.SetSubscribed(ctx, podcast.ID, true, time.Now().UTC())
	})
	if err != nil {
		return nil, aerr.ApplyFor(ErrRepositoryError, err)
	}

	podcast.Subscribed = true

	logger.Info().Object("podcast", podcast).Msg("podcast subscribed")

	return podcast, nil
}

// Unsubscribe remove podcast with its episodes and downloaded files.
func (s *SubscriptionsSrv) Unsubscribe(ctx context.Context, podcastid int64) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Int64("podcast_id", podcastid).Msg("unsubscribe podcast")

	//nolint:wrapcheck
	return db.InTransaction(ctx, s.db, func(ctx context.Context) error {
		podcast, err := s.podcastsRepo.GetPodcast(ctx, podcastid)
		if errors.Is(err, repository.ErrNoData) {
			return ErrUnknownPodcast
		} else if err != nil {
			return aerr.ApplyFor(ErrRepositoryError, err)
		}

		episodes, err := s.episodesRepo.ListEpisodes(ctx, podcastid)
		if err != nil {
			return aerr.ApplyFor(ErrRepositoryError, err)
		}

		for _, episode := range episodes {
			removeEpisodeFile(ctx, &episode)
		}

		// episodes rows are removed by cascade
		if err := s.podcastsRepo.DeletePodcast(ctx, podcast.ID); err != nil {
			return aerr.ApplyFor(ErrRepositoryError, err)
		}

		logger.Info().Object("podcast", podcast).Msg("podcast unsubscribed")

		return nil
	})
}

// removeEpisodeFile delete downloaded media of episode; missing file is not an
// error.
func removeEpisodeFile(ctx context.Context, episode *model.Episode) {
	if episode.LocalFilePath == "" {
		return
	}

	if err := os.Remove(episode.LocalFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("episode_id", episode.ID).
			Str("path", episode.LocalFilePath).Msg("remove episode file failed")
	}
}
