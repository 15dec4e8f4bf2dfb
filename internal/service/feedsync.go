package service

//
// feedsync.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/feed"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
)

// FeedFetcher download feed content; replaceable in tests.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

func NewFeedFetcher(_ do.Injector) (FeedFetcher, error) {
	return feed.NewFetcher(), nil
}

//------------------------------------------------------------------------------

// FeedSyncSrv refresh podcasts from remote feeds and merge results with
// persisted episodes.
type FeedSyncSrv struct {
	db           *db.Database
	podcastsRepo repository.Podcasts
	episodesRepo repository.Episodes
	fetcher      FeedFetcher
	metrics      *syncMetrics
}

func NewFeedSyncSrv(i do.Injector) (*FeedSyncSrv, error) {
	return &FeedSyncSrv{
		db:           do.MustInvoke[*db.Database](i),
		podcastsRepo: do.MustInvoke[repository.Podcasts](i),
		episodesRepo: do.MustInvoke[repository.Episodes](i),
		fetcher:      do.MustInvoke[FeedFetcher](i),
		metrics:      newSyncMetrics(do.MustInvoke[prometheus.Registerer](i)),
	}, nil
}

// SyncPodcast fetch one feed and upsert podcast and episodes. Locally-owned
// episode fields (download status, playback position, archived) are never
// touched by the merge.
func (f *FeedSyncSrv) SyncPodcast(ctx context.Context, feedurl string) (*model.Podcast, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("feed_url", feedurl).Msg("sync podcast")

	content, err := f.fetcher.Fetch(ctx, feedurl)
	if err != nil {
		return nil, err
	}

	podcast, episodes, err := feed.Parse(feedurl, content)
	if err != nil {
		return nil, err
	}

	//nolint:wrapcheck
	return db.InTransactionR(ctx, f.db, func(ctx context.Context) (*model.Podcast, error) {
		// keep id of already persisted podcast row for this url
		if existing, err := f.podcastsRepo.GetPodcastByFeedURL(ctx, feedurl); err == nil {
			podcast.ID = existing.ID
			podcast.Subscribed = existing.Subscribed
			podcast.SubscribedAt = existing.SubscribedAt
		} else if !errors.Is(err, repository.ErrNoData) {
			return nil, aerr.ApplyFor(ErrRepositoryError, err)
		}

		if err := f.podcastsRepo.SavePodcast(ctx, podcast); err != nil {
			return nil, aerr.ApplyFor(ErrRepositoryError, err)
		}

		if err := f.resolveEpisodeIDs(ctx, podcast.ID, episodes); err != nil {
			return nil, err
		}

		if err := f.episodesRepo.UpsertEpisodes(ctx, episodes); err != nil {
			return nil, aerr.ApplyFor(ErrRepositoryError, err)
		}

		logger.Info().Str("feed_url", feedurl).
			Msgf("podcast synced; %d episodes", len(episodes))

		return podcast, nil
	})
}

// resolveEpisodeIDs assign identity to parsed episodes: reuse persisted id for
// the same media url, derive a fresh one otherwise.
func (f *FeedSyncSrv) resolveEpisodeIDs(ctx context.Context, podcastid int64, episodes []model.Episode) error {
	existing, err := f.episodesRepo.ListEpisodeIDsByMediaURL(ctx, podcastid)
	if err != nil {
		return aerr.ApplyFor(ErrRepositoryError, err)
	}

	for i := range episodes {
		episodes[i].PodcastID = podcastid

		if id, ok := existing[episodes[i].MediaURL]; ok {
			episodes[i].ID = id
		} else {
			episodes[i].ID = model.EpisodeIDForURL(episodes[i].MediaURL)
		}
	}

	return nil
}

//------------------------------------------------------------------------------

const refreshWorkers = 5

// RefreshAll sync all subscribed podcasts. Single feed failure is logged and
// counted; error is returned only when every feed failed.
func (f *FeedSyncSrv) RefreshAll(ctx context.Context) error {
	logger := zerolog.Ctx(ctx).With().Str("refresh_id", xid.New().String()).Logger()
	ctx = logger.WithContext(ctx)

	podcasts, err := db.InConnectionR(ctx, f.db, func(ctx context.Context) (model.Podcasts, error) {
		return f.podcastsRepo.ListSubscribedPodcasts(ctx)
	})
	if err != nil {
		return aerr.ApplyFor(ErrRepositoryError, err)
	}

	if len(podcasts) == 0 {
		logger.Debug().Msg("refresh finished; no subscribed podcasts")

		return nil
	}

	start := time.Now()
	urls := podcasts.ToFeedURLs()
	tasks := make(chan string, len(urls))

	var failed atomic.Int64

	var wg sync.WaitGroup
	for range min(len(urls), refreshWorkers) {
		wg.Go(func() { f.refreshWorker(ctx, tasks, &failed) })
	}

	for _, u := range urls {
		tasks <- u
	}

	close(tasks)

	wg.Wait()

	f.metrics.refreshDuration.Observe(time.Since(start).Seconds())

	failures := failed.Load()
	logger.Info().Msgf("refresh finished; %d feeds, %d failed", len(urls), failures)

	if failures == int64(len(urls)) {
		return ErrAllFeedsFailed
	}

	return nil
}

func (f *FeedSyncSrv) refreshWorker(ctx context.Context, urls <-chan string, failed *atomic.Int64) {
	logger := zerolog.Ctx(ctx)

	for url := range urls {
		if _, err := f.SyncPodcast(ctx, url); err != nil {
			logger.Info().Str("feed_url", url).Err(err).Msg("refresh feed failed")
			failed.Add(1)
			f.metrics.feedsFailed.Inc()
		} else {
			f.metrics.feedsRefreshed.Inc()
		}
	}
}
