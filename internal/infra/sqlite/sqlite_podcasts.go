package sqlite

//
// sqlite_podcasts.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
)

const podcastColumns = "id, title, feed_url, description, artwork_url, author, " +
	"subscribed, subscribed_at, created_at, updated_at"

func (Repository) GetPodcast(ctx context.Context, podcastid int64) (*model.Podcast, error) {
	dbctx := db.MustCtx(ctx)

	res := PodcastDB{} //nolint:exhaustruct

	err := dbctx.GetContext(ctx, &res,
		"SELECT "+podcastColumns+" FROM podcasts WHERE id=?", podcastid)

	switch {
	case err == nil:
		return res.toModel(), nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, repository.ErrNoData
	default:
		return nil, aerr.Wrapf(err, "query podcast failed").WithTag(aerr.InternalError)
	}
}

func (Repository) GetPodcastByFeedURL(ctx context.Context, feedurl string) (*model.Podcast, error) {
	dbctx := db.MustCtx(ctx)

	res := PodcastDB{} //nolint:exhaustruct

	err := dbctx.GetContext(ctx, &res,
		"SELECT "+podcastColumns+" FROM podcasts WHERE feed_url=?", feedurl)

	switch {
	case err == nil:
		return res.toModel(), nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, repository.ErrNoData
	default:
		return nil, aerr.Wrapf(err, "query podcast by url failed").WithTag(aerr.InternalError)
	}
}

func (Repository) SavePodcast(ctx context.Context, podcast *model.Podcast) error {
	logger := log.Ctx(ctx)
	logger.Debug().Object("podcast", podcast).Msg("sqlite.Repository: save podcast")

	dbctx := db.MustCtx(ctx)

	_, err := dbctx.ExecContext(ctx,
		"INSERT INTO podcasts (id, title, feed_url, description, artwork_url, author) "+
			"VALUES (?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT (id) DO UPDATE SET title=excluded.title, feed_url=excluded.feed_url, "+
			"description=excluded.description, artwork_url=excluded.artwork_url, "+
			"author=excluded.author, updated_at=current_timestamp",
		podcast.ID, podcast.Title, podcast.FeedURL, podcast.Description,
		podcast.ArtworkURL, podcast.Author)
	if err != nil {
		return aerr.Wrapf(err, "save podcast failed").WithTag(aerr.InternalError).
			WithMeta("podcast_id", podcast.ID)
	}

	return nil
}

func (Repository) ListSubscribedPodcasts(ctx context.Context) (model.Podcasts, error) {
	dbctx := db.MustCtx(ctx)

	res := []PodcastDB{}

	err := dbctx.SelectContext(ctx, &res,
		"SELECT "+podcastColumns+" FROM podcasts WHERE subscribed ORDER BY title")
	if err != nil {
		return nil, aerr.Wrapf(err, "query subscribed podcasts failed").WithTag(aerr.InternalError)
	}

	return podcastsFromDB(res), nil
}

func (Repository) SetSubscribed(ctx context.Context, podcastid int64, subscribed bool, at time.Time) error {
	logger := log.Ctx(ctx)
	logger.Debug().Int64("podcast_id", podcastid).Bool("subscribed", subscribed).
		Msg("sqlite.Repository: set subscribed")

	dbctx := db.MustCtx(ctx)

	var subat sql.NullTime
	if subscribed {
		subat = sql.NullTime{Time: at, Valid: true}
	}

	_, err := dbctx.ExecContext(ctx,
		"UPDATE podcasts SET subscribed=?, subscribed_at=?, updated_at=current_timestamp WHERE id=?",
		subscribed, subat, podcastid)
	if err != nil {
		return aerr.Wrapf(err, "update podcast subscription failed").WithTag(aerr.InternalError).
			WithMeta("podcast_id", podcastid)
	}

	return nil
}

func (Repository) DeletePodcast(ctx context.Context, podcastid int64) error {
	logger := log.Ctx(ctx)
	logger.Debug().Int64("podcast_id", podcastid).Msg("sqlite.Repository: delete podcast")

	dbctx := db.MustCtx(ctx)

	// episodes are removed by fk cascade
	_, err := dbctx.ExecContext(ctx, "DELETE FROM podcasts WHERE id=?", podcastid)
	if err != nil {
		return aerr.Wrapf(err, "delete podcast failed").WithTag(aerr.InternalError).
			WithMeta("podcast_id", podcastid)
	}

	return nil
}
