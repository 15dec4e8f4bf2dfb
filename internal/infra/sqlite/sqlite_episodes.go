package sqlite

//
// sqlite_episodes.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
)

const episodeColumns = "id, podcast_id, title, description, media_url, artwork_url, " +
	"published_at, duration_seconds, file_size, episode_number, season_number, " +
	"download_status, local_file_path, last_played_position_ms, last_played_at, archived"

func (Repository) GetEpisode(ctx context.Context, episodeid int64) (*model.Episode, error) {
	dbctx := db.MustCtx(ctx)

	res := EpisodeDB{} //nolint:exhaustruct

	err := dbctx.GetContext(ctx, &res,
		"SELECT "+episodeColumns+" FROM episodes WHERE id=?", episodeid)

	switch {
	case err == nil:
		return res.toModel(), nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, repository.ErrNoData
	default:
		return nil, aerr.Wrapf(err, "query episode failed").WithTag(aerr.InternalError).
			WithMeta("episode_id", episodeid)
	}
}

func (Repository) ListEpisodes(ctx context.Context, podcastid int64) ([]model.Episode, error) {
	logger := log.Ctx(ctx)
	logger.Debug().Int64("podcast_id", podcastid).Msg("sqlite.Repository: list episodes")

	dbctx := db.MustCtx(ctx)

	res := []EpisodeDB{}

	err := dbctx.SelectContext(ctx, &res,
		"SELECT "+episodeColumns+" FROM episodes WHERE podcast_id=? ORDER BY published_at DESC",
		podcastid)
	if err != nil {
		return nil, aerr.Wrapf(err, "query episodes failed").WithTag(aerr.InternalError).
			WithMeta("podcast_id", podcastid)
	}

	return episodesFromDB(res), nil
}

func (Repository) ListEpisodeIDsByMediaURL(ctx context.Context, podcastid int64) (map[string]int64, error) {
	dbctx := db.MustCtx(ctx)

	rows := []struct {
		ID       int64  `db:"id"`
		MediaURL string `db:"media_url"`
	}{}

	err := dbctx.SelectContext(ctx, &rows,
		"SELECT id, media_url FROM episodes WHERE podcast_id=?", podcastid)
	if err != nil {
		return nil, aerr.Wrapf(err, "query episode ids failed").WithTag(aerr.InternalError).
			WithMeta("podcast_id", podcastid)
	}

	res := make(map[string]int64, len(rows))
	for _, row := range rows {
		res[row.MediaURL] = row.ID
	}

	return res, nil
}

// UpsertEpisodes insert new episodes with locally-owned fields at defaults or
// update only remote-sourced fields of existing rows.
func (Repository) UpsertEpisodes(ctx context.Context, episodes []model.Episode) error {
	logger := log.Ctx(ctx)
	logger.Debug().Msgf("sqlite.Repository: upsert %d episodes", len(episodes))

	dbctx := db.MustCtx(ctx)

	for _, episode := range episodes {
		_, err := dbctx.ExecContext(ctx,
			"INSERT INTO episodes (id, podcast_id, title, description, media_url, artwork_url, "+
				"published_at, duration_seconds, file_size, episode_number, season_number) "+
				"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) "+
				"ON CONFLICT (id) DO UPDATE SET title=excluded.title, "+
				"description=excluded.description, media_url=excluded.media_url, "+
				"artwork_url=excluded.artwork_url, published_at=excluded.published_at, "+
				"duration_seconds=excluded.duration_seconds, file_size=excluded.file_size, "+
				"episode_number=excluded.episode_number, season_number=excluded.season_number",
			episode.ID, episode.PodcastID, episode.Title, episode.Description,
			episode.MediaURL, episode.ArtworkURL, episode.PublishedAt,
			episode.DurationSeconds, episode.FileSize, episode.EpisodeNumber,
			episode.SeasonNumber)
		if err != nil {
			return aerr.Wrapf(err, "upsert episode failed").WithTag(aerr.InternalError).
				WithMeta("episode_id", episode.ID)
		}
	}

	return nil
}

func (Repository) DeleteEpisodes(ctx context.Context, podcastid int64) error {
	logger := log.Ctx(ctx)
	logger.Debug().Int64("podcast_id", podcastid).Msg("sqlite.Repository: delete episodes")

	dbctx := db.MustCtx(ctx)

	_, err := dbctx.ExecContext(ctx, "DELETE FROM episodes WHERE podcast_id=?", podcastid)
	if err != nil {
		return aerr.Wrapf(err, "delete episodes failed").WithTag(aerr.InternalError).
			WithMeta("podcast_id", podcastid)
	}

	return nil
}

//------------------------------------------------------------------------------

func (Repository) UpdateDownloadStatus(
	ctx context.Context,
	episodeid int64,
	status model.DownloadStatus,
	localpath string,
) error {
	logger := log.Ctx(ctx)
	logger.Debug().Int64("episode_id", episodeid).Str("status", string(status)).
		Msg("sqlite.Repository: update download status")

	dbctx := db.MustCtx(ctx)

	res, err := dbctx.ExecContext(ctx,
		"UPDATE episodes SET download_status=?, local_file_path=? WHERE id=?",
		string(status), localpath, episodeid)
	if err != nil {
		return aerr.Wrapf(err, "update download status failed").WithTag(aerr.InternalError).
			WithMeta("episode_id", episodeid)
	}

	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return repository.ErrNoData
	}

	return nil
}

func (Repository) UpdatePlaybackPosition(ctx context.Context, episodeid int64, positionms, lastplayedat int64) error {
	logger := log.Ctx(ctx)
	logger.Debug().Int64("episode_id", episodeid).Int64("position_ms", positionms).
		Msg("sqlite.Repository: update playback position")

	dbctx := db.MustCtx(ctx)

	_, err := dbctx.ExecContext(ctx,
		"UPDATE episodes SET last_played_position_ms=?, last_played_at=? WHERE id=?",
		positionms, lastplayedat, episodeid)
	if err != nil {
		return aerr.Wrapf(err, "update playback position failed").WithTag(aerr.InternalError).
			WithMeta("episode_id", episodeid)
	}

	return nil
}

func (Repository) UpdateArchived(ctx context.Context, episodeid int64, archived bool) error {
	logger := log.Ctx(ctx)
	logger.Debug().Int64("episode_id", episodeid).Bool("archived", archived).
		Msg("sqlite.Repository: update archived")

	dbctx := db.MustCtx(ctx)

	_, err := dbctx.ExecContext(ctx,
		"UPDATE episodes SET archived=? WHERE id=?", archived, episodeid)
	if err != nil {
		return aerr.Wrapf(err, "update archived failed").WithTag(aerr.InternalError).
			WithMeta("episode_id", episodeid)
	}

	return nil
}

//------------------------------------------------------------------------------

// ListRecentlyPlayed return started, unfinished, not archived episodes - the
// "continue listening" list.
func (Repository) ListRecentlyPlayed(ctx context.Context, limit uint) ([]model.Episode, error) {
	dbctx := db.MustCtx(ctx)

	query := "SELECT " + episodeColumns + " FROM episodes " +
		"WHERE last_played_at > 0 AND last_played_position_ms > 0 " +
		"AND (duration_seconds = 0 OR last_played_position_ms < duration_seconds * 1000) " +
		"AND NOT archived " +
		"ORDER BY last_played_at DESC"
	if limit > 0 {
		query += " LIMIT " + strconv.FormatUint(uint64(limit), 10)
	}

	res := []EpisodeDB{}

	err := dbctx.SelectContext(ctx, &res, query)
	if err != nil {
		return nil, aerr.Wrapf(err, "query recently played failed").WithTag(aerr.InternalError)
	}

	return episodesFromDB(res), nil
}

// ListRecentEpisodes return newest not archived episodes of subscribed podcasts.
func (Repository) ListRecentEpisodes(ctx context.Context, limit uint) ([]model.Episode, error) {
	dbctx := db.MustCtx(ctx)

	query := "SELECT e.id, e.podcast_id, e.title, e.description, e.media_url, e.artwork_url, " +
		"e.published_at, e.duration_seconds, e.file_size, e.episode_number, e.season_number, " +
		"e.download_status, e.local_file_path, e.last_played_position_ms, e.last_played_at, " +
		"e.archived FROM episodes e " +
		"JOIN podcasts p ON p.id = e.podcast_id " +
		"WHERE p.subscribed AND NOT e.archived " +
		"ORDER BY e.published_at DESC"
	if limit > 0 {
		query += " LIMIT " + strconv.FormatUint(uint64(limit), 10)
	}

	res := []EpisodeDB{}

	err := dbctx.SelectContext(ctx, &res, query)
	if err != nil {
		return nil, aerr.Wrapf(err, "query recent episodes failed").WithTag(aerr.InternalError)
	}

	return episodesFromDB(res), nil
}

func (Repository) ListDownloaded(ctx context.Context) ([]model.Episode, error) {
	dbctx := db.MustCtx(ctx)

	res := []EpisodeDB{}

	err := dbctx.SelectContext(ctx, &res,
		"SELECT "+episodeColumns+" FROM episodes "+
			"WHERE download_status IN ('QUEUED', 'DOWNLOADING', 'DOWNLOADED') "+
			"ORDER BY published_at DESC")
	if err != nil {
		return nil, aerr.Wrapf(err, "query downloaded episodes failed").WithTag(aerr.InternalError)
	}

	return episodesFromDB(res), nil
}
