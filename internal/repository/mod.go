package repository

//
// mod.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	"time"

	"gitlab.com/kabes/go-podcatcher/internal/model"
)

// ErrNoData is returned when requested row not exists.
var ErrNoData = errors.New("no result")

// ------------------------------------------------------

type Podcasts interface {
	GetPodcast(ctx context.Context, podcastid int64) (*model.Podcast, error)
	GetPodcastByFeedURL(ctx context.Context, feedurl string) (*model.Podcast, error)
	SavePodcast(ctx context.Context, podcast *model.Podcast) error
	ListSubscribedPodcasts(ctx context.Context) (model.Podcasts, error)
	SetSubscribed(ctx context.Context, podcastid int64, subscribed bool, at time.Time) error
	DeletePodcast(ctx context.Context, podcastid int64) error
}

type Episodes interface {
	GetEpisode(ctx context.Context, episodeid int64) (*model.Episode, error)
	ListEpisodes(ctx context.Context, podcastid int64) ([]model.Episode, error)
	// ListEpisodeIDsByMediaURL return map media url -> persisted episode id for
	// one podcast; used to keep episode identity stable across feed syncs.
	ListEpisodeIDsByMediaURL(ctx context.Context, podcastid int64) (map[string]int64, error)
	// UpsertEpisodes insert episodes or update only remote-sourced fields of
	// existing rows; locally-owned fields are never touched.
	UpsertEpisodes(ctx context.Context, episodes []model.Episode) error
	DeleteEpisodes(ctx context.Context, podcastid int64) error

	UpdateDownloadStatus(ctx context.Context, episodeid int64, status model.DownloadStatus, localpath string) error
	UpdatePlaybackPosition(ctx context.Context, episodeid int64, positionms, lastplayedat int64) error
	UpdateArchived(ctx context.Context, episodeid int64, archived bool) error

	ListRecentlyPlayed(ctx context.Context, limit uint) ([]model.Episode, error)
	ListRecentEpisodes(ctx context.Context, limit uint) ([]model.Episode, error)
	ListDownloaded(ctx context.Context) ([]model.Episode, error)
}

type Settings interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SaveSetting(ctx context.Context, key, value string) error
}

type Repository interface {
	Podcasts
	Episodes
	Settings
}
