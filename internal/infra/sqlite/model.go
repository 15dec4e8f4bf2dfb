package sqlite

// model.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.

import (
	"database/sql"
	"time"

	"gitlab.com/kabes/go-podcatcher/internal/model"
)

//----------------------------------------

type PodcastDB struct {
	ID           int64        `db:"id"`
	Title        string       `db:"title"`
	FeedURL      string       `db:"feed_url"`
	Description  string       `db:"description"`
	ArtworkURL   string       `db:"artwork_url"`
	Author       string       `db:"author"`
	Subscribed   bool         `db:"subscribed"`
	SubscribedAt sql.NullTime `db:"subscribed_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (p *PodcastDB) toModel() *model.Podcast {
	podcast := &model.Podcast{
		ID:           p.ID,
		Title:        p.Title,
		FeedURL:      p.FeedURL,
		Description:  p.Description,
		ArtworkURL:   p.ArtworkURL,
		Author:       p.Author,
		Subscribed:   p.Subscribed,
		SubscribedAt: time.Time{},
	}
	if p.SubscribedAt.Valid {
		podcast.SubscribedAt = p.SubscribedAt.Time
	}

	return podcast
}

func podcastsFromDB(podcasts []PodcastDB) model.Podcasts {
	res := make(model.Podcasts, len(podcasts))
	for i, p := range podcasts {
		res[i] = *p.toModel()
	}

	return res
}

//----------------------------------------

type EpisodeDB struct {
	ID                   int64  `db:"id"`
	PodcastID            int64  `db:"podcast_id"`
	Title                string `db:"title"`
	Description          string `db:"description"`
	MediaURL             string `db:"media_url"`
	ArtworkURL           string `db:"artwork_url"`
	PublishedAt          int64  `db:"published_at"`
	DurationSeconds      int    `db:"duration_seconds"`
	FileSize             int64  `db:"file_size"`
	EpisodeNumber        *int   `db:"episode_number"`
	SeasonNumber         *int   `db:"season_number"`
	DownloadStatus       string `db:"download_status"`
	LocalFilePath        string `db:"local_file_path"`
	LastPlayedPositionMs int64  `db:"last_played_position_ms"`
	LastPlayedAt         int64  `db:"last_played_at"`
	Archived             bool   `db:"archived"`
}

func (e *EpisodeDB) toModel() *model.Episode {
	return &model.Episode{
		ID:                   e.ID,
		PodcastID:            e.PodcastID,
		Title:                e.Title,
		Description:          e.Description,
		MediaURL:             e.MediaURL,
		ArtworkURL:           e.ArtworkURL,
		PublishedAt:          e.PublishedAt,
		DurationSeconds:      e.DurationSeconds,
		FileSize:             e.FileSize,
		EpisodeNumber:        e.EpisodeNumber,
		SeasonNumber:         e.SeasonNumber,
		DownloadStatus:       model.ParseDownloadStatus(e.DownloadStatus),
		LocalFilePath:        e.LocalFilePath,
		LastPlayedPositionMs: e.LastPlayedPositionMs,
		LastPlayedAt:         e.LastPlayedAt,
		Archived:             e.Archived,
	}
}

func episodesFromDB(episodes []EpisodeDB) []model.Episode {
	res := make([]model.Episode, len(episodes))
	for i, e := range episodes {
		res[i] = *e.toModel()
	}

	return res
}
