package model

//
// episodes.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/rs/zerolog"
)

// DownloadStatus describe state of local copy of episode media.
type DownloadStatus string

const (
	StatusNotDownloaded DownloadStatus = "NOT_DOWNLOADED"
	StatusQueued        DownloadStatus = "QUEUED"
	StatusDownloading   DownloadStatus = "DOWNLOADING"
	StatusDownloaded    DownloadStatus = "DOWNLOADED"
	StatusFailed        DownloadStatus = "FAILED"
)

// ParseDownloadStatus map string loaded from repository into DownloadStatus.
// Unknown values are treated as not downloaded.
func ParseDownloadStatus(value string) DownloadStatus {
	switch status := DownloadStatus(value); status {
	case StatusNotDownloaded, StatusQueued, StatusDownloading, StatusDownloaded, StatusFailed:
		return status
	default:
		return StatusNotDownloaded
	}
}

// InFlight is true for statuses with active background job.
func (s DownloadStatus) InFlight() bool {
	return s == StatusQueued || s == StatusDownloading
}

//------------------------------------------------------------------------------

// Episode keep one playable item of podcast.
//
// Remote-sourced fields (Title..SeasonNumber) are replaced on every feed sync;
// locally-owned fields (DownloadStatus..Archived) never come from the feed and
// must survive sync.
type Episode struct {
	ID        int64
	PodcastID int64

	Title           string
	Description     string
	MediaURL        string
	ArtworkURL      string
	PublishedAt     int64
	DurationSeconds int
	FileSize        int64
	EpisodeNumber   *int
	SeasonNumber    *int

	DownloadStatus       DownloadStatus
	LocalFilePath        string
	LastPlayedPositionMs int64
	LastPlayedAt         int64
	Archived             bool
}

// DisplayArtwork return episode artwork with fallback to podcast artwork.
// Fallback is applied on read, never persisted.
func (e *Episode) DisplayArtwork(podcast *Podcast) string {
	if e.ArtworkURL != "" {
		return e.ArtworkURL
	}

	if podcast != nil {
		return podcast.ArtworkURL
	}

	return ""
}

// PlaybackURI return uri loaded into audio engine: local file when episode is
// downloaded, media url otherwise.
func (e *Episode) PlaybackURI() string {
	if e.DownloadStatus == StatusDownloaded && e.LocalFilePath != "" {
		return e.LocalFilePath
	}

	return e.MediaURL
}

func (e *Episode) MarshalZerologObject(event *zerolog.Event) {
	event.Int64("id", e.ID).
		Int64("podcast_id", e.PodcastID).
		Str("title", e.Title).
		Str("media_url", e.MediaURL).
		Str("download_status", string(e.DownloadStatus))
}

//------------------------------------------------------------------------------

// EpisodeIDForURL derive stable episode id from media url: first 8 bytes of
// sha256 digest, big-endian, with sign bit cleared. Callers must prefer an
// already persisted id for the same url; this keeps download and playback
// history on one row across feed syncs.
func EpisodeIDForURL(mediaURL string) int64 {
	digest := sha256.Sum256([]byte(mediaURL))

	return int64(binary.BigEndian.Uint64(digest[:8]) & 0x7FFFFFFFFFFFFFFF) //nolint:mnd
}
