package model

//
// episodes_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"fmt"
	"testing"

	"gitlab.com/kabes/go-podcatcher/internal/assert"
)

func TestEpisodeIDForURLDeterministic(t *testing.T) {
	urls := []string{
		"https://example.com/ep1.mp3",
		"https://example.com/ep2.mp3",
		"http://example.com/ep1.mp3",
		"",
		"https://example.com/podcast/very/long/path/episode-123.mp3?auth=token&x=1",
	}

	for _, url := range urls {
		id1 := EpisodeIDForURL(url)
		id2 := EpisodeIDForURL(url)

		assert.Equal(t, id1, id2)
		assert.True(t, id1 >= 0)
	}
}

func TestEpisodeIDForURLDistinct(t *testing.T) {
	seen := make(map[int64]string)

	for i := range 1000 {
		url := fmt.Sprintf("https://example.com/episode-%d.mp3", i)
		id := EpisodeIDForURL(url)

		if prev, ok := seen[id]; ok {
			t.Fatalf("collision: %q and %q both map to %d", prev, url, id)
		}

		seen[id] = url
	}
}

func TestEpisodeIDForURLKnownValue(t *testing.T) {
	// empty input is valid and must produce a stable non-negative id
	id := EpisodeIDForURL("")

	assert.True(t, id >= 0)
	assert.Equal(t, id, EpisodeIDForURL(""))
}

func TestParseDownloadStatus(t *testing.T) {
	assert.Equal(t, ParseDownloadStatus("DOWNLOADED"), StatusDownloaded)
	assert.Equal(t, ParseDownloadStatus("QUEUED"), StatusQueued)
	assert.Equal(t, ParseDownloadStatus("bogus"), StatusNotDownloaded)
	assert.Equal(t, ParseDownloadStatus(""), StatusNotDownloaded)
}

func TestDisplayArtworkFallback(t *testing.T) {
	podcast := &Podcast{ID: 1, ArtworkURL: "https://example.com/pod.jpg"} //nolint:exhaustruct

	episode := &Episode{ID: 2, ArtworkURL: "https://example.com/ep.jpg"} //nolint:exhaustruct
	assert.Equal(t, episode.DisplayArtwork(podcast), "https://example.com/ep.jpg")

	episode.ArtworkURL = ""
	assert.Equal(t, episode.DisplayArtwork(podcast), "https://example.com/pod.jpg")
	assert.Equal(t, episode.DisplayArtwork(nil), "")
}

func TestPlaybackURI(t *testing.T) {
	episode := &Episode{ //nolint:exhaustruct
		MediaURL:       "https://example.com/ep.mp3",
		DownloadStatus: StatusNotDownloaded,
	}
	assert.Equal(t, episode.PlaybackURI(), "https://example.com/ep.mp3")

	episode.DownloadStatus = StatusDownloaded
	episode.LocalFilePath = "/tmp/episode_1.mp3"
	assert.Equal(t, episode.PlaybackURI(), "/tmp/episode_1.mp3")

	// downloaded status without path falls back to stream
	episode.LocalFilePath = ""
	assert.Equal(t, episode.PlaybackURI(), "https://example.com/ep.mp3")
}
