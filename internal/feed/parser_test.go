package feed

//
// parser_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//
import (
	"testing"

	"gitlab.com/kabes/go-podcatcher/internal/assert"
	"gitlab.com/kabes/go-podcatcher/internal/model"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
<channel>
  <title>Test Cast</title>
  <description>A show about testing</description>
  <itunes:author>The Author</itunes:author>
  <itunes:image href="http://example.com/cover.jpg"/>
  <item>
    <title>Episode One</title>
    <description>First episode</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    <enclosure url="http://example.com/ep1.mp3" length="1234567" type="audio/mpeg"/>
    <itunes:duration>01:02:03</itunes:duration>
    <itunes:episode>1</itunes:episode>
    <itunes:season>2</itunes:season>
  </item>
  <item>
    <title>Episode Two</title>
    <enclosure url="http://example.com/ep2.mp3" length="7654321" type="audio/mpeg"/>
    <itunes:duration>125</itunes:duration>
  </item>
  <item>
    <title>No media here</title>
  </item>
</channel>
</rss>`

func TestParseFeed(t *testing.T) {
	podcast, episodes, err := Parse("http://example.com/feed.xml", testFeed)
	assert.NoErr(t, err)

	assert.Equal(t, podcast.ID, model.PodcastIDForURL("http://example.com/feed.xml"))
	assert.Equal(t, podcast.Title, "Test Cast")
	assert.Equal(t, podcast.Description, "A show about testing")
	assert.Equal(t, podcast.Author, "The Author")
	assert.Equal(t, podcast.ArtworkURL, "http://example.com/cover.jpg")

	// item without enclosure is dropped
	assert.Equal(t, len(episodes), 2)

	ep1 := episodes[0]
	assert.Equal(t, ep1.ID, int64(0))
	assert.Equal(t, ep1.Title, "Episode One")
	assert.Equal(t, ep1.MediaURL, "http://example.com/ep1.mp3")
	assert.Equal(t, ep1.FileSize, int64(1234567))
	assert.Equal(t, ep1.DurationSeconds, 3723)
	if ep1.EpisodeNumber == nil || ep1.SeasonNumber == nil {
		t.Fatal("expected episode and season numbers")
	}

	assert.Equal(t, *ep1.EpisodeNumber, 1)
	assert.Equal(t, *ep1.SeasonNumber, 2)
	assert.True(t, ep1.PublishedAt > 0)

	ep2 := episodes[1]
	assert.Equal(t, ep2.DurationSeconds, 125)
	if ep2.EpisodeNumber != nil {
		t.Errorf("expected no episode number, got %v", *ep2.EpisodeNumber)
	}
}

func TestParseInvalidFeed(t *testing.T) {
	_, _, err := Parse("http://example.com/feed.xml", "this is not xml")
	assert.Err(t, err)
}

func TestParseDuration(t *testing.T) {
	data := []struct {
		in  string
		out int
	}{
		{"", 0},
		{"90", 90},
		{"02:05", 125},
		{"01:02:03", 3723},
		{"1:2:3:4", 0},
		{"abc", 0},
		{"-5", 0},
	}

	for _, d := range data {
		assert.Equal(t, parseDuration(d.in), d.out)
	}
}
