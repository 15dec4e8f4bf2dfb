package feed

//
// parser.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/model"
)

// Parse decode feed content into podcast metadata and its episodes.
// Episode ids are left at zero; identity is resolved against persisted rows
// during sync. Items without media enclosure are skipped.
func Parse(feedurl, content string) (*model.Podcast, []model.Episode, error) {
	parsed, err := gofeed.NewParser().ParseString(content)
	if err != nil {
		return nil, nil, aerr.Wrapf(err, "parse feed failed").WithTag(aerr.DataError).
			WithMeta("feed_url", feedurl)
	}

	podcast := podcastFromFeed(feedurl, parsed)

	episodes := make([]model.Episode, 0, len(parsed.Items))

	for _, item := range parsed.Items {
		if episode, ok := episodeFromItem(item); ok {
			episodes = append(episodes, episode)
		}
	}

	return podcast, episodes, nil
}

func podcastFromFeed(feedurl string, parsed *gofeed.Feed) *model.Podcast {
	title := parsed.Title
	if title == "" {
		title = "<no title>"
	}

	artwork := ""
	if parsed.Image != nil {
		artwork = parsed.Image.URL
	}

	author := ""

	if parsed.ITunesExt != nil {
		author = parsed.ITunesExt.Author

		if artwork == "" {
			artwork = parsed.ITunesExt.Image
		}
	}

	if author == "" && len(parsed.Authors) > 0 {
		author = parsed.Authors[0].Name
	}

	return &model.Podcast{ //nolint:exhaustruct
		ID:          model.PodcastIDForURL(feedurl),
		Title:       title,
		FeedURL:     feedurl,
		Description: parsed.Description,
		ArtworkURL:  artwork,
		Author:      author,
	}
}

func episodeFromItem(item *gofeed.Item) (model.Episode, bool) {
	mediaurl, filesize := itemEnclosure(item)
	if mediaurl == "" {
		return model.Episode{}, false //nolint:exhaustruct
	}

	episode := model.Episode{ //nolint:exhaustruct
		Title:       item.Title,
		Description: item.Description,
		MediaURL:    mediaurl,
		FileSize:    filesize,
	}

	if item.Image != nil {
		episode.ArtworkURL = item.Image.URL
	}

	if item.PublishedParsed != nil {
		episode.PublishedAt = item.PublishedParsed.Unix()
	}

	if itunes := item.ITunesExt; itunes != nil {
		episode.DurationSeconds = parseDuration(itunes.Duration)
		episode.EpisodeNumber = parseOptionalInt(itunes.Episode)
		episode.SeasonNumber = parseOptionalInt(itunes.Season)

		if episode.ArtworkURL == "" {
			episode.ArtworkURL = itunes.Image
		}
	}

	return episode, true
}

func itemEnclosure(item *gofeed.Item) (string, int64) {
	for _, enc := range item.Enclosures {
		if enc.URL == "" {
			continue
		}

		length, _ := strconv.ParseInt(enc.Length, 10, 64)

		return enc.URL, max(length, 0)
	}

	return "", 0
}

// parseDuration handle both plain seconds and "[HH:]MM:SS" forms used in
// itunes:duration tags.
func parseDuration(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if !strings.Contains(value, ":") {
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds < 0 {
			return 0
		}

		return seconds
	}

	parts := strings.Split(value, ":")
	if len(parts) > 3 { //nolint:mnd
		return 0
	}

	seconds := 0

	for _, part := range parts {
		val, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || val < 0 {
			return 0
		}

		seconds = seconds*60 + val
	}

	return seconds
}

func parseOptionalInt(value string) *int {
	val, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil
	}

	return &val
}
