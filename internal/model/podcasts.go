package model

//
// podcasts.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"time"

	"github.com/rs/zerolog"
)

type Podcast struct {
	ID           int64
	Title        string
	FeedURL      string
	Description  string
	ArtworkURL   string
	Author       string
	Subscribed   bool
	SubscribedAt time.Time
}

func (p *Podcast) MarshalZerologObject(event *zerolog.Event) {
	event.Int64("id", p.ID).
		Str("title", p.Title).
		Str("feed_url", p.FeedURL).
		Bool("subscribed", p.Subscribed)
}

// PodcastIDForURL derive stable podcast id from its feed url, the same way
// EpisodeIDForURL does for media urls.
func PodcastIDForURL(feedURL string) int64 {
	return EpisodeIDForURL(feedURL)
}

type Podcasts []Podcast

func (p Podcasts) ToFeedURLs() []string {
	urls := make([]string, len(p))
	for i, pod := range p {
		urls[i] = pod.FeedURL
	}

	return urls
}
