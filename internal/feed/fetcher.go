// Package feed download and parse remote podcast feeds.
package feed

//
// fetcher.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/config"
)

const (
	fetchTimeout      = 10 * time.Second
	fetchMaxRetries   = 2
	fetchRetryBackoff = time.Second
	maxFeedSize       = 10 << 20
)

type Fetcher struct {
	client *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout}, //nolint:exhaustruct
	}
}

// Fetch download feed content from url. Server errors and transport failures
// are retried with fibonacci backoff; client errors fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	logger := log.Ctx(ctx)
	logger.Debug().Str("feed_url", url).Msg("feed.Fetcher: fetch feed")

	var content string

	backoff := retry.WithMaxRetries(fetchMaxRetries, retry.NewFibonacci(fetchRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		body, err := f.fetchOnce(ctx, url)
		if err != nil {
			return err
		}

		content = body

		return nil
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", aerr.Wrapf(err, "prepare feed request failed").WithTag(aerr.ValidationError).
			WithMeta("feed_url", url)
	}

	req.Header.Set("User-Agent", "go-podcatcher/"+config.Version)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", retry.RetryableError(
			aerr.Wrapf(err, "feed request failed").WithTag(aerr.NetworkError).
				WithMeta("feed_url", url))
	}

	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", retry.RetryableError(
			aerr.New("feed server error").WithTag(aerr.NetworkError).
				WithMeta("feed_url", url).WithMeta("status", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", aerr.New("feed request rejected").WithTag(aerr.NetworkError).
			WithMeta("feed_url", url).WithMeta("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return "", retry.RetryableError(
			aerr.Wrapf(err, "read feed body failed").WithTag(aerr.NetworkError).
				WithMeta("feed_url", url))
	}

	if len(body) == 0 {
		return "", aerr.New("empty feed body").WithTag(aerr.DataError).WithMeta("feed_url", url)
	}

	return string(body), nil
}
