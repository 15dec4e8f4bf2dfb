package service

//
// testhelpers_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//
import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-podcatcher/internal/assert"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/infra"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
)

func prepareTests(t *testing.T) (context.Context, *do.RootScope, *fakeFetcher) {
	t.Helper()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout}).With().Caller().Stack().Logger()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)

	ctx := log.Logger.WithContext(context.Background())
	i := do.New(Package, db.Package, infra.Package)

	fetcher := &fakeFetcher{feeds: map[string]string{}, failing: map[string]bool{}}
	do.OverrideValue[FeedFetcher](i, fetcher)
	do.OverrideValue[prometheus.Registerer](i, prometheus.NewRegistry())

	database := do.MustInvoke[*db.Database](i)

	connstr := filepath.Join(t.TempDir(), "test.db")
	if err := database.Connect(ctx, "sqlite3", connstr); err != nil {
		t.Fatalf("connect to db error: %#+v", err)
	}

	if err := database.Migrate(ctx, "sqlite3"); err != nil {
		t.Fatalf("prepare db error: %#+v", err)
	}

	return ctx, i, fetcher
}

//------------------------------------------------------------------------------

type fakeFetcher struct {
	mu      sync.Mutex
	feeds   map[string]string
	failing map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing[url] {
		return "", fmt.Errorf("fetch %q failed", url)
	}

	content, ok := f.feeds[url]
	if !ok {
		return "", fmt.Errorf("fetch %q failed: not found", url)
	}

	return content, nil
}

func (f *fakeFetcher) setFeed(url, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.feeds[url] = content
	f.failing[url] = false
}

func (f *fakeFetcher) setFailing(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failing[url] = true
}

//------------------------------------------------------------------------------

// feedXML render minimal rss document; items are (media url, title) pairs.
func feedXML(title string, items ...[2]string) string {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0"><channel><title>` + title + `</title>`)
	b.WriteString(`<description>about ` + title + `</description>`)

	for _, item := range items {
		b.WriteString(`<item><title>` + item[1] + `</title>`)
		b.WriteString(`<pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>`)
		b.WriteString(`<enclosure url="` + item[0] + `" length="1000" type="audio/mpeg"/></item>`)
	}

	b.WriteString(`</channel></rss>`)

	return b.String()
}

func prepareTestPodcast(ctx context.Context, t *testing.T, i do.Injector,
	feedurl, title string, items ...[2]string,
) *model.Podcast {
	t.Helper()

	fetcher := do.MustInvoke[FeedFetcher](i).(*fakeFetcher) //nolint:forcetypeassert
	fetcher.setFeed(feedurl, feedXML(title, items...))

	subsSrv := do.MustInvoke[*SubscriptionsSrv](i)
	podcast, err := subsSrv.Subscribe(ctx, feedurl)
	assert.NoErr(t, err)

	return podcast
}

// markEpisodeState set locally-owned fields directly through repository.
func markEpisodeState(ctx context.Context, t *testing.T, i do.Injector,
	episodeid int64, status model.DownloadStatus, localpath string,
	positionms int64,
) {
	t.Helper()

	database := do.MustInvoke[*db.Database](i)
	episodesRepo := do.MustInvoke[repository.Episodes](i)

	err := db.InTransaction(ctx, database, func(ctx context.Context) error {
		if err := episodesRepo.UpdateDownloadStatus(ctx, episodeid, status, localpath); err != nil {
			return err
		}

		if positionms > 0 {
			return episodesRepo.UpdatePlaybackPosition(ctx, episodeid, positionms,
				time.Now().Unix())
		}

		return nil
	})
	assert.NoErr(t, err)
}
