package playback

//
// coordinator_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//
import (
	"context"
	"os"
	"path/filepath"
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
	"gitlab.com/kabes/go-podcatcher/internal/infra/sqlite"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
	"gitlab.com/kabes/go-podcatcher/internal/service"
)

type testEnv struct {
	ctx       context.Context
	database  *db.Database
	coord     *Coordinator
	engine    *fakeEngine
	downloads *fakeDownloads
}

func prepareTests(t *testing.T) *testEnv {
	t.Helper()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	ctx := log.Logger.WithContext(context.Background())
	i := do.New(service.Package, db.Package, infra.Package)
	do.OverrideValue[prometheus.Registerer](i, prometheus.NewRegistry())

	database := do.MustInvoke[*db.Database](i)
	if err := database.Connect(ctx, "sqlite3", filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("connect to db error: %#+v", err)
	}

	if err := database.Migrate(ctx, "sqlite3"); err != nil {
		t.Fatalf("prepare db error: %#+v", err)
	}

	engine := newFakeEngine()
	downloads := newFakeDownloads()

	coord := NewCoordinator(ctx, database,
		do.MustInvoke[repository.Episodes](i),
		do.MustInvoke[*service.SettingsSrv](i),
		downloads, engine)
	t.Cleanup(coord.Close)

	return &testEnv{ctx: ctx, database: database, coord: coord, engine: engine, downloads: downloads}
}

func (e *testEnv) prepareEpisode(t *testing.T, mediaurl string,
	status model.DownloadStatus, localpath string, positionms int64,
) *model.Episode {
	t.Helper()

	repo := sqlite.Repository{}
	episodeid := model.EpisodeIDForURL(mediaurl)

	err := db.InTransaction(e.ctx, e.database, func(ctx context.Context) error {
		podcast := model.Podcast{ //nolint:exhaustruct
			ID:      model.PodcastIDForURL("http://example.com/feed"),
			Title:   "Test Cast",
			FeedURL: "http://example.com/feed",
		}
		if err := repo.SavePodcast(ctx, &podcast); err != nil {
			return err
		}

		episode := model.Episode{ //nolint:exhaustruct
			ID:        episodeid,
			PodcastID: podcast.ID,
			Title:     "episode " + mediaurl,
			MediaURL:  mediaurl,
		}
		if err := repo.UpsertEpisodes(ctx, []model.Episode{episode}); err != nil {
			return err
		}

		if err := repo.UpdateDownloadStatus(ctx, episodeid, status, localpath); err != nil {
			return err
		}

		if positionms > 0 {
			return repo.UpdatePlaybackPosition(ctx, episodeid, positionms, time.Now().Unix())
		}

		return nil
	})
	assert.NoErr(t, err)

	episode, err := db.InConnectionR(e.ctx, e.database,
		func(ctx context.Context) (*model.Episode, error) {
			return repo.GetEpisode(ctx, episodeid)
		})
	assert.NoErr(t, err)

	return episode
}

func (e *testEnv) episode(t *testing.T, episodeid int64) *model.Episode {
	t.Helper()

	repo := sqlite.Repository{}
	episode, err := db.InConnectionR(e.ctx, e.database,
		func(ctx context.Context) (*model.Episode, error) {
			return repo.GetEpisode(ctx, episodeid)
		})
	assert.NoErr(t, err)

	return episode
}

// flushPersist wait for all fire-and-forget persistence started so far.
func (e *testEnv) flushPersist() {
	e.coord.persistWG.Wait()
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timeout waiting for: %s", msg)
}

//------------------------------------------------------------------------------

type fakeEngine struct {
	mu       sync.Mutex
	listener Listener

	loads    []string
	loadPos  []int64
	seeks    []int64
	playing  bool
	position int64
	duration int64
	speed    float64
	stopped  bool
	cleared  bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{} //nolint:exhaustruct
}

func (f *fakeEngine) LoadMedia(uri string, startPositionMs int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loads = append(f.loads, uri)
	f.loadPos = append(f.loadPos, startPositionMs)
}

func (f *fakeEngine) Play() { f.mu.Lock(); f.playing = true; f.mu.Unlock() }

func (f *fakeEngine) Pause() { f.mu.Lock(); f.playing = false; f.mu.Unlock() }

func (f *fakeEngine) Stop() { f.mu.Lock(); f.playing = false; f.stopped = true; f.mu.Unlock() }

func (f *fakeEngine) SeekTo(positionMs int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seeks = append(f.seeks, positionMs)
	f.position = positionMs
}

func (f *fakeEngine) SetSpeed(speed float64) { f.mu.Lock(); f.speed = speed; f.mu.Unlock() }

func (f *fakeEngine) ClearMedia() { f.mu.Lock(); f.cleared = true; f.mu.Unlock() }

func (f *fakeEngine) Position() int64 { f.mu.Lock(); defer f.mu.Unlock(); return f.position }

func (f *fakeEngine) Duration() int64 { f.mu.Lock(); defer f.mu.Unlock(); return f.duration }

func (f *fakeEngine) IsPlaying() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.playing }

func (f *fakeEngine) SetListener(listener Listener) {
	f.mu.Lock()
	f.listener = listener
	f.mu.Unlock()
}

func (f *fakeEngine) setProgress(positionms, durationms int64, playing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.position = positionms
	f.duration = durationms
	f.playing = playing
}

func (f *fakeEngine) lastLoad() (string, int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.loads) == 0 {
		return "", 0
	}

	return f.loads[len(f.loads)-1], f.loadPos[len(f.loadPos)-1]
}

//------------------------------------------------------------------------------

type fakeDownloads struct {
	mu       sync.Mutex
	requests []int64
	deletes  []int64
	watchers map[int64][]chan string
}

func newFakeDownloads() *fakeDownloads {
	return &fakeDownloads{watchers: map[int64][]chan string{}} //nolint:exhaustruct
}

func (f *fakeDownloads) Request(_ context.Context, episodeid int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, episodeid)

	return nil
}

func (f *fakeDownloads) Delete(_ context.Context, episodeid int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes = append(f.deletes, episodeid)

	return nil
}

func (f *fakeDownloads) ObserveCompletion(_ context.Context, episodeid int64) (<-chan string, func()) {
	ch := make(chan string, 1)

	f.mu.Lock()
	f.watchers[episodeid] = append(f.watchers[episodeid], ch)
	f.mu.Unlock()

	unsubscribe := func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		watchers := f.watchers[episodeid]
		for idx, w := range watchers {
			if w == ch {
				f.watchers[episodeid] = append(watchers[:idx], watchers[idx+1:]...)

				break
			}
		}
	}

	return ch, unsubscribe
}

func (f *fakeDownloads) complete(episodeid int64, localpath string) {
	f.mu.Lock()
	watchers := f.watchers[episodeid]
	delete(f.watchers, episodeid)
	f.mu.Unlock()

	for _, ch := range watchers {
		ch <- localpath
		close(ch)
	}
}

func (f *fakeDownloads) requestCount(episodeid int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	cnt := 0

	for _, id := range f.requests {
		if id == episodeid {
			cnt++
		}
	}

	return cnt
}

func (f *fakeDownloads) deleted(episodeid int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range f.deletes {
		if id == episodeid {
			return true
		}
	}

	return false
}

//------------------------------------------------------------------------------

func TestPlayRequestsDownload(t *testing.T) {
	env := prepareTests(t)

	episode := env.prepareEpisode(t, "http://example.com/ep1.mp3",
		model.StatusNotDownloaded, "", 0)

	env.coord.Play(env.ctx, episode)

	uri, pos := env.engine.lastLoad()
	assert.Equal(t, uri, "http://example.com/ep1.mp3")
	assert.Equal(t, pos, int64(0))
	assert.True(t, env.engine.IsPlaying())
	assert.Equal(t, env.downloads.requestCount(episode.ID), 1)

	state := env.coord.State()
	assert.Equal(t, state.CurrentEpisode.ID, episode.ID)
	assert.True(t, state.IsBuffering)
}

func TestPlayDownloadedUsesLocalFile(t *testing.T) {
	env := prepareTests(t)

	episode := env.prepareEpisode(t, "http://example.com/ep1.mp3",
		model.StatusDownloaded, "/tmp/ep1.mp3", 45_000)

	env.coord.Play(env.ctx, episode)

	uri, pos := env.engine.lastLoad()
	assert.Equal(t, uri, "/tmp/ep1.mp3")
	assert.Equal(t, pos, int64(45_000))
	assert.Equal(t, env.downloads.requestCount(episode.ID), 0)
}

func TestPlayInFlightSubscribesWithoutNewRequest(t *testing.T) {
	env := prepareTests(t)

	episode := env.prepareEpisode(t, "http://example.com/ep1.mp3",
		model.StatusDownloading, "", 0)

	env.coord.Play(env.ctx, episode)

	assert.Equal(t, env.downloads.requestCount(episode.ID), 0)

	env.downloads.complete(episode.ID, "/tmp/ep1.mp3")

	waitFor(t, func() bool {
		state := env.coord.State()

		return state.CurrentEpisode.DownloadStatus == model.StatusDownloaded
	}, "active snapshot updated after completion")
}

func TestDownloadCompletionDoesNotSwapMedia(t *testing.T) {
	env := prepareTests(t)

	episode := env.prepareEpisode(t, "http://example.com/ep1.mp3",
		model.StatusNotDownloaded, "", 0)

	env.coord.Play(env.ctx, episode)
	env.downloads.complete(episode.ID, "/tmp/ep1.mp3")

	waitFor(t, func() bool {
		state := env.coord.State()

		return state.CurrentEpisode.LocalFilePath == "/tmp/ep1.mp3"
	}, "active snapshot updated after completion")

	// media source stays on the stream; local copy is for the next Play
	env.engine.mu.Lock()
	loads := len(env.engine.loads)
	env.engine.mu.Unlock()
	assert.Equal(t, loads, 1)

	uri, _ := env.engine.lastLoad()
	assert.Equal(t, uri, "http://example.com/ep1.mp3")
}

func TestDownloadCompletionRace(t *testing.T) {
	env := prepareTests(t)

	episodeA := env.prepareEpisode(t, "http://example.com/a.mp3",
		model.StatusNotDownloaded, "", 0)
	episodeB := env.prepareEpisode(t, "http://example.com/b.mp3",
		model.StatusDownloaded, "/tmp/b.mp3", 0)

	env.coord.Play(env.ctx, episodeA)
	env.coord.Play(env.ctx, episodeB)

	// completion of A arrives after switch to B and must not touch playback
	env.downloads.complete(episodeA.ID, "/tmp/a.mp3")

	time.Sleep(50 * time.Millisecond)

	state := env.coord.State()
	assert.Equal(t, state.CurrentEpisode.ID, episodeB.ID)
	assert.Equal(t, state.CurrentEpisode.LocalFilePath, "/tmp/b.mp3")

	uri, _ := env.engine.lastLoad()
	assert.Equal(t, uri, "/tmp/b.mp3")
}

func TestPauseSavesPositionImmediately(t *testing.T) {
	env := prepareTests(t)

	episode := env.prepareEpisode(t, "http://example.com/ep1.mp3",
		model.StatusNotDownloaded, "", 0)

	env.coord.Play(env.ctx, episode)
	env.coord.PlayingChanged(true)

	env.engine.setProgress(90_000, 3_600_000, true)
	env.coord.pollPosition()

	env.coord.PlayingChanged(false)
	env.flushPersist()

	persisted := env.episode(t, episode.ID)
	assert.Equal(t, persisted.LastPlayedPositionMs, int64(90_000))
	assert.True(t, persisted.LastPlayedAt > 0)
}

func TestSwitchPersistsPreviousPosition(t *testing.T) {
	env := prepareTests(t)

	episodeA := env.prepareEpisode(t, "http://example.com/a.mp3",
		model.StatusDownloaded, "/tmp/a.mp3", 0)
	episodeB := env.prepareEpisode(t, "http://example.com/b.mp3",
		model.StatusDownloaded, "/tmp/b.mp3", 0)

	env.coord.Play(env.ctx, episodeA)
	env.coord.PlayingChanged(true)
	env.engine.setProgress(50_000, 3_600_000, true)
	env.coord.pollPosition()

	env.coord.Play(env.ctx, episodeB)
	env.flushPersist()

	persisted := env.episode(t, episodeA.ID)
	assert.Equal(t, persisted.LastPlayedPositionMs, int64(50_000))
}

func TestMediaEnded(t *testing.T) {
	env := prepareTests(t)

	episode := env.prepareEpisode(t, "http://example.com/ep1.mp3",
		model.StatusDownloaded, "/tmp/ep1.mp3", 120_000)

	env.coord.SetSpeed(env.ctx, 1.5)
	env.coord.Play(env.ctx, episode)
	env.coord.PlayingChanged(true)

	env.coord.MediaEnded()
	env.flushPersist()

	assert.True(t, env.downloads.deleted(episode.ID))

	persisted := env.episode(t, episode.ID)
	assert.Equal(t, persisted.LastPlayedPositionMs, int64(0))
	assert.Equal(t, persisted.LastPlayedAt, int64(0))
	assert.True(t, persisted.Archived)

	env.engine.mu.Lock()
	stopped, cleared := env.engine.stopped, env.engine.cleared
	env.engine.mu.Unlock()
	assert.True(t, stopped)
	assert.True(t, cleared)

	// state reset keeps only speed
	state := env.coord.State()
	assert.True(t, state.CurrentEpisode == nil)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, state.CurrentPositionMs, int64(0))
	assert.Equal(t, state.PlaybackSpeed, 1.5)
}

func TestSkipForwardClamped(t *testing.T) {
	env := prepareTests(t)

	episode := env.prepareEpisode(t, "http://example.com/ep1.mp3",
		model.StatusDownloaded, "/tmp/ep1.mp3", 0)

	env.coord.Play(env.ctx, episode)
	env.coord.PlayingChanged(true)
	env.engine.setProgress(3_590_000, 3_600_000, true)
	env.coord.pollPosition()

	env.coord.SkipForward()

	env.engine.mu.Lock()
	lastSeek := env.engine.seeks[len(env.engine.seeks)-1]
	env.engine.mu.Unlock()
	assert.Equal(t, lastSeek, int64(3_600_000))
}

func TestSkipBackwardClamped(t *testing.T) {
	env := prepareTests(t)

	episode := env.prepareEpisode(t, "http://example.com/ep1.mp3",
		model.StatusDownloaded, "/tmp/ep1.mp3", 0)

	env.coord.Play(env.ctx, episode)
	env.coord.PlayingChanged(true)
	env.engine.setProgress(5_000, 3_600_000, true)
	env.coord.pollPosition()

	env.coord.SkipBackward()

	env.engine.mu.Lock()
	lastSeek := env.engine.seeks[len(env.engine.seeks)-1]
	env.engine.mu.Unlock()
	assert.Equal(t, lastSeek, int64(0))
}

func TestSetSpeedPersisted(t *testing.T) {
	env := prepareTests(t)

	env.coord.SetSpeed(env.ctx, 2.0)
	env.flushPersist()

	assert.Equal(t, env.coord.State().PlaybackSpeed, 2.0)

	env.engine.mu.Lock()
	speed := env.engine.speed
	env.engine.mu.Unlock()
	assert.Equal(t, speed, 2.0)
}

func TestTogglePlayPause(t *testing.T) {
	env := prepareTests(t)

	episode := env.prepareEpisode(t, "http://example.com/ep1.mp3",
		model.StatusDownloaded, "/tmp/ep1.mp3", 0)

	env.coord.Play(env.ctx, episode)
	assert.True(t, env.engine.IsPlaying())

	env.coord.TogglePlayPause()
	assert.False(t, env.engine.IsPlaying())

	env.coord.TogglePlayPause()
	assert.True(t, env.engine.IsPlaying())
}
