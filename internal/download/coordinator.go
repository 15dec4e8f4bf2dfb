// Package download run background episode downloads with keyed deduplication.
package download

//
// coordinator.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/config"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
)

const (
	queueSize   = 128
	chunkSize   = 8192
	partSuffix  = ".part"
	defaultExt  = ".mp3"
	fullPercent = 100
)

var ErrQueueFull = aerr.New("download queue full").
	WithTag(aerr.InternalError).
	WithUserMsg("too many queued downloads")

type job struct {
	episode model.Episode
	cancel  context.CancelFunc
	ctx     context.Context
}

// Coordinator own the download queue and its workers. One job per episode id;
// requesting an already queued or running episode keeps the existing job.
// Jobs run on an internal context, so a download started for one episode keeps
// running when the caller moves on.
type Coordinator struct {
	db           *db.Database
	episodesRepo repository.Episodes
	conf         config.DownloadsConf
	client       *http.Client
	metrics      *metrics

	queue   chan *job
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	jobs     map[int64]*job
	progress map[int64]int
	watchers map[int64][]chan string
	closed   bool
}

func NewCoordinatorI(i do.Injector) (*Coordinator, error) {
	return New(
		do.MustInvoke[*db.Database](i),
		do.MustInvoke[repository.Episodes](i),
		do.MustInvoke[config.DownloadsConf](i),
		do.MustInvoke[prometheus.Registerer](i),
	)
}

func New(database *db.Database, episodesRepo repository.Episodes,
	conf config.DownloadsConf, reg prometheus.Registerer,
) (*Coordinator, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	if err := conf.EnsureDir(); err != nil {
		return nil, err
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		db:           database,
		episodesRepo: episodesRepo,
		conf:         conf,
		client:       &http.Client{}, //nolint:exhaustruct
		metrics:      newMetrics(reg),
		queue:        make(chan *job, queueSize),
		baseCtx:      baseCtx,
		cancel:       cancel,
		jobs:         map[int64]*job{},
		progress:     map[int64]int{},
		watchers:     map[int64][]chan string{},
	}

	for range conf.Workers {
		c.wg.Go(c.worker)
	}

	return c, nil
}

// Shutdown stop workers and drop queued jobs. Called by samber/do.
func (c *Coordinator) Shutdown(_ context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	close(c.queue)
	c.wg.Wait()

	return nil
}

//------------------------------------------------------------------------------

// Request queue download of episode media. No-op when a job for this episode
// is already queued or running, or when media is already downloaded.
func (c *Coordinator) Request(ctx context.Context, episodeid int64) error {
	logger := zerolog.Ctx(ctx)

	episode, err := db.InConnectionR(ctx, c.db, func(ctx context.Context) (*model.Episode, error) {
		return c.episodesRepo.GetEpisode(ctx, episodeid)
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	if episode.DownloadStatus == model.StatusDownloaded {
		logger.Debug().Int64("episode_id", episodeid).Msg("download request skipped; already downloaded")

		return nil
	}

	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return aerr.New("coordinator is shut down").WithTag(aerr.InternalError)
	}

	if _, ok := c.jobs[episodeid]; ok {
		c.mu.Unlock()
		logger.Debug().Int64("episode_id", episodeid).Msg("download request deduplicated")

		return nil
	}

	jobctx, jobcancel := context.WithCancel(c.baseCtx)
	j := &job{episode: *episode, ctx: jobctx, cancel: jobcancel}
	c.jobs[episodeid] = j
	c.progress[episodeid] = 0
	c.mu.Unlock()

	// persist QUEUED before the job can start; a fast worker's DOWNLOADING
	// write must never be overwritten by the request
	if err := c.setStatus(ctx, episodeid, model.StatusQueued, ""); err != nil {
		jobcancel()
		c.finishJob(episodeid)

		return err
	}

	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		jobcancel()
		c.finishJob(episodeid)

		return aerr.New("coordinator is shut down").WithTag(aerr.InternalError)
	}

	select {
	case c.queue <- j:
	default:
		c.mu.Unlock()
		jobcancel()
		c.finishJob(episodeid)

		if serr := c.setStatus(ctx, episodeid, episode.DownloadStatus, episode.LocalFilePath); serr != nil {
			logger.Error().Err(serr).Int64("episode_id", episodeid).
				Msg("restore episode status failed")
		}

		return ErrQueueFull
	}

	c.mu.Unlock()

	c.metrics.queued.Inc()
	logger.Info().Int64("episode_id", episodeid).Msg("download queued")

	return nil
}

// Cancel stop in-flight job for episode; partial file is removed and status
// goes back to not downloaded.
func (c *Coordinator) Cancel(ctx context.Context, episodeid int64) error {
	c.mu.Lock()
	j, ok := c.jobs[episodeid]
	c.mu.Unlock()

	if ok {
		// worker observes cancellation and cleans up
		j.cancel()

		return nil
	}

	return c.Delete(ctx, episodeid)
}

// Delete remove downloaded media of episode and reset its download state.
// In-flight job is cancelled too.
func (c *Coordinator) Delete(ctx context.Context, episodeid int64) error {
	c.mu.Lock()
	j, ok := c.jobs[episodeid]
	c.mu.Unlock()

	if ok {
		j.cancel()

		return nil
	}

	episode, err := db.InConnectionR(ctx, c.db, func(ctx context.Context) (*model.Episode, error) {
		return c.episodesRepo.GetEpisode(ctx, episodeid)
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	removeFile(ctx, episode.LocalFilePath)
	removeFile(ctx, c.targetPath(episode))

	if episode.DownloadStatus == model.StatusNotDownloaded && episode.LocalFilePath == "" {
		return nil
	}

	return c.setStatus(ctx, episodeid, model.StatusNotDownloaded, "")
}

// ActiveProgress return snapshot of progress percentage for queued and
// running jobs.
func (c *Coordinator) ActiveProgress() map[int64]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := make(map[int64]int, len(c.progress))
	for id, pct := range c.progress {
		res[id] = pct
	}

	return res
}

// ObserveCompletion return channel that deliver local file path once download
// of episode finish, and function that give up the subscription. When media is
// already downloaded, path is delivered immediately.
func (c *Coordinator) ObserveCompletion(ctx context.Context, episodeid int64) (<-chan string, func()) {
	ch := make(chan string, 1)

	// register before the status read; a download finishing in between is
	// then delivered through the watcher, never lost
	c.mu.Lock()
	c.watchers[episodeid] = append(c.watchers[episodeid], ch)
	c.mu.Unlock()

	unsubscribe := func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.removeWatcherLocked(episodeid, ch)
	}

	episode, err := db.InConnectionR(ctx, c.db, func(ctx context.Context) (*model.Episode, error) {
		return c.episodesRepo.GetEpisode(ctx, episodeid)
	})
	if err == nil && episode.DownloadStatus == model.StatusDownloaded && episode.LocalFilePath != "" {
		c.mu.Lock()
		owned := c.removeWatcherLocked(episodeid, ch)
		c.mu.Unlock()

		// deliver only when notifyCompletion did not get there first
		if owned {
			ch <- episode.LocalFilePath
			close(ch)
		}

		return ch, func() {}
	}

	return ch, unsubscribe
}

// removeWatcherLocked drop watcher channel of episode; report whether it was
// still registered. Requires c.mu held.
func (c *Coordinator) removeWatcherLocked(episodeid int64, ch chan string) bool {
	watchers := c.watchers[episodeid]
	for idx, w := range watchers {
		if w == ch {
			c.watchers[episodeid] = append(watchers[:idx], watchers[idx+1:]...)

			return true
		}
	}

	return false
}

//------------------------------------------------------------------------------

func (c *Coordinator) worker() {
	for j := range c.queue {
		if c.baseCtx.Err() != nil {
			c.finishJob(j.episode.ID)

			continue
		}

		c.run(j)
	}
}

func (c *Coordinator) run(j *job) {
	episodeid := j.episode.ID
	logger := log.Logger.With().Int64("episode_id", episodeid).Logger()
	ctx := logger.WithContext(j.ctx)
	// status writes must land also when the job context is already cancelled
	cleanctx := logger.WithContext(context.WithoutCancel(j.ctx))

	defer c.finishJob(episodeid)

	if j.ctx.Err() != nil {
		// cancelled while still queued
		logger.Info().Msg("download cancelled before start")
		c.metrics.cancelled.Inc()

		if serr := c.setStatus(cleanctx, episodeid, model.StatusNotDownloaded, ""); serr != nil {
			logger.Error().Err(serr).Msg("reset episode status failed")
		}

		return
	}

	if err := c.setStatus(cleanctx, episodeid, model.StatusDownloading, ""); err != nil {
		logger.Error().Err(err).Msg("mark episode downloading failed")

		return
	}

	localpath, err := c.fetch(ctx, j)

	switch {
	case errors.Is(err, context.Canceled):
		logger.Info().Msg("download cancelled")
		c.metrics.cancelled.Inc()

		if serr := c.setStatus(cleanctx, episodeid, model.StatusNotDownloaded, ""); serr != nil {
			logger.Error().Err(serr).Msg("reset episode status failed")
		}
	case err != nil:
		logger.Warn().Err(err).Msg("download failed")
		c.metrics.failed.Inc()

		if serr := c.setStatus(cleanctx, episodeid, model.StatusFailed, ""); serr != nil {
			logger.Error().Err(serr).Msg("mark episode failed failed")
		}
	default:
		logger.Info().Str("path", localpath).Msg("download finished")
		c.metrics.completed.Inc()

		if serr := c.setStatus(cleanctx, episodeid, model.StatusDownloaded, localpath); serr != nil {
			logger.Error().Err(serr).Msg("mark episode downloaded failed")

			return
		}

		c.notifyCompletion(episodeid, localpath)
	}
}

// fetch stream media into temporary file and rename it into place on success.
// Partial file is always removed on error or cancellation.
func (c *Coordinator) fetch(ctx context.Context, j *job) (string, error) {
	target := c.targetPath(&j.episode)
	tmppath := target + partSuffix

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.episode.MediaURL, nil)
	if err != nil {
		return "", aerr.Wrapf(err, "prepare media request failed").WithTag(aerr.ValidationError)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", context.Canceled
		}

		return "", aerr.Wrapf(err, "media request failed").WithTag(aerr.NetworkError)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", aerr.New("media request rejected").WithTag(aerr.NetworkError).
			WithMeta("status", resp.StatusCode)
	}

	out, err := os.Create(tmppath)
	if err != nil {
		return "", aerr.Wrapf(err, "create media file failed").WithTag(aerr.InternalError).
			WithMeta("path", tmppath)
	}

	err = c.copyChunks(ctx, j.episode.ID, out, resp.Body, resp.ContentLength)

	cerr := out.Close()

	if err != nil || cerr != nil {
		removeFile(ctx, tmppath)

		if err == nil {
			err = aerr.Wrapf(cerr, "close media file failed").WithTag(aerr.InternalError)
		}

		return "", err
	}

	if err := os.Rename(tmppath, target); err != nil {
		removeFile(ctx, tmppath)

		return "", aerr.Wrapf(err, "rename media file failed").WithTag(aerr.InternalError).
			WithMeta("path", target)
	}

	return target, nil
}

// copyChunks copy body into out, checking cancellation and publishing progress
// between chunks.
func (c *Coordinator) copyChunks(ctx context.Context, episodeid int64,
	out io.Writer, body io.Reader, contentlength int64,
) error {
	buf := make([]byte, chunkSize)

	var written int64

	for {
		if ctx.Err() != nil {
			return context.Canceled
		}

		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return aerr.Wrapf(werr, "write media file failed").WithTag(aerr.InternalError)
			}

			written += int64(n)
			c.metrics.bytesTotal.Add(float64(n))
			c.publishProgress(episodeid, written, contentlength)
		}

		if errors.Is(rerr, io.EOF) {
			return nil
		}

		if rerr != nil {
			if ctx.Err() != nil {
				return context.Canceled
			}

			return aerr.Wrapf(rerr, "read media failed").WithTag(aerr.NetworkError)
		}
	}
}

func (c *Coordinator) publishProgress(episodeid, written, contentlength int64) {
	pct := 0
	if contentlength > 0 {
		pct = min(int(written*fullPercent/contentlength), fullPercent)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// job may be gone already when cancelled
	if _, ok := c.progress[episodeid]; ok {
		c.progress[episodeid] = pct
	}
}

func (c *Coordinator) notifyCompletion(episodeid int64, localpath string) {
	c.mu.Lock()
	watchers := c.watchers[episodeid]
	delete(c.watchers, episodeid)
	c.mu.Unlock()

	for _, ch := range watchers {
		select {
		case ch <- localpath:
		default:
		}

		close(ch)
	}
}

func (c *Coordinator) finishJob(episodeid int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.jobs, episodeid)
	delete(c.progress, episodeid)
}

func (c *Coordinator) setStatus(ctx context.Context, episodeid int64,
	status model.DownloadStatus, localpath string,
) error {
	//nolint:wrapcheck
	return db.InTransaction(ctx, c.db, func(ctx context.Context) error {
		return c.episodesRepo.UpdateDownloadStatus(ctx, episodeid, status, localpath)
	})
}

// targetPath build stable on-disk location for episode media, named by
// episode id with extension taken from media url.
func (c *Coordinator) targetPath(episode *model.Episode) string {
	ext := strings.ToLower(path.Ext(episode.MediaURL))
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, "?&=") {
		ext = defaultExt
	}

	return filepath.Join(c.conf.Dir, fmt.Sprintf("%d%s", episode.ID, ext))
}

func removeFile(ctx context.Context, path string) {
	if path == "" {
		return
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("remove file failed")
	}
}
