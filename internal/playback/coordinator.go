package playback

//
// coordinator.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-podcatcher/internal/db"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/repository"
	"gitlab.com/kabes/go-podcatcher/internal/service"
)

const (
	skipBackwardMs = 10_000
	skipForwardMs  = 30_000

	positionPollInterval = 500 * time.Millisecond
	// persist position roughly every 10s of playing time
	persistEveryPolls = 20
)

// Coordinator own the active playback state. All mutation goes through its
// methods or engine callbacks; readers get snapshots via State. Position and
// speed persistence is fire-and-forget, never blocking the caller.
type Coordinator struct {
	db           *db.Database
	episodesRepo repository.Episodes
	settings     *service.SettingsSrv
	downloads    DownloadManager
	engine       Engine

	baseCtx context.Context
	cancel  context.CancelFunc

	mu              sync.Mutex
	state           model.PlaybackState
	completionUnsub func()
	playingPolls    int

	// tracks fire-and-forget persistence for deterministic shutdown
	persistWG sync.WaitGroup
	pollWG    sync.WaitGroup
}

// NewCoordinator build coordinator, restore persisted playback speed and
// attach to the engine.
func NewCoordinator(ctx context.Context, database *db.Database,
	episodesRepo repository.Episodes, settings *service.SettingsSrv,
	downloads DownloadManager, engine Engine,
) *Coordinator {
	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c := &Coordinator{ //nolint:exhaustruct
		db:           database,
		episodesRepo: episodesRepo,
		settings:     settings,
		downloads:    downloads,
		engine:       engine,
		baseCtx:      baseCtx,
		cancel:       cancel,
		state:        model.NewPlaybackState(),
	}

	if speed, err := settings.PlaybackSpeed(ctx); err == nil {
		c.state.PlaybackSpeed = speed
	} else {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("restore playback speed failed")
	}

	engine.SetListener(c)

	c.pollWG.Go(c.pollLoop)

	return c
}

// Close detach from engine, save the resume position of the active item and
// wait for pending persistence.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.unsubscribeCompletionLocked()

	if c.state.CurrentEpisode != nil && c.state.CurrentPositionMs > 0 {
		c.persistPositionAsync(c.state.CurrentEpisode.ID, c.state.CurrentPositionMs)
	}
	c.mu.Unlock()

	c.persistWG.Wait()

	c.cancel()
	c.pollWG.Wait()
}

// State return copy of current playback state.
func (c *Coordinator) State() model.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state
	if c.state.CurrentEpisode != nil {
		episode := *c.state.CurrentEpisode
		state.CurrentEpisode = &episode
	}

	return state
}

//------------------------------------------------------------------------------

// Play make episode the active item and start playback from its last
// position. Media source is the local file when downloaded, the stream
// otherwise; a missing download is requested in the background.
func (c *Coordinator) Play(ctx context.Context, episode *model.Episode) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Object("episode", episode).Msg("play episode")

	c.mu.Lock()

	current := c.state.CurrentEpisode
	if current != nil && current.ID != episode.ID && c.state.CurrentPositionMs > 0 {
		c.persistPositionAsync(current.ID, c.state.CurrentPositionMs)
	}

	c.unsubscribeCompletionLocked()

	active := *episode
	c.state.CurrentEpisode = &active
	c.state.IsBuffering = true
	c.state.CurrentPositionMs = max(episode.LastPlayedPositionMs, 0)
	c.state.DurationMs = 0
	c.playingPolls = 0
	speed := c.state.PlaybackSpeed

	switch episode.DownloadStatus {
	case model.StatusNotDownloaded, model.StatusFailed:
		c.subscribeCompletionLocked(episode.ID)

		if err := c.downloads.Request(c.baseCtx, episode.ID); err != nil {
			logger.Warn().Err(err).Msg("request download failed")
		}
	case model.StatusQueued, model.StatusDownloading:
		// job already keyed; just wait for its result
		c.subscribeCompletionLocked(episode.ID)
	case model.StatusDownloaded:
	}

	c.mu.Unlock()

	c.engine.LoadMedia(episode.PlaybackURI(), max(episode.LastPlayedPositionMs, 0))
	c.engine.SetSpeed(speed)
	c.engine.Play()
}

// TogglePlayPause flip between playing and paused.
func (c *Coordinator) TogglePlayPause() {
	if c.engine.IsPlaying() {
		c.engine.Pause()
	} else {
		c.engine.Play()
	}
}

// SeekTo move playback position, clamped to [0, duration].
func (c *Coordinator) SeekTo(positionms int64) {
	position := c.clampPosition(positionms)

	c.engine.SeekTo(position)

	c.mu.Lock()
	c.state.CurrentPositionMs = position
	c.mu.Unlock()
}

func (c *Coordinator) SkipBackward() {
	c.mu.Lock()
	position := c.state.CurrentPositionMs
	c.mu.Unlock()

	c.SeekTo(position - skipBackwardMs)
}

func (c *Coordinator) SkipForward() {
	c.mu.Lock()
	position := c.state.CurrentPositionMs
	c.mu.Unlock()

	c.SeekTo(position + skipForwardMs)
}

// SetSpeed apply playback speed immediately and persist the preference in the
// background.
func (c *Coordinator) SetSpeed(ctx context.Context, speed float64) {
	if speed <= 0 {
		return
	}

	c.mu.Lock()
	c.state.PlaybackSpeed = speed
	c.mu.Unlock()

	c.engine.SetSpeed(speed)

	c.persistWG.Go(func() {
		if err := c.settings.SetPlaybackSpeed(c.baseCtx, speed); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("persist playback speed failed")
		}
	})
}

//------------------------------------------------------------------------------
// Engine callbacks.

func (c *Coordinator) PlayingChanged(playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.IsPlaying = playing
	if playing {
		c.state.IsBuffering = false

		return
	}

	c.playingPolls = 0

	// pause saves position immediately
	if c.state.CurrentEpisode != nil && c.state.CurrentPositionMs > 0 {
		c.persistPositionAsync(c.state.CurrentEpisode.ID, c.state.CurrentPositionMs)
	}
}

func (c *Coordinator) BufferingChanged(buffering bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.IsBuffering = buffering
}

// MediaEnded finish lifecycle of played-out episode: drop its download, clear
// resume position, archive it and reset state keeping only speed.
func (c *Coordinator) MediaEnded() {
	c.mu.Lock()

	episode := c.state.CurrentEpisode
	if episode == nil {
		c.mu.Unlock()

		return
	}

	c.unsubscribeCompletionLocked()

	episodeid := episode.ID
	dropDownload := episode.DownloadStatus.InFlight() ||
		episode.DownloadStatus == model.StatusDownloaded

	c.resetStateLocked()
	c.mu.Unlock()

	c.engine.Stop()
	c.engine.ClearMedia()

	c.persistWG.Go(func() {
		logger := log.Logger.With().Int64("episode_id", episodeid).Logger()
		ctx := logger.WithContext(c.baseCtx)

		if dropDownload {
			if err := c.downloads.Delete(ctx, episodeid); err != nil {
				logger.Warn().Err(err).Msg("drop download of finished episode failed")
			}
		}

		err := db.InTransaction(ctx, c.db, func(ctx context.Context) error {
			if err := c.episodesRepo.UpdatePlaybackPosition(ctx, episodeid, 0, 0); err != nil {
				return err
			}

			return c.episodesRepo.UpdateArchived(ctx, episodeid, true)
		})
		if err != nil {
			logger.Warn().Err(err).Msg("finish episode failed")
		}
	})
}

func (c *Coordinator) MediaCleared() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CurrentEpisode != nil {
		c.resetStateLocked()
	}
}

//------------------------------------------------------------------------------

// subscribeCompletionLocked watch download completion of episode. Requires
// c.mu held.
func (c *Coordinator) subscribeCompletionLocked(episodeid int64) {
	done, unsub := c.downloads.ObserveCompletion(c.baseCtx, episodeid)
	c.completionUnsub = unsub

	go func() {
		select {
		case localpath, ok := <-done:
			if ok {
				c.onDownloadCompleted(episodeid, localpath)
			}
		case <-c.baseCtx.Done():
		}
	}()
}

func (c *Coordinator) unsubscribeCompletionLocked() {
	if c.completionUnsub != nil {
		c.completionUnsub()
		c.completionUnsub = nil
	}
}

// onDownloadCompleted reconcile finished download with the active item. The
// event carries episode id; it counts only when that episode is still active.
// Even then the engine keeps playing the stream: streamed and downloaded bytes
// may diverge (ad insertion), so the local copy is used on the next Play.
func (c *Coordinator) onDownloadCompleted(episodeid int64, localpath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.state.CurrentEpisode
	if current == nil || current.ID != episodeid {
		return
	}

	current.DownloadStatus = model.StatusDownloaded
	current.LocalFilePath = localpath
	c.completionUnsub = nil
}

// resetStateLocked reset playback state to defaults keeping speed. Requires
// c.mu held.
func (c *Coordinator) resetStateLocked() {
	speed := c.state.PlaybackSpeed
	c.state = model.NewPlaybackState()
	c.state.PlaybackSpeed = speed
	c.playingPolls = 0
}

func (c *Coordinator) clampPosition(positionms int64) int64 {
	c.mu.Lock()
	duration := c.state.DurationMs
	c.mu.Unlock()

	positionms = max(positionms, 0)
	if duration > 0 {
		positionms = min(positionms, duration)
	}

	return positionms
}

//------------------------------------------------------------------------------

func (c *Coordinator) pollLoop() {
	ticker := time.NewTicker(positionPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.baseCtx.Done():
			return
		case <-ticker.C:
			c.pollPosition()
		}
	}
}

// pollPosition refresh position and duration from the engine; every
// persistEveryPolls playing ticks the position is persisted.
func (c *Coordinator) pollPosition() {
	if !c.engine.IsPlaying() {
		return
	}

	position := c.engine.Position()
	duration := c.engine.Duration()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CurrentEpisode == nil {
		return
	}

	c.state.CurrentPositionMs = position
	c.state.DurationMs = duration

	c.playingPolls++
	if c.playingPolls >= persistEveryPolls {
		c.playingPolls = 0

		if position > 0 {
			c.persistPositionAsync(c.state.CurrentEpisode.ID, position)
		}
	}
}

// persistPositionAsync save resume position without blocking the caller.
// Failures are logged only; worst case is a slightly stale resume point.
func (c *Coordinator) persistPositionAsync(episodeid, positionms int64) {
	c.persistWG.Go(func() {
		err := db.InTransaction(c.baseCtx, c.db, func(ctx context.Context) error {
			return c.episodesRepo.UpdatePlaybackPosition(ctx, episodeid, positionms,
				time.Now().Unix())
		})
		if err != nil {
			log.Logger.Warn().Err(err).Int64("episode_id", episodeid).
				Msg("persist playback position failed")
		}
	})
}
