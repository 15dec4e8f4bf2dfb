// Package playback drive the active-playback state machine bridging an audio
// engine and the download subsystem.
package playback

//
// engine.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import "context"

// Engine abstract an audio renderer. Implementations deliver events through
// the registered Listener; callbacks may arrive from any goroutine.
type Engine interface {
	LoadMedia(uri string, startPositionMs int64)
	Play()
	Pause()
	Stop()
	SeekTo(positionMs int64)
	SetSpeed(speed float64)
	ClearMedia()

	Position() int64
	Duration() int64
	IsPlaying() bool

	SetListener(listener Listener)
}

// Listener receive audio engine events.
type Listener interface {
	PlayingChanged(playing bool)
	BufferingChanged(buffering bool)
	MediaEnded()
	MediaCleared()
}

// DownloadManager is the download subsystem surface used by the coordinator.
type DownloadManager interface {
	Request(ctx context.Context, episodeid int64) error
	Delete(ctx context.Context, episodeid int64) error
	ObserveCompletion(ctx context.Context, episodeid int64) (<-chan string, func())
}
