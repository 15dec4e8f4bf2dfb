package model

//
// playback.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

// PlaybackState is snapshot of active playback. Single writer (the playback
// coordinator); readers always get copies.
type PlaybackState struct {
	CurrentEpisode    *Episode
	IsPlaying         bool
	IsBuffering       bool
	CurrentPositionMs int64
	DurationMs        int64
	PlaybackSpeed     float64
}

// DefaultPlaybackSpeed used when no preference is persisted yet.
const DefaultPlaybackSpeed = 1.0

func NewPlaybackState() PlaybackState {
	return PlaybackState{PlaybackSpeed: DefaultPlaybackSpeed} //nolint:exhaustruct
}
