package service

//
// errors.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
)

var (
	ErrRepositoryError = aerr.New("database error").
				WithTag(aerr.InternalError).
				WithUserMsg("database error")

	ErrUnknownPodcast = aerr.New("unknown podcast").
				WithTag(aerr.DataError).
				WithUserMsg("podcast not found")

	ErrUnknownEpisode = aerr.New("unknown episode").
				WithTag(aerr.DataError).
				WithUserMsg("episode not found")

	ErrAllFeedsFailed = aerr.New("all feeds failed to refresh").
				WithTag(aerr.NetworkError).
				WithUserMsg("refresh failed")
)
