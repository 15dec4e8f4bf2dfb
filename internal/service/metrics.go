package service

//
// metrics.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type syncMetrics struct {
	feedsRefreshed  prometheus.Counter
	feedsFailed     prometheus.Counter
	refreshDuration prometheus.Histogram
}

func newSyncMetrics(reg prometheus.Registerer) *syncMetrics {
	return &syncMetrics{
		feedsRefreshed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "podcatcher_feeds_refreshed_total",
			Help: "Tracks the number of successfully refreshed feeds.",
		}),
		feedsFailed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "podcatcher_feeds_failed_total",
			Help: "Tracks the number of failed feed refreshes.",
		}),
		refreshDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "podcatcher_refresh_duration_seconds",
			Help:    "Tracks duration of full feed refresh runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
