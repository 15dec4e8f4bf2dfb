package download

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

type metrics struct {
	queued     prometheus.Counter
	completed  prometheus.Counter
	failed     prometheus.Counter
	cancelled  prometheus.Counter
	bytesTotal prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		queued: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "podcatcher_downloads_queued_total",
			Help: "Tracks the number of queued episode downloads.",
		}),
		completed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "podcatcher_downloads_completed_total",
			Help: "Tracks the number of finished episode downloads.",
		}),
		failed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "podcatcher_downloads_failed_total",
			Help: "Tracks the number of failed episode downloads.",
		}),
		cancelled: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "podcatcher_downloads_cancelled_total",
			Help: "Tracks the number of cancelled episode downloads.",
		}),
		bytesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "podcatcher_downloads_bytes_total",
			Help: "Tracks downloaded media bytes.",
		}),
	}
}
