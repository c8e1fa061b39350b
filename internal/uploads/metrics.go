package uploads

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	trackedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "colourstream_uploads_tracked_total",
		Help: "Number of upload progress events recorded",
	})
	completedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "colourstream_uploads_completed_total",
		Help: "Number of uploads marked complete",
	})
	notifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "colourstream_upload_notify_failures_total",
		Help: "Number of failed notification deliveries",
	})
	notifyDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "colourstream_upload_notify_dropped_total",
		Help: "Number of notifications dropped due to a full queue",
	})
)
