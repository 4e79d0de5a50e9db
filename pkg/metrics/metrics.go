// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolutions counts gatekeeper decisions by outcome.
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_resolutions_total",
		Help: "Link resolutions by outcome",
	}, []string{"outcome"})

	// ClicksRecorded counts click writes by result (ok, error).
	ClicksRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_clicks_recorded_total",
		Help: "Click event writes by result",
	}, []string{"result"})

	// GeoLookups counts geolocation lookups by result (local, ok, error).
	GeoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_geo_lookups_total",
		Help: "Geolocation lookups by result",
	}, []string{"result"})

	ClickQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_click_queue_dropped_total",
		Help: "Click events dropped because the capture queue was full",
	})
)
