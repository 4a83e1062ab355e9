// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	ingestFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelvault_ingest_files_total",
		Help: "Ingested files by outcome",
	}, []string{"outcome"}) // outcome=success|validation_failed|store_failed

	ingestBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelvault_ingest_batches_total",
		Help: "Total number of ingest batches processed",
	})

	ingestDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reelvault_ingest_batch_duration_seconds",
		Help:    "Wall-clock time per ingest batch",
		Buckets: prometheus.DefBuckets,
	})

	// Extraction metrics
	probeDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelvault_probe_degraded_total",
		Help: "Extractions that produced no duration and no thumbnail",
	})

	probeCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelvault_probe_cache_total",
		Help: "Probe cache lookups by result",
	}, []string{"result"}) // result=hit|miss

	// Store metrics
	recordsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelvault_records",
		Help: "Records currently in the media store",
	})

	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelvault_deletes_total",
		Help: "Delete operations by outcome",
	}, []string{"outcome"}) // outcome=success|not_found|error

	// Handle metrics
	handlesOutstanding = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelvault_handles_outstanding",
		Help: "Playback handles currently outstanding",
	})
)

func IncIngestFile(outcome string) { ingestFilesTotal.WithLabelValues(outcome).Inc() }

func IncIngestBatch() { ingestBatchesTotal.Inc() }

func ObserveIngestBatch(seconds float64) {
	ingestDurationSeconds.Observe(seconds)
}

func IncProbeDegraded() { probeDegradedTotal.Inc() }

func IncProbeCache(result string) { probeCacheTotal.WithLabelValues(result).Inc() }

func RecordCount(n int) { recordsTotal.Set(float64(n)) }

func IncDelete(outcome string) { deletesTotal.WithLabelValues(outcome).Inc() }

func RecordHandles(n int) { handlesOutstanding.Set(float64(n)) }
