package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visionsense_extractions_total",
		Help: "Total number of extraction runs, by outcome",
	}, []string{"outcome"})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "visionsense_extraction_duration_seconds",
		Help:    "Duration of the extraction pipeline stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visionsense_frames_sampled_total",
		Help: "Total number of frames sampled across all extractions",
	})

	ActiveExtractions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "visionsense_active_extractions",
		Help: "Number of extraction pipelines currently running",
	})

	UploadRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visionsense_upload_rejected_total",
		Help: "Total number of rejected uploads, by reason",
	}, []string{"reason"})

	TempVolumeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "visionsense_temp_volume_bytes",
		Help: "Bytes of admitted uploads currently held on the temp volume",
	})
)
