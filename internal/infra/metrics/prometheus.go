package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automan_archiver_runs_total",
		Help: "Total number of archive runs, by final state",
	}, []string{"state"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "automan_archiver_stage_duration_seconds",
		Help:    "Duration of archive run stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage"})

	FramesExportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automan_archiver_frames_exported_total",
		Help: "Total number of frame annotation files written",
	})

	CandidateFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automan_archiver_candidate_files_total",
		Help: "Candidate frame files fetched, by result",
	}, []string{"result"})

	OverlaysRenderedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automan_archiver_overlays_rendered_total",
		Help: "Total number of annotated overlay images written",
	})

	ExportEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automan_archiver_export_entries_total",
		Help: "Export bucket entries written, by export class",
	}, []string{"class"})

	LocalizationAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "automan_archiver_localization_available",
		Help: "1 when the dataset localization track was loaded for the current run",
	})
)
