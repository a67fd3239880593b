package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "s3freeze"

	metricLabelKind   = "kind"
	metricLabelReason = "reason"
	metricLabelResult = "result"
)

// Export run metrics.  They are registered on the default registry so a
// caller can dump them with prometheus.WriteToTextfile after a run.
var (
	// PagesExportedCounter counts pages written to the output tree
	PagesExportedCounter = newCounter(
		"pages_exported_count",
		"Number of pages rendered and written to the export tree",
	)
	// RoutesSkippedCounter counts exportable routes that could not be rendered
	RoutesSkippedCounter = newCounterVec(
		"routes_skipped_count",
		"Number of exportable routes that failed to render",
		metricLabelReason,
	)
	// AssetsCopiedCounter counts static assets placed in the output tree
	AssetsCopiedCounter = newCounterVec(
		"assets_copied_count",
		"Number of static assets copied, by asset kind",
		metricLabelKind,
	)
	// AssetsQuarantinedCounter counts binaries moved to the quarantine dir
	AssetsQuarantinedCounter = newCounter(
		"assets_quarantined_count",
		"Number of binary assets moved out of the public tree",
	)
	// EncodingConversionsCounter counts text files rewritten as utf-8
	EncodingConversionsCounter = newCounter(
		"encoding_conversions_count",
		"Number of text files converted from the fallback encoding to utf-8",
	)
	// ExportRunsCounter counts finished runs
	ExportRunsCounter = newCounterVec(
		"export_runs_count",
		"Number of export runs, by result",
		metricLabelResult,
	)
	// ExportDuration observes the duration of whole runs
	ExportDuration = newSummaryVec(
		"export_duration_seconds",
		"Duration in seconds of each export run",
		metricLabelResult,
	)
	// PublishedObjectsCounter counts files uploaded to a bucket
	PublishedObjectsCounter = newCounterVec(
		"published_objects_count",
		"Number of exported files uploaded to a bucket, by result",
		metricLabelResult,
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	prometheus.MustRegister(c)
	return c
}

// WriteFile dumps the default registry in the text exposition format.
func WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
