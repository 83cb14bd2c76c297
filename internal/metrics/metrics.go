// Package metrics instruments catalog loading with Prometheus collectors
// registered on a private registry.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// Degradation kinds reported through Degraded.
const (
	DegradedPalette = "palette"
	DegradedProfile = "profile"
)

// Recorder receives load lifecycle events from the catalog controller.
type Recorder interface {
	LoadIssued(purpose model.LoadPurpose)
	LoadApplied(purpose model.LoadPurpose, d time.Duration)
	LoadSuperseded(purpose model.LoadPurpose)
	LoadFailed(purpose model.LoadPurpose)
	Degraded(kind string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) LoadIssued(model.LoadPurpose)                 {}
func (Nop) LoadApplied(model.LoadPurpose, time.Duration) {}
func (Nop) LoadSuperseded(model.LoadPurpose)             {}
func (Nop) LoadFailed(model.LoadPurpose)                 {}
func (Nop) Degraded(string)                              {}

// Catalog is the Prometheus-backed Recorder.
type Catalog struct {
	registry     *prometheus.Registry
	issued       *prometheus.CounterVec
	applied      *prometheus.CounterVec
	superseded   *prometheus.CounterVec
	failed       *prometheus.CounterVec
	degraded     *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
}

// New registers the catalog collectors on a fresh registry.
func New() *Catalog {
	registry := prometheus.NewRegistry()

	issued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loads_issued_total",
		Help: "Course loads issued, by purpose",
	}, []string{"purpose"})

	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loads_applied_total",
		Help: "Course loads whose result reached the visible state",
	}, []string{"purpose"})

	superseded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loads_superseded_total",
		Help: "Course loads dropped because a newer load was issued",
	}, []string{"purpose"})

	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loads_failed_total",
		Help: "Current course loads that failed",
	}, []string{"purpose"})

	degraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_enrichment_degraded_total",
		Help: "Enrichment lookups that fell back to defaults",
	}, []string{"kind"})

	loadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_load_duration_seconds",
		Help:    "Duration of applied course loads in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"purpose"})

	registry.MustRegister(issued, applied, superseded, failed, degraded, loadDuration)

	return &Catalog{
		registry:     registry,
		issued:       issued,
		applied:      applied,
		superseded:   superseded,
		failed:       failed,
		degraded:     degraded,
		loadDuration: loadDuration,
	}
}

// Registry exposes the private registry, e.g. for a promhttp handler.
func (m *Catalog) Registry() *prometheus.Registry { return m.registry }

func (m *Catalog) LoadIssued(p model.LoadPurpose) {
	m.issued.WithLabelValues(string(p)).Inc()
}

func (m *Catalog) LoadApplied(p model.LoadPurpose, d time.Duration) {
	m.applied.WithLabelValues(string(p)).Inc()
	m.loadDuration.WithLabelValues(string(p)).Observe(d.Seconds())
}

func (m *Catalog) LoadSuperseded(p model.LoadPurpose) {
	m.superseded.WithLabelValues(string(p)).Inc()
}

func (m *Catalog) LoadFailed(p model.LoadPurpose) {
	m.failed.WithLabelValues(string(p)).Inc()
}

func (m *Catalog) Degraded(kind string) {
	m.degraded.WithLabelValues(kind).Inc()
}

// WriteText writes every gathered metric family in the Prometheus text format.
func (m *Catalog) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
