// Package metrics exposes Prometheus collectors for the tip pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Tip outcomes tracked by the tips counter.
const (
	OutcomeGenerated       = "generated"
	OutcomeSent            = "sent"
	OutcomeExpired         = "expired"
	OutcomeDeliveryFailed  = "delivery_failed"
	OutcomeDeliveryDropped = "delivery_dropped"
)

// Recorder wraps the pipeline collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	matches       prometheus.Counter
	tips          *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	activeTips    prometheus.Gauge
	rateLimited   prometheus.Counter
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mobatips_scan_cycles_total",
			Help: "Scan cycles by result.",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mobatips_scan_cycle_duration_seconds",
			Help:    "Duration of one scan cycle.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mobatips_matches_scanned_total",
			Help: "Live matches returned by the source.",
		}),
		tips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mobatips_tips_total",
			Help: "Tips by lifecycle outcome.",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mobatips_tip_rejections_total",
			Help: "Validator rejections by reason.",
		}, []string{"reason"}),
		activeTips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mobatips_active_tips",
			Help: "Tips currently held in the active table.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mobatips_rate_limited_cycles_total",
			Help: "Cycles that stopped generating because the tip rate limit was reached.",
		}),
	}
	reg.MustRegister(r.cycles, r.cycleDuration, r.matches, r.tips, r.rejections, r.activeTips, r.rateLimited)
	return r
}

// RecordCycle tracks one scan cycle.
func (r *Recorder) RecordCycle(duration time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.cycles.WithLabelValues(result).Inc()
	r.cycleDuration.Observe(duration.Seconds())
}

func (r *Recorder) AddMatchesScanned(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.matches.Add(float64(n))
}

func (r *Recorder) RecordTip(outcome string) {
	if r == nil {
		return
	}
	r.tips.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordRejection(reason string) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordRateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Inc()
}

func (r *Recorder) SetActiveTips(n int) {
	if r == nil {
		return
	}
	r.activeTips.Set(float64(n))
}
