package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/meetingflow/meeting"
)

// =============================================================================
// 📊 会议指标收集器
// =============================================================================

// Collector 指标收集器。实现 meeting.Sink，挂到编排器上即可计数。
type Collector struct {
	// 转录指标
	turnsTotal *prometheus.CounterVec
	turnChars  prometheus.Histogram

	// 控制回路指标
	controlEventsTotal *prometheus.CounterVec
	kpiGauge           *prometheus.GaugeVec

	// 阶段与会议指标
	phaseTransitionsTotal *prometheus.CounterVec
	meetingsTotal         *prometheus.CounterVec
	meetingDuration       prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到默认 registry。
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of meeting turns produced",
		},
		[]string{"degraded"},
	)

	c.turnChars = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_chars",
			Help:      "Utterance length in characters",
			Buckets:   prometheus.ExponentialBuckets(20, 2, 6),
		},
	)

	c.controlEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_events_total",
			Help:      "Total number of KPI feedback interventions",
		},
		[]string{"action"},
	)

	c.kpiGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kpi",
			Help:      "Latest KPI snapshot values",
		},
		[]string{"metric"},
	)

	c.phaseTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Total number of phase status transitions",
		},
		[]string{"kind", "status"},
	)

	c.meetingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_total",
			Help:      "Total number of finished meetings",
		},
		[]string{"state"},
	)

	c.meetingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "meeting_duration_seconds",
			Help:      "Wall clock duration of finished meetings",
			Buckets:   []float64{1, 5, 15, 60, 180, 600, 1800},
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// Emit 实现 meeting.Sink。
func (c *Collector) Emit(e meeting.Event) {
	switch e.Kind {
	case meeting.EventTurn:
		if e.Turn == nil {
			return
		}
		c.turnsTotal.WithLabelValues(boolLabel(e.Turn.Degraded)).Inc()
		if !e.Turn.Degraded {
			c.turnChars.Observe(float64(len([]rune(e.Turn.Text))))
		}
	case meeting.EventControl:
		if e.Control == nil {
			return
		}
		c.controlEventsTotal.WithLabelValues(string(e.Control.Action)).Inc()
	case meeting.EventKPI:
		if e.KPI == nil {
			return
		}
		c.kpiGauge.WithLabelValues("diversity").Set(e.KPI.Diversity)
		c.kpiGauge.WithLabelValues("decision_density").Set(e.KPI.DecisionDensity)
		c.kpiGauge.WithLabelValues("progress").Set(e.KPI.Progress)
		c.kpiGauge.WithLabelValues("spec_coverage").Set(e.KPI.SpecCoverage)
	case meeting.EventPhase:
		if e.Phase == nil {
			return
		}
		c.phaseTransitionsTotal.WithLabelValues(string(e.Phase.Kind), string(e.Phase.Status)).Inc()
	case meeting.EventMeetingFinished:
		if e.Result == nil {
			return
		}
		c.meetingsTotal.WithLabelValues(string(e.Result.State)).Inc()
		c.meetingDuration.Observe(e.Result.FinishedAt.Sub(e.Result.StartedAt).Seconds())
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
