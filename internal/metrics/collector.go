package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector bundles the swarmchat prometheus metrics. A nil *Collector is
// valid and records nothing, so components can be wired without metrics.
type Collector struct {
	messagesAppended    *prometheus.CounterVec
	turnsDropped        *prometheus.CounterVec
	cyclesTotal         prometheus.Counter
	generationDuration  prometheus.Histogram
	pollsResolved       *prometheus.CounterVec
	activeConversations prometheus.Gauge
}

// NewCollector registers the swarmchat metrics with reg. Pass
// prometheus.DefaultRegisterer outside of tests.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		messagesAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_appended_total",
				Help:      "Total messages appended to transcripts",
			},
			[]string{"kind"},
		),
		turnsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_dropped_total",
				Help:      "Generated turns dropped before playback",
			},
			[]string{"reason"},
		),
		cyclesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "discussion_cycles_total",
				Help:      "Generation cycles executed",
			},
		),
		generationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Generation service round-trip duration",
				Buckets:   prometheus.DefBuckets,
			},
		),
		pollsResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polls_resolved_total",
				Help:      "Poll resolutions by outcome",
			},
			[]string{"outcome"},
		),
		activeConversations: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_conversations",
				Help:      "Conversations currently open in the workspace",
			},
		),
	}
}

// MessageAppended counts a committed message by kind.
func (c *Collector) MessageAppended(kind string) {
	if c == nil {
		return
	}
	c.messagesAppended.WithLabelValues(kind).Inc()
}

// TurnDropped counts a dropped turn by reason ("invalid", "roster",
// "conflict").
func (c *Collector) TurnDropped(reason string) {
	if c == nil {
		return
	}
	c.turnsDropped.WithLabelValues(reason).Inc()
}

// CycleRun counts one generation cycle.
func (c *Collector) CycleRun() {
	if c == nil {
		return
	}
	c.cyclesTotal.Inc()
}

// GenerationObserved records a generation round-trip duration.
func (c *Collector) GenerationObserved(d time.Duration) {
	if c == nil {
		return
	}
	c.generationDuration.Observe(d.Seconds())
}

// PollResolved counts a poll resolution by outcome ("end", "continue",
// "tally").
func (c *Collector) PollResolved(outcome string) {
	if c == nil {
		return
	}
	c.pollsResolved.WithLabelValues(outcome).Inc()
}

// ConversationOpened bumps the active conversation gauge.
func (c *Collector) ConversationOpened() {
	if c == nil {
		return
	}
	c.activeConversations.Inc()
}

// ConversationClosed decrements the active conversation gauge.
func (c *Collector) ConversationClosed() {
	if c == nil {
		return
	}
	c.activeConversations.Dec()
}
