package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ttd2089/resizable-ringbuf/internal/ratelimit"
)

const namespace = "ringlimit"

const (
	OutcomeAllowed   = "allowed"
	OutcomeThrottled = "throttled"
)

// Limiter exports the decisions and window state of a rate limiter as Prometheus metrics.
type Limiter struct {
	messages *prometheus.CounterVec
	limit    *prometheus.GaugeVec
	inFlight *prometheus.GaugeVec
}

func NewLimiter(reg prometheus.Registerer) (*Limiter, error) {
	l := &Limiter{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages seen by the rate limiter, by key and outcome.",
		}, []string{"key", "outcome"}),
		limit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "window",
			Name:      "limit",
			Help:      "Events allowed per period for the key's window.",
		}, []string{"key"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "window",
			Name:      "in_flight",
			Help:      "Events currently counted against the key's window.",
		}, []string{"key"}),
	}

	for _, c := range []prometheus.Collector{l.messages, l.limit, l.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register limiter metrics: %w", err)
		}
	}
	return l, nil
}

// Observe records one rate limiting decision for key and the window state that followed it.
func (l *Limiter) Observe(key string, allowed bool, stats ratelimit.WindowStats) {
	outcome := OutcomeThrottled
	if allowed {
		outcome = OutcomeAllowed
	}
	l.messages.WithLabelValues(key, outcome).Inc()
	l.Sync(key, stats)
}

// Sync sets the window gauges for key without counting a message.
func (l *Limiter) Sync(key string, stats ratelimit.WindowStats) {
	l.limit.WithLabelValues(key).Set(float64(stats.Limit))
	l.inFlight.WithLabelValues(key).Set(float64(stats.InFlight))
}
