package gateway

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const callsMetric = "directory_gateway_calls_total"

// Metrics counts gateway calls per operation and outcome. A nil *Metrics records nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the gateway collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: callsMetric,
				Help: "Total number of backend calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "directory_gateway_call_duration_seconds",
				Help:    "Duration of backend calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) observe(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(op, outcome(err)).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	var gerr *GatewayError
	switch {
	case err == nil:
		return "success"
	case isCanceled(err):
		return "canceled"
	case errors.As(err, &gerr):
		return "rejected"
	default:
		return "network_error"
	}
}

// CallCount is the number of calls of one operation that ended with one outcome.
type CallCount struct {
	Operation string
	Outcome   string
	Count     float64
}

// Summarize reads the call counter from g, ordered by operation and outcome.
func Summarize(g prometheus.Gatherer) ([]CallCount, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("could not gather metrics: %w", err)
	}
	var counts []CallCount
	for _, family := range families {
		if family.GetName() != callsMetric {
			continue
		}
		for _, m := range family.GetMetric() {
			c := CallCount{Count: m.GetCounter().GetValue()}
			for _, label := range m.GetLabel() {
				switch label.GetName() {
				case "operation":
					c.Operation = label.GetValue()
				case "outcome":
					c.Outcome = label.GetValue()
				}
			}
			counts = append(counts, c)
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Operation != counts[j].Operation {
			return counts[i].Operation < counts[j].Operation
		}
		return counts[i].Outcome < counts[j].Outcome
	})
	return counts, nil
}
