package notifier

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the collectors updated by Send.
type metrics struct {
	sent     prometheus.Counter
	failed   *prometheus.CounterVec
	duration prometheus.Histogram
}

func newMetrics(namespace string) *metrics {
	return &metrics{
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of messages accepted by the relay",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_failed_total",
			Help:      "Total number of messages that could not be delivered",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_duration_seconds",
			Help:      "Time spent composing and delivering one message",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// register adds the collectors to reg. Collectors that are already
// registered under the same descriptor are reused.
func (m *metrics) register(reg prometheus.Registerer) error {
	var err error
	if m.sent, err = registerOrReuse(reg, m.sent); err != nil {
		return err
	}
	if m.failed, err = registerOrReuse(reg, m.failed); err != nil {
		return err
	}
	if m.duration, err = registerOrReuse(reg, m.duration); err != nil {
		return err
	}
	return nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) observe(reason Reason, elapsed time.Duration) {
	m.duration.Observe(elapsed.Seconds())
	if reason == "" {
		m.sent.Inc()
		return
	}
	m.failed.WithLabelValues(string(reason)).Inc()
}
