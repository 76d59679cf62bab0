package drive

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "drive_client"

type metrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "attempts_total",
		Help:      "Send attempts by operation and outcome class.",
	}, []string{"operation", "outcome"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "attempt_duration_seconds",
		Help:      "Time to response headers per attempt.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	var err error
	if attempts, err = register(reg, attempts); err != nil {
		return nil, err
	}

	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}

	return &metrics{attempts: attempts, latency: latency}, nil
}

// register adds c to reg, reusing an identical collector that is already
// registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}

		return c, fmt.Errorf("drive: registering metrics: %w", err)
	}

	return c, nil
}

// observe records one attempt. It is a no-op on a nil receiver.
func (m *metrics) observe(operation string, resp *http.Response, err error, d time.Duration) {
	if m == nil {
		return
	}

	m.attempts.WithLabelValues(operation, outcomeClass(resp, err)).Inc()
	m.latency.WithLabelValues(operation).Observe(d.Seconds())
}

func outcomeClass(resp *http.Response, err error) string {
	if err != nil || resp == nil {
		return "error"
	}

	switch {
	case resp.StatusCode >= 500:
		return "5xx"
	case resp.StatusCode >= 400:
		return "4xx"
	case resp.StatusCode >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
