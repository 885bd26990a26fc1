// Package metrics exports asset fetch telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mrjoshuak/go-j2kfetch/asset"
	"github.com/mrjoshuak/go-j2kfetch/fetch"
)

// DefaultNamespace prefixes every metric name when none is configured.
const DefaultNamespace = "j2kfetch"

// PrometheusObserver implements asset.Observer on Prometheus collectors.
type PrometheusObserver struct {
	fetchDuration  prometheus.Histogram
	decodeDuration prometheus.Histogram
	decodeErrors   prometheus.Counter
	receivedBytes  prometheus.Counter
	fetchErrors    *prometheus.CounterVec
	refinements    prometheus.Counter
	results        *prometheus.CounterVec
}

// NewPrometheusObserver registers the fetch metrics on reg, or on the default
// registerer when reg is nil. Collectors already registered under the same
// names are reused, so several observers may share one registry.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{}
	var err error
	if o.fetchDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Latency of asset range requests.",
		Buckets:   prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if o.decodeDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "decode_duration_seconds",
		Help:      "Latency of codec decodes.",
		Buckets:   prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if o.decodeErrors, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decode_errors_total",
		Help:      "Codec decodes that failed.",
	})); err != nil {
		return nil, err
	}
	if o.receivedBytes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "received_bytes_total",
		Help:      "Asset bytes received from the server.",
	})); err != nil {
		return nil, err
	}
	if o.fetchErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_errors_total",
		Help:      "Failed asset requests by transport error kind.",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if o.refinements, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refinements_total",
		Help:      "Re-fetches with a wider byte budget after a truncated decode.",
	})); err != nil {
		return nil, err
	}
	if o.results, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "results_total",
		Help:      "Finished asset loads by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("metrics: register collector: %w", err)
	}
	return c, nil
}

// ObserveFetch records request latency, received bytes and failures.
func (o *PrometheusObserver) ObserveFetch(elapsed time.Duration, received int, err error) {
	if o == nil {
		return
	}
	o.fetchDuration.Observe(elapsed.Seconds())
	o.receivedBytes.Add(float64(received))
	if err != nil {
		o.fetchErrors.WithLabelValues(transportKind(err)).Inc()
	}
}

// ObserveDecode records decode latency and failures.
func (o *PrometheusObserver) ObserveDecode(elapsed time.Duration, err error) {
	if o == nil {
		return
	}
	o.decodeDuration.Observe(elapsed.Seconds())
	if err != nil {
		o.decodeErrors.Inc()
	}
}

// ObserveRefinement counts a re-fetch with a wider byte budget.
func (o *PrometheusObserver) ObserveRefinement() {
	if o == nil {
		return
	}
	o.refinements.Inc()
}

// ObserveResult counts a finished load as "ok" or by its error kind.
func (o *PrometheusObserver) ObserveResult(err error) {
	if o == nil {
		return
	}
	o.results.WithLabelValues(outcome(err)).Inc()
}

func transportKind(err error) string {
	var terr *fetch.TransportError
	if errors.As(err, &terr) {
		return terr.Kind.String()
	}
	return fetch.Classify(err).String()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch k := asset.KindOf(err); k {
	case asset.KindTransport, asset.KindDecode, asset.KindContent:
		return k.String()
	default:
		return "other"
	}
}

var _ asset.Observer = (*PrometheusObserver)(nil)
