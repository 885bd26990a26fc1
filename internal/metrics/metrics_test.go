package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrjoshuak/go-j2kfetch/asset"
	"github.com/mrjoshuak/go-j2kfetch/fetch"
)

// counterValue sums the counter or histogram sample count of the named
// family, restricted to metrics carrying label=value when label is set.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			if label != "" {
				matched := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == label && lp.GetValue() == value {
						matched = true
					}
				}
				if !matched {
					continue
				}
			}
			if c := m.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if h := m.GetHistogram(); h != nil {
				total += float64(h.GetSampleCount())
			}
		}
		return total
	}
	return 0
}

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	o.ObserveFetch(20*time.Millisecond, 14745, nil)
	o.ObserveFetch(5*time.Millisecond, 0, &fetch.TransportError{Kind: fetch.KindStatus, StatusCode: 503})
	o.ObserveFetch(time.Millisecond, 0, context.DeadlineExceeded)
	o.ObserveDecode(time.Millisecond, nil)
	o.ObserveDecode(time.Millisecond, errors.New("truncated codestream"))
	o.ObserveRefinement()
	o.ObserveResult(nil)
	o.ObserveResult(&asset.Error{Kind: asset.KindContent})
	o.ObserveResult(errors.New("other"))

	assert.Equal(t, 3.0, counterValue(t, reg, "test_fetch_duration_seconds", "", ""))
	assert.Equal(t, 2.0, counterValue(t, reg, "test_decode_duration_seconds", "", ""))
	assert.Equal(t, 1.0, counterValue(t, reg, "test_decode_errors_total", "", ""))
	assert.Equal(t, 14745.0, counterValue(t, reg, "test_received_bytes_total", "", ""))
	assert.Equal(t, 1.0, counterValue(t, reg, "test_fetch_errors_total", "kind", "status"))
	assert.Equal(t, 1.0, counterValue(t, reg, "test_fetch_errors_total", "kind", "timeout"))
	assert.Equal(t, 1.0, counterValue(t, reg, "test_refinements_total", "", ""))
	assert.Equal(t, 1.0, counterValue(t, reg, "test_results_total", "outcome", "ok"))
	assert.Equal(t, 1.0, counterValue(t, reg, "test_results_total", "outcome", "content"))
	assert.Equal(t, 1.0, counterValue(t, reg, "test_results_total", "outcome", "other"))
}

func TestPrometheusObserverSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusObserver("", reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver("", reg)
	require.NoError(t, err)

	first.ObserveRefinement()
	second.ObserveRefinement()
	assert.Equal(t, 2.0, counterValue(t, reg, DefaultNamespace+"_refinements_total", "", ""))
}

func TestNilObserverIsSafe(t *testing.T) {
	var o *PrometheusObserver
	assert.NotPanics(t, func() {
		o.ObserveFetch(time.Second, 1, nil)
		o.ObserveDecode(time.Second, nil)
		o.ObserveRefinement()
		o.ObserveResult(nil)
	})
}

func TestServerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheusObserver("served", reg)
	require.NoError(t, err)
	o.ObserveRefinement()

	s, err := Listen("127.0.0.1:0", reg)
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "served_refinements_total 1")
}
