// Package testing provides helpers for asserting OpenTelemetry metrics in unit tests
// without an external collector.
//
// Usage:
//
//	mp := NewTestMeterProvider()
//	otel.SetMeterProvider(mp)
//	defer mp.Shutdown(context.Background())
//
//	// exercise instrumented code
//
//	rm := mp.Collect(t)
//	AssertMetricValue(t, rm, "cache.hit", 3)
package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	metricNotFoundErrMsg      = "metric %s not found"
	metricValueMismatchErrMsg = "metric %s value mismatch"
	noDataPointsErrMsg        = "metric %s has no data points"
)

// TestMeterProvider is a MeterProvider backed by a ManualReader.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider whose metrics are collected on demand.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads all metrics recorded so far.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	return Collect(t, tmp.Reader)
}

// Collect reads all metrics from reader, failing the test on error.
func Collect(t *testing.T, reader sdkmetric.Reader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// FindMetric finds a metric by name in any scope. Returns nil if not found.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == metricName {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// AssertMetricExists asserts that a metric with the given name exists.
func AssertMetricExists(t *testing.T, rm metricdata.ResourceMetrics, metricName string) {
	t.Helper()
	require.NotNil(t, FindMetric(rm, metricName), metricNotFoundErrMsg, metricName)
}

// AssertMetricValue asserts the first data point of a metric.
// Sums compare the value and histograms compare the count.
func AssertMetricValue(t *testing.T, rm metricdata.ResourceMetrics, metricName string, expectedValue any) {
	t.Helper()

	m := FindMetric(rm, metricName)
	require.NotNil(t, m, metricNotFoundErrMsg, metricName)

	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		require.NotEmpty(t, data.DataPoints, noDataPointsErrMsg, metricName)
		assert.Equal(t, toInt64(t, expectedValue), data.DataPoints[0].Value, metricValueMismatchErrMsg, metricName)
	case metricdata.Histogram[float64]:
		require.NotEmpty(t, data.DataPoints, noDataPointsErrMsg, metricName)
		assert.Equal(t, uint64(toInt64(t, expectedValue)), data.DataPoints[0].Count, "metric %s count mismatch", metricName)
	case metricdata.Histogram[int64]:
		require.NotEmpty(t, data.DataPoints, noDataPointsErrMsg, metricName)
		assert.Equal(t, uint64(toInt64(t, expectedValue)), data.DataPoints[0].Count, "metric %s count mismatch", metricName)
	default:
		t.Fatalf("unsupported metric data type %T for %s", m.Data, metricName)
	}
}

func toInt64(t *testing.T, v any) int64 {
	t.Helper()
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	default:
		t.Fatalf("unsupported expected value type %T", v)
		return 0
	}
}

// SumInt64 totals every data point of a Sum[int64] metric. A missing metric sums to zero.
func SumInt64(rm metricdata.ResourceMetrics, metricName string) (int64, error) {
	m := FindMetric(rm, metricName)
	if m == nil {
		return 0, nil
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0, fmt.Errorf("metric %s is not a Sum[int64]", metricName)
	}

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total, nil
}

// GetMetricHistogramCount gets the count of the first data point of a histogram.
func GetMetricHistogramCount(rm metricdata.ResourceMetrics, metricName string) (uint64, error) {
	m := FindMetric(rm, metricName)
	if m == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, metricName)
	}

	switch data := m.Data.(type) {
	case metricdata.Histogram[float64]:
		if len(data.DataPoints) == 0 {
			return 0, fmt.Errorf(noDataPointsErrMsg, metricName)
		}
		return data.DataPoints[0].Count, nil
	case metricdata.Histogram[int64]:
		if len(data.DataPoints) == 0 {
			return 0, fmt.Errorf(noDataPointsErrMsg, metricName)
		}
		return data.DataPoints[0].Count, nil
	default:
		return 0, fmt.Errorf("metric %s is not a Histogram type", metricName)
	}
}
