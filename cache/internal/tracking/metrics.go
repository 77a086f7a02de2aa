package tracking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/communityhub/platform/observability"
)

const (
	// Meter name for cache metrics instrumentation
	cacheMeterName = "communityhub/cache"

	// Metric names following OpenTelemetry semantic conventions
	metricCacheOperationDuration = "db.client.operation.duration" // Histogram in seconds

	metricCacheHit  = "cache.hit"
	metricCacheMiss = "cache.miss"

	metricReconnectAttempts = "cache.connection.reconnect_attempts"
	metricStateTransitions  = "cache.connection.state_transitions"

	// Manager usage metrics (observed from Manager.Stats)
	metricManagerHits    = "cache.manager.hits"
	metricManagerMisses  = "cache.manager.misses"
	metricManagerSets    = "cache.manager.sets"
	metricManagerDeletes = "cache.manager.deletes"

	attrDBSystem       = "db.system.name"
	attrDBOperation    = "db.operation.name"
	attrDBNamespace    = "db.namespace"
	attrErrorType      = "error.type"
	attrCacheHitStatus = "cache.hit"
	attrServerAddress  = "server.address"
	attrOutcome        = "outcome"
	attrState          = "state"
)

// Cache operation names
const (
	OpGet        = "get"
	OpSet        = "set"
	OpDelete     = "delete"
	OpGetOrSet   = "getorset"
	OpInvalidate = "invalidate"
	OpPattern    = "delete_pattern"
)

// isLookupOperation returns true for operations that classify hits and misses.
func isLookupOperation(operation string) bool {
	return operation == OpGet || operation == OpGetOrSet
}

var (
	cacheMeter    metric.Meter
	meterOnce     sync.Once
	meterInitMu   sync.Mutex
	metricsInited bool

	cacheOperationDuration metric.Float64Histogram
	cacheHitCounter        metric.Int64Counter
	cacheMissCounter       metric.Int64Counter
	reconnectCounter       metric.Int64Counter
	transitionCounter      metric.Int64Counter
)

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize cache metric %s: %v\n", metricName, err)
	}
}

// initCacheMeter initializes the OpenTelemetry meter and cache metric instruments.
func initCacheMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if cacheMeter != nil {
		return
	}

	cacheMeter = otel.Meter(cacheMeterName)

	var err error

	cacheOperationDuration, err = observability.CreateHistogram(cacheMeter,
		metricCacheOperationDuration, "Duration of cache operations", metric.WithUnit("s"))
	logMetricError(metricCacheOperationDuration, err)

	cacheHitCounter, err = observability.CreateCounter(cacheMeter,
		metricCacheHit, "Number of cache hits", metric.WithUnit("{hit}"))
	logMetricError(metricCacheHit, err)

	cacheMissCounter, err = observability.CreateCounter(cacheMeter,
		metricCacheMiss, "Number of cache misses", metric.WithUnit("{miss}"))
	logMetricError(metricCacheMiss, err)

	reconnectCounter, err = observability.CreateCounter(cacheMeter,
		metricReconnectAttempts, "Number of reconnect attempts to the cache store", metric.WithUnit("{attempt}"))
	logMetricError(metricReconnectAttempts, err)

	transitionCounter, err = observability.CreateCounter(cacheMeter,
		metricStateTransitions, "Number of connection state transitions", metric.WithUnit("{transition}"))
	logMetricError(metricStateTransitions, err)

	metricsInited = true
}

func ensureCacheMeterInitialized() {
	meterOnce.Do(initCacheMeter)
}

// RecordCacheOperation records cache operation metrics.
// namespace is the Manager name; hit is only meaningful for lookup operations.
func RecordCacheOperation(ctx context.Context, operation string, duration time.Duration, hit bool, err error, namespace string) {
	ensureCacheMeterInitialized()

	attrs := []attribute.KeyValue{
		attribute.String(attrDBSystem, "redis"),
		attribute.String(attrDBOperation, operation),
	}

	if namespace != "" {
		attrs = append(attrs, attribute.String(attrDBNamespace, namespace))
	}

	if isLookupOperation(operation) {
		attrs = append(attrs, attribute.Bool(attrCacheHitStatus, hit))
	}

	if err != nil {
		attrs = append(attrs, attribute.String(attrErrorType, classifyError(err)))
	}

	if cacheOperationDuration != nil {
		cacheOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}

	if isLookupOperation(operation) && err == nil {
		recordHitMissCounters(ctx, hit, attrs)
	}
}

// RecordReconnectAttempt counts one reconnect attempt against address.
func RecordReconnectAttempt(ctx context.Context, address string, success bool) {
	ensureCacheMeterInitialized()

	if reconnectCounter == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	reconnectCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrServerAddress, address),
		attribute.String(attrOutcome, outcome),
	))
}

// RecordStateTransition counts a connection entering state.
func RecordStateTransition(ctx context.Context, address, state string) {
	ensureCacheMeterInitialized()

	if transitionCounter == nil {
		return
	}
	transitionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrServerAddress, address),
		attribute.String(attrState, state),
	))
}

// classifyError returns an error classification string for metrics.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "connection"), strings.Contains(errStr, "not initialized"):
		return "connection_error"
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "corrupt"):
		return "corrupt_entry"
	case strings.Contains(errStr, "closed"):
		return "closed"
	default:
		return "error"
	}
}

func recordHitMissCounters(ctx context.Context, hit bool, attrs []attribute.KeyValue) {
	if hit {
		if cacheHitCounter != nil {
			cacheHitCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		return
	}
	if cacheMissCounter != nil {
		cacheMissCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// ManagerStats holds the counters observed for one Manager.
type ManagerStats struct {
	Hits    int64
	Misses  int64
	Sets    int64
	Deletes int64
}

type managerMetricsRegistration struct {
	statsProvider func() ManagerStats

	hits    metric.Int64ObservableCounter
	misses  metric.Int64ObservableCounter
	sets    metric.Int64ObservableCounter
	deletes metric.Int64ObservableCounter

	baseAttrs []attribute.KeyValue
}

// observeManagerStats is called during metrics collection.
// Counters can drop back to zero after a stats reset; exporters treat that as a counter restart.
func (r *managerMetricsRegistration) observeManagerStats(_ context.Context, observer metric.Observer) error {
	stats := r.statsProvider()
	attrs := metric.WithAttributes(r.baseAttrs...)

	if r.hits != nil {
		observer.ObserveInt64(r.hits, stats.Hits, attrs)
	}
	if r.misses != nil {
		observer.ObserveInt64(r.misses, stats.Misses, attrs)
	}
	if r.sets != nil {
		observer.ObserveInt64(r.sets, stats.Sets, attrs)
	}
	if r.deletes != nil {
		observer.ObserveInt64(r.deletes, stats.Deletes, attrs)
	}
	return nil
}

func createObservableCounter(meter metric.Meter, name, description string) metric.Int64ObservableCounter {
	counter, err := meter.Int64ObservableCounter(name, metric.WithDescription(description))
	logMetricError(name, err)
	return counter
}

func collectObservables(instruments ...metric.Int64ObservableCounter) []metric.Observable {
	var result []metric.Observable
	for _, inst := range instruments {
		if inst != nil {
			result = append(result, inst)
		}
	}
	return result
}

func noOpCleanup() func() {
	return func() { /** no-op **/ }
}

// RegisterManagerMetrics registers observable usage counters for one Manager.
// The statsProvider function is called during each metrics collection cycle.
// Returns a cleanup function to unregister the metrics.
func RegisterManagerMetrics(statsProvider func() ManagerStats, namespace string) func() {
	ensureCacheMeterInitialized()

	if cacheMeter == nil || statsProvider == nil {
		return noOpCleanup()
	}

	reg := &managerMetricsRegistration{statsProvider: statsProvider}
	if namespace != "" {
		reg.baseAttrs = append(reg.baseAttrs, attribute.String(attrDBNamespace, namespace))
	}

	reg.hits = createObservableCounter(cacheMeter, metricManagerHits, "Cache hits recorded by the manager")
	reg.misses = createObservableCounter(cacheMeter, metricManagerMisses, "Cache misses recorded by the manager")
	reg.sets = createObservableCounter(cacheMeter, metricManagerSets, "Entries written by the manager")
	reg.deletes = createObservableCounter(cacheMeter, metricManagerDeletes, "Entries deleted by the manager")

	instruments := collectObservables(reg.hits, reg.misses, reg.sets, reg.deletes)
	if len(instruments) == 0 {
		return noOpCleanup()
	}

	registration, err := cacheMeter.RegisterCallback(reg.observeManagerStats, instruments...)
	if err != nil {
		logMetricError("manager_metrics_callback", err)
		return noOpCleanup()
	}

	return func() {
		if err := registration.Unregister(); err != nil {
			logMetricError("manager_metrics_unregister", err)
		}
	}
}

// IsInitialized returns true if cache metrics have been initialized.
func IsInitialized() bool {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()
	return metricsInited
}

// ResetForTesting resets the metric state for testing purposes.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	cacheMeter = nil
	cacheOperationDuration = nil
	cacheHitCounter = nil
	cacheMissCounter = nil
	reconnectCounter = nil
	transitionCounter = nil
	metricsInited = false
	meterOnce = sync.Once{}
}
