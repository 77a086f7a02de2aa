package app

import (
	"context"
	"errors"
	"time"
)

const (
	healthyStatus   = "healthy"
	unhealthyStatus = "unhealthy"
	disabledStatus  = "disabled"

	defaultProbeTimeout = 2 * time.Second
)

// ErrStoreUnreachable is reported by the store probe when the liveness check fails.
var ErrStoreUnreachable = errors.New("cache store unreachable")

// HealthStatus captures the outcome of a readiness probe.
type HealthStatus struct {
	Name     string
	Status   string
	Details  map[string]any
	Err      error
	Critical bool
}

// HealthProbe exposes a uniform interface for readiness probes.
type HealthProbe interface {
	Run(ctx context.Context) HealthStatus
}

type healthProbeFunc struct {
	name     string
	critical bool
	fn       func(ctx context.Context) (string, map[string]any, error)
}

func (h healthProbeFunc) Run(ctx context.Context) HealthStatus {
	status, details, err := h.fn(ctx)
	if details == nil {
		details = map[string]any{}
	}
	return HealthStatus{
		Name:     h.name,
		Status:   status,
		Details:  details,
		Err:      err,
		Critical: h.critical,
	}
}

// StoreConnection is the view of the shared connection the store probe needs.
type StoreConnection interface {
	IsHealthy(ctx context.Context) bool
	Address() string
	ReconnectAttempts() int
}

// storeHealthProbe pings the shared store connection. A failed ping makes the process not ready.
func storeHealthProbe(conn StoreConnection, state func() string) HealthProbe {
	if conn == nil {
		return healthProbeFunc{
			name: "store",
			fn: func(context.Context) (string, map[string]any, error) {
				return disabledStatus, map[string]any{"status": disabledStatus}, nil
			},
		}
	}

	return healthProbeFunc{
		name:     "store",
		critical: true,
		fn: func(ctx context.Context) (string, map[string]any, error) {
			ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
			defer cancel()

			healthy := conn.IsHealthy(ctx)
			details := map[string]any{
				"address":            conn.Address(),
				"reconnect_attempts": conn.ReconnectAttempts(),
			}
			if state != nil {
				details["state"] = state()
			}
			if !healthy {
				return unhealthyStatus, details, ErrStoreUnreachable
			}
			return healthyStatus, details, nil
		},
	}
}

// registryHealthProbe reports per-manager usage. It never fails readiness.
func registryHealthProbe(reg *Registry) HealthProbe {
	return healthProbeFunc{
		name: "caches",
		fn: func(context.Context) (string, map[string]any, error) {
			if reg == nil {
				return disabledStatus, nil, nil
			}
			details := make(map[string]any, len(reg.names))
			for _, name := range reg.Names() {
				m, _ := reg.Get(name)
				s := m.Stats()
				details[name] = map[string]any{
					"prefix":   m.Prefix(),
					"hit_rate": s.HitRate,
					"hits":     s.Hits,
					"misses":   s.Misses,
				}
			}
			return healthyStatus, details, nil
		},
	}
}

// runHealthProbes runs every probe and reports readiness plus a per-probe summary.
func runHealthProbes(ctx context.Context, probes []HealthProbe) (bool, map[string]any) {
	healthy := true
	report := make(map[string]any, len(probes))
	for _, probe := range probes {
		result := probe.Run(ctx)
		entry := map[string]any{
			"status":  result.Status,
			"details": result.Details,
		}
		if result.Err != nil {
			entry["error"] = result.Err.Error()
			if result.Critical {
				healthy = false
			}
		}
		report[result.Name] = entry
	}
	return healthy, report
}
