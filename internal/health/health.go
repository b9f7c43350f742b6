// Package health runs dependency checks and exposes them over gRPC.
package health

import (
	"context"
	"log/slog"
	"sync"
)

// Status values reported by Run.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Check is one named dependency probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
	// Failure is reported instead of the error text, e.g. "unreachable".
	Failure string
}

// Report is the outcome of running every check.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Run executes checks concurrently and collects their results.
func Run(ctx context.Context, checks []Check) Report {
	report := Report{
		Status: StatusHealthy,
		Checks: map[string]string{"api": "ok"},
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := "ok"
			if err := c.Fn(ctx); err != nil {
				slog.Error("Health check failed", "check", c.Name, "error", err)
				result = c.Failure
				if result == "" {
					result = "failed"
				}
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checks[c.Name] = result
			if result != "ok" {
				report.Status = StatusDegraded
			}
		}()
	}
	wg.Wait()
	return report
}
