// Package health runs named readiness checks for the interpreter's
// external collaborators (model files, engine binaries, HTTP backends).
package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Checker is an interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// namedCheck wraps a check function with a name
type namedCheck struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewChecker creates a named checker from a function
func NewChecker(name string, fn func(ctx context.Context) CheckResult) Checker {
	return &namedCheck{name: name, fn: fn}
}

func (c *namedCheck) Name() string {
	return c.name
}

func (c *namedCheck) Check(ctx context.Context) CheckResult {
	return c.fn(ctx)
}

// Registry manages multiple health checkers
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	service  string
	version  string
	startAt  time.Time
}

// NewRegistry creates a new health check registry
func NewRegistry(service, version string) *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
		service:  service,
		version:  version,
		startAt:  time.Now(),
	}
}

// Register adds a checker to the registry, replacing one with the same name
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// RegisterFunc adds a check function to the registry
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context) CheckResult) {
	r.Register(NewChecker(name, fn))
}

// Unregister removes a checker from the registry
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}

// Check runs all health checks concurrently and returns the overall status.
// Checks are reported sorted by name.
func (r *Registry) Check(ctx context.Context) *Report {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		checkers = append(checkers, c)
	}
	r.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(results, func(a, b CheckResult) int {
		return strings.Compare(a.Name, b.Name)
	})

	return &Report{
		Service:   r.service,
		Version:   r.version,
		Status:    overall(results),
		Uptime:    time.Since(r.startAt),
		Timestamp: time.Now(),
		Checks:    results,
	}
}

func run(ctx context.Context, c Checker) CheckResult {
	start := time.Now()
	result := c.Check(ctx)
	result.Duration = time.Since(start)
	result.Timestamp = time.Now()
	if result.Name == "" {
		result.Name = c.Name()
	}
	if result.Status == "" {
		result.Status = StatusUnknown
	}
	return result
}

// overall is unhealthy if any check is, degraded if any check is degraded
// or unknown, healthy otherwise
func overall(results []CheckResult) Status {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusUnknown:
			status = StatusDegraded
		}
	}
	return status
}

// CheckWithTimeout runs all health checks with a timeout
func (r *Registry) CheckWithTimeout(timeout time.Duration) *Report {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.Check(ctx)
}

// Report represents the overall health report
type Report struct {
	Service   string        `json:"service"`
	Version   string        `json:"version"`
	Status    Status        `json:"status"`
	Uptime    time.Duration `json:"uptime"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckResult `json:"checks"`
}

// String returns a string representation of the report
func (r *Report) String() string {
	return fmt.Sprintf("Service: %s, Status: %s, Uptime: %v, Checks: %d",
		r.Service, r.Status, r.Uptime.Round(time.Second), len(r.Checks))
}

// Common health checks

// PathCheck reports unhealthy when path does not exist
func PathCheck(name, path string) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{
			Name:    name,
			Details: map[string]interface{}{"path": path},
		}
		info, err := os.Stat(path)
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = fmt.Sprintf("not found: %s", path)
			return result
		}
		result.Status = StatusHealthy
		if info.IsDir() {
			result.Message = "directory present"
		} else {
			result.Message = fmt.Sprintf("%.1f MB", float64(info.Size())/1024/1024)
		}
		return result
	})
}

// BinaryCheck reports unhealthy when none of the candidate executables is on PATH
func BinaryCheck(name string, candidates ...string) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		for _, c := range candidates {
			if p, err := exec.LookPath(c); err == nil {
				return CheckResult{
					Name:    name,
					Status:  StatusHealthy,
					Message: p,
				}
			}
		}
		return CheckResult{
			Name:    name,
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("none of %v found in PATH", candidates),
		}
	})
}

// TCPCheck reports whether address accepts TCP connections
func TCPCheck(name, address string, timeout time.Duration) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{Name: name, Details: map[string]interface{}{"address": address}}

		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return failed(result, err)
		}
		conn.Close()
		return passed(result, "reachable")
	})
}

// HTTPCheck probes url with GET. Any status below 500 counts as up.
func HTTPCheck(name, url string, timeout time.Duration) Checker {
	client := &http.Client{Timeout: timeout}
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{Name: name, Details: map[string]interface{}{"url": url}}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return failed(result, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return failed(result, err)
		}
		resp.Body.Close()

		result.Details["status_code"] = resp.StatusCode
		if resp.StatusCode >= 500 {
			result.Status = StatusDegraded
			result.Message = resp.Status
			return result
		}
		return passed(result, resp.Status)
	})
}

// GRPCCheck queries the standard gRPC health service at address
func GRPCCheck(name, address string, timeout time.Duration) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{Name: name, Details: map[string]interface{}{"address": address}}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return failed(result, err)
		}
		defer conn.Close()

		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
		if err != nil {
			return failed(result, err)
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			result.Status = StatusDegraded
			result.Message = resp.GetStatus().String()
			return result
		}
		return passed(result, resp.GetStatus().String())
	})
}

func passed(r CheckResult, msg string) CheckResult {
	r.Status = StatusHealthy
	r.Message = msg
	return r
}

func failed(r CheckResult, err error) CheckResult {
	r.Status = StatusUnhealthy
	r.Message = err.Error()
	return r
}
