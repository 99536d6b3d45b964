package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestNewChecker(t *testing.T) {
	checker := NewChecker("test-checker", func(ctx context.Context) CheckResult {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "test passed",
		}
	})

	if checker.Name() != "test-checker" {
		t.Errorf("Name() = %v, want test-checker", checker.Name())
	}

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", result.Status)
	}
}

func TestRegistry_Check(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"one unknown", []Status{StatusHealthy, ""}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry("dolmetscher", "test")
			for i, s := range tt.statuses {
				s := s
				r.RegisterFunc(string(rune('a'+i)), func(ctx context.Context) CheckResult {
					return CheckResult{Status: s}
				})
			}

			report := r.Check(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %v, want %v", report.Status, tt.want)
			}
			if len(report.Checks) != len(tt.statuses) {
				t.Errorf("len(Checks) = %d, want %d", len(report.Checks), len(tt.statuses))
			}
		})
	}
}

func TestRegistry_SortedAndNamed(t *testing.T) {
	r := NewRegistry("dolmetscher", "test")
	r.RegisterFunc("zeta", func(ctx context.Context) CheckResult { return CheckResult{Status: StatusHealthy} })
	r.RegisterFunc("alpha", func(ctx context.Context) CheckResult { return CheckResult{Status: StatusHealthy} })
	r.RegisterFunc("gone", func(ctx context.Context) CheckResult { return CheckResult{Status: StatusHealthy} })
	r.Unregister("gone")

	report := r.CheckWithTimeout(time.Second)
	if len(report.Checks) != 2 {
		t.Fatalf("len(Checks) = %d, want 2", len(report.Checks))
	}
	if report.Checks[0].Name != "alpha" || report.Checks[1].Name != "zeta" {
		t.Errorf("Checks not sorted: %v, %v", report.Checks[0].Name, report.Checks[1].Name)
	}
	if report.Checks[0].Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestPathCheck(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(file, make([]byte, 1024), 0644); err != nil {
		t.Fatal(err)
	}

	if got := PathCheck("model", file).Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("existing file: Status = %v, want healthy", got.Status)
	}
	if got := PathCheck("model", dir).Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("existing dir: Status = %v, want healthy", got.Status)
	}
	if got := PathCheck("model", filepath.Join(dir, "missing")).Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("missing: Status = %v, want unhealthy", got.Status)
	}
}

func TestBinaryCheck(t *testing.T) {
	if got := BinaryCheck("bin", "definitely-not-a-binary-xyz").Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", got.Status)
	}
}

func TestHTTPCheck(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	tests := []struct {
		name string
		url  string
		want Status
	}{
		{"ok", ok.URL, StatusHealthy},
		{"5xx", broken.URL, StatusDegraded},
		{"unreachable", "http://127.0.0.1:1", StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTTPCheck("ollama", tt.url, time.Second).Check(context.Background())
			if got.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", got.Status, tt.want, got.Message)
			}
		})
	}
}

func TestTCPCheck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	if got := TCPCheck("tcp", ln.Addr().String(), time.Second).Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy (%s)", got.Status, got.Message)
	}
}

func TestGRPCCheck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go srv.Serve(ln)
	defer srv.Stop()

	got := GRPCCheck("grpc", ln.Addr().String(), 2*time.Second).Check(context.Background())
	if got.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy (%s)", got.Status, got.Message)
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	got = GRPCCheck("grpc", ln.Addr().String(), 2*time.Second).Check(context.Background())
	if got.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", got.Status)
	}
}
