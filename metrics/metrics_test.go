package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOperation(t *testing.T) {
	m := New("appealdesk")

	m.RecordOperation("create", "ok")
	m.RecordOperation("create", "ok")
	m.RecordOperation("resolve", "missing")

	if got := testutil.ToFloat64(m.operations.WithLabelValues("create", "ok")); got != 2 {
		t.Fatalf("expected 2 create/ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("resolve", "missing")); got != 1 {
		t.Fatalf("expected 1 resolve/missing, got %v", got)
	}
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	m := New("appealdesk")
	m.IncrementInFlight()
	m.RecordHTTPRequest(http.MethodGet, "/api/appeals", "200", 15*time.Millisecond)
	m.DecrementInFlight()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `appealdesk_http_requests_total{method="GET",route="/api/appeals",status="200"} 1`) {
		t.Fatalf("request counter missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, "appealdesk_http_requests_in_flight 0") {
		t.Fatalf("in-flight gauge missing from exposition:\n%s", body)
	}
}
