package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncSessionEvent(t *testing.T) {
	before := testutil.ToFloat64(SessionEvents.WithLabelValues(EventCheckIn))
	IncSessionEvent(EventCheckIn)
	IncSessionEvent(EventCheckIn)

	if got := testutil.ToFloat64(SessionEvents.WithLabelValues(EventCheckIn)); got != before+2 {
		t.Errorf("期望 check_in 计数 +2，实际 %v -> %v", before, got)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	ObserveRequest("GET", "/health", "200", 5*time.Millisecond)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "gimpogugak_http_requests_total") {
		t.Error("输出中应包含 gimpogugak_http_requests_total")
	}
}
