package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandler(t *testing.T) {
	Register()
	Register()

	Admissions.WithLabelValues("metrics-test", "responded").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `hookbox_admissions_total{config="metrics-test",outcome="responded"} 1`) {
		t.Errorf("Expected admission counter in output:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("Expected go collector output")
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Processed.WithLabelValues("counter-test", "processed"))
	Processed.WithLabelValues("counter-test", "processed").Inc()
	if got := testutil.ToFloat64(Processed.WithLabelValues("counter-test", "processed")); got != before+1 {
		t.Errorf("Expected %v, got %v", before+1, got)
	}
}
