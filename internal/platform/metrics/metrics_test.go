package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// counterValue sums every sample of a counter family whose labels include
// want.
func counterValue(t *testing.T, m *Metrics, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if hasLabels(metric, want) {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}

func hasLabels(metric *dto.Metric, want map[string]string) bool {
	for k, v := range want {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.QuestionServed(SourceStore, 3)
	m.QuestionServed(SourceGenerated, 1)
	m.QuestionServed(SourcePlaceholder, 0)
	m.AnswerRecorded(true)
	m.AnswerRecorded(false)
	m.AnswerRecorded(false)
	m.GenerationFailed("timeout")
	m.GenerationObserved(150 * time.Millisecond)
	m.AIRequest("openai", "generation", time.Second, nil)
	m.AIRequest("openai", "generation", time.Second, errors.New("429"))

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"practice_questions_served_total", map[string]string{"source": "store"}, 3},
		{"practice_questions_served_total", map[string]string{"source": "generated"}, 1},
		{"practice_questions_served_total", map[string]string{"source": "placeholder"}, 0},
		{"practice_answers_recorded_total", map[string]string{"result": "incorrect"}, 2},
		{"practice_generation_failures_total", map[string]string{"reason": "timeout"}, 1},
		{"practice_ai_requests_total", map[string]string{"provider": "openai", "status": "error"}, 1},
		{"practice_ai_requests_total", map[string]string{"provider": "openai"}, 2},
	}
	for _, tt := range tests {
		if got := counterValue(t, m, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.QuestionServed(SourceStore, 1)
	m.AnswerRecorded(true)
	m.GenerationFailed("error")
	m.GenerationObserved(time.Second)
	m.AIRequest("x", "generation", time.Second, nil)
	if m.Registry() != nil {
		t.Error("Registry() on nil metrics should be nil")
	}

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /learners/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	h := m.Middleware(mux)

	for _, id := range []string{"a", "b", "c"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/learners/"+id, nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if got := counterValue(t, m, "practice_http_requests_total", map[string]string{"endpoint": "GET /learners/{id}", "status": "202"}); got != 3 {
		t.Errorf("pattern requests = %v, want 3", got)
	}
	if got := counterValue(t, m, "practice_http_requests_total", map[string]string{"status": "404"}); got != 1 {
		t.Errorf("404 requests = %v, want 1", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AnswerRecorded(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `practice_answers_recorded_total{result="correct"} 1`) {
		t.Error("exposition missing answers counter")
	}
}
