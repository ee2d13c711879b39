package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"qroute/internal/config"
	"qroute/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(config.Default())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func postSolve(t *testing.T, s *Server, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	s.SolveHandler(rr, req)
	return rr
}

// Three locations, one vehicle, distances forming a 1-1-2 triangle. The only
// tour visiting both stops costs 4.
func triangleRequest() map[string]any {
	return map[string]any{
		"numVehicles": 1,
		"matrix":      [][]float64{{0, 1, 2}, {1, 0, 1}, {2, 1, 0}},
		"encoding":    "step",
		"backend":     "exact",
	}
}

func TestSolveRoundTrip(t *testing.T) {
	s := newTestServer(t)
	rr := postSolve(t, s, triangleRequest())
	if rr.Code != http.StatusOK {
		t.Fatalf("solve: got %d: %s", rr.Code, rr.Body.String())
	}
	var rec store.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("record has no id")
	}
	if rec.Variant != "vrp" {
		t.Fatalf("variant = %s, want vrp", rec.Variant)
	}
	if !rec.Solution.Feasible {
		t.Fatalf("solution infeasible: %+v", rec.Solution.Violations)
	}
	if rec.Solution.TotalDistance != 4 {
		t.Fatalf("distance = %v, want 4", rec.Solution.TotalDistance)
	}
}

func TestSolveInvalidParameters(t *testing.T) {
	s := newTestServer(t)
	req := triangleRequest()
	req["numVehicles"] = 0
	rr := postSolve(t, s, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal problem: %v", err)
	}
	if p.Title != "invalid_parameters" {
		t.Fatalf("title = %s", p.Title)
	}
	if p.Type != "/problems/invalid_parameters" {
		t.Fatalf("type = %s", p.Type)
	}
}

func TestSolveModelTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Solve.MaxVariables = 4
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	rr := postSolve(t, s, triangleRequest())
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422: %s", rr.Code, rr.Body.String())
	}
}

func TestSolveRejectsAnnealerCQM(t *testing.T) {
	s := newTestServer(t)
	req := triangleRequest()
	req["backend"] = "annealer"
	req["form"] = "cqm"
	rr := postSolve(t, s, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestSolveRejectsEdgeEncodedTrips(t *testing.T) {
	s := newTestServer(t)
	rr := postSolve(t, s, map[string]any{
		"numVehicles": 1,
		"locations":   []map[string]float64{{"x": 0}, {"x": 1}, {"x": 2}, {"x": 3}, {"x": 4}},
		"trips":       []map[string]int{{"pickup": 1, "dropoff": 3, "demand": 1}},
		"encoding":    "edge",
		"backend":     "exact",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400: %s", rr.Code, rr.Body.String())
	}
}

func TestSolveUnknownBackend(t *testing.T) {
	s := newTestServer(t)
	req := triangleRequest()
	req["backend"] = "quantum9000"
	rr := postSolve(t, s, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestSolutionsListAndGet(t *testing.T) {
	s := newTestServer(t)
	rr := postSolve(t, s, triangleRequest())
	if rr.Code != http.StatusOK {
		t.Fatalf("solve: got %d", rr.Code)
	}
	var rec store.Record
	_ = json.Unmarshal(rr.Body.Bytes(), &rec)

	rr = httptest.NewRecorder()
	s.SolutionsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solutions?limit=5", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list: got %d", rr.Code)
	}
	var list struct {
		Solutions []store.Record `json:"solutions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list.Solutions) != 1 || list.Solutions[0].ID != rec.ID {
		t.Fatalf("list = %+v", list.Solutions)
	}

	rr = httptest.NewRecorder()
	s.SolutionByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solutions/"+rec.ID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("get: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.SolutionByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solutions/"+rec.ID+"?format=text", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("get text: got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %s", ct)
	}
	if !strings.Contains(rr.Body.String(), "vehicle 0") {
		t.Fatalf("text render missing routes: %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	s.SolutionByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solutions/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing id: got %d", rr.Code)
	}
}

func TestSolveEventsDoNotLeakAcrossJobs(t *testing.T) {
	s := newTestServer(t)
	ch := s.Broker.Subscribe("unrelated")
	defer s.Broker.Unsubscribe("unrelated", ch)
	rr := postSolve(t, s, triangleRequest())
	if rr.Code != http.StatusOK {
		t.Fatalf("solve: got %d", rr.Code)
	}
	select {
	case evt := <-ch:
		t.Fatalf("event leaked to unrelated subscriber: %+v", evt)
	default:
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.RPS = 1
	cfg.RateLimit.Burst = 1
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	h := s.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rr.Code)
	}
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("ready: got %d", rr.Code)
	}
}
