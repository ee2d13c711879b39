package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"qroute/internal/buildinfo"
	"qroute/internal/decode"
	"qroute/internal/encode"
	"qroute/internal/metrics"
	"qroute/internal/model"
	"qroute/internal/qubo"
	"qroute/internal/solver"
	"qroute/internal/store"
)

// solveRequest is the POST /v1/solve body. Instance parameters are embedded;
// the remaining fields steer formulation and backend selection and all have
// configured defaults.
type solveRequest struct {
	model.Params
	CostFunction string        `json:"costFunction,omitempty"`
	Encoding     string        `json:"encoding,omitempty"`
	Form         string        `json:"form,omitempty"` // qubo or cqm
	Backend      string        `json:"backend,omitempty"`
	Solver       solver.Config `json:"solver,omitempty"`
}

// SolveHandler runs the full pipeline synchronously: dispatch, encode,
// build, submit, decode, persist. Progress events are published to the
// broker under the job id returned in the response.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST", r.URL.Path)
		return
	}
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", err.Error(), r.URL.Path)
		return
	}

	encoding := req.Encoding
	if encoding == "" {
		encoding = s.Cfg.Solve.DefaultEncoding
	}
	backend := req.Backend
	if backend == "" {
		backend = s.Cfg.Solve.DefaultBackend
	}
	form := req.Form
	if form == "" {
		form = "qubo"
	}
	adapter, ok := s.backends[backend]
	if !ok {
		writeProblem(w, http.StatusBadRequest, "unknown_backend", "no backend named "+backend, r.URL.Path)
		return
	}
	if form != "qubo" && form != "cqm" {
		writeProblem(w, http.StatusBadRequest, "unknown_form", "form must be qubo or cqm", r.URL.Path)
		return
	}
	if form == "cqm" && backend == "annealer" {
		writeProblem(w, http.StatusBadRequest, "unsupported_form", "the annealer backend accepts qubo models only", r.URL.Path)
		return
	}

	if req.CostFunction != "" && req.Params.Matrix == nil {
		fn, err := s.costFunc(r.Context(), req.CostFunction)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid_cost_function", err.Error(), r.URL.Path)
			return
		}
		req.Params.Cost = fn
	}

	jobID := uuid.NewString()
	start := time.Now()
	s.Broker.Publish(jobID, SolveEvent{Type: "solve.started", Data: map[string]any{"id": jobID}})

	in, err := model.Dispatch(req.Params)
	if err != nil {
		var cfgErr *model.ConfigError
		if errors.As(err, &cfgErr) {
			metrics.SolveRequests.WithLabelValues("invalid", encoding, backend, "rejected").Inc()
			writeProblem(w, http.StatusBadRequest, "invalid_parameters", cfgErr.Error(), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusBadGateway, "cost_function_failed", err.Error(), r.URL.Path)
		return
	}
	variant := string(in.Variant)

	idx, err := encode.New(in, encode.Strategy(encoding), s.Cfg.Solve.MaxVariables)
	if err != nil {
		var sizeErr *encode.SizeError
		if errors.As(err, &sizeErr) {
			metrics.SolveRequests.WithLabelValues(variant, encoding, backend, "too_large").Inc()
			writeProblem(w, http.StatusUnprocessableEntity, "model_too_large", sizeErr.Error(), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusBadRequest, "invalid_encoding", err.Error(), r.URL.Path)
		return
	}
	m, err := qubo.Build(in, idx)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "formulation_failed", err.Error(), r.URL.Path)
		return
	}
	metrics.ModelVariables.WithLabelValues(variant, encoding).Observe(float64(idx.NumVars()))
	s.Broker.Publish(jobID, SolveEvent{Type: "solve.formulated", Data: map[string]any{"id": jobID, "numVars": idx.NumVars()}})

	var opt qubo.Optimization
	if form == "cqm" {
		opt = m.CQM()
	} else {
		opt = m.QUBO()
	}

	scfg := req.Solver
	if scfg.NumReads == 0 {
		scfg.NumReads = s.Cfg.Solve.NumReads
	}
	if scfg.Sweeps == 0 {
		scfg.Sweeps = s.Cfg.Solve.Sweeps
	}
	if scfg.TimeLimit == 0 {
		scfg.TimeLimit = s.Cfg.Solve.TimeLimit
	}
	res, err := adapter.Submit(r.Context(), opt, scfg)
	if err != nil {
		metrics.SolveRequests.WithLabelValues(variant, encoding, backend, "error").Inc()
		writeProblem(w, http.StatusBadGateway, "solver_failed", err.Error(), r.URL.Path)
		return
	}
	s.Broker.Publish(jobID, SolveEvent{Type: "solve.submitted", Data: map[string]any{"id": jobID, "samples": len(res.Samples)}})

	sol, err := decode.Decode(in, idx, res)
	if err != nil {
		metrics.SolveRequests.WithLabelValues(variant, encoding, backend, "error").Inc()
		writeProblem(w, http.StatusInternalServerError, "decode_failed", err.Error(), r.URL.Path)
		return
	}

	rec := store.Record{
		ID:        jobID,
		Variant:   in.Variant,
		Encoding:  encoding,
		Backend:   backend,
		Form:      form,
		NumVars:   idx.NumVars(),
		RuntimeMS: res.Runtime.Milliseconds(),
		Solution:  sol,
	}
	rec, err = s.Store.SaveSolution(r.Context(), rec)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store_failed", err.Error(), r.URL.Path)
		return
	}

	status := "feasible"
	if !sol.Feasible {
		status = "infeasible"
	}
	metrics.SolveRequests.WithLabelValues(variant, encoding, backend, status).Inc()
	metrics.SolveDuration.WithLabelValues(variant, backend).Observe(time.Since(start).Seconds())

	s.Notifier.Emit("solve.completed", map[string]any{
		"solutionId": rec.ID,
		"variant":    variant,
		"feasible":   sol.Feasible,
		"distance":   sol.TotalDistance,
	})
	s.Broker.Publish(jobID, SolveEvent{Type: "solve.completed", Data: map[string]any{"id": jobID, "feasible": sol.Feasible, "distance": sol.TotalDistance}})

	writeJSON(w, http.StatusOK, rec)
}

// SolutionsHandler lists persisted solutions with cursor pagination.
func (s *Server) SolutionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeProblem(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET", r.URL.Path)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeProblem(w, http.StatusBadRequest, "invalid_limit", "limit must be 1..500", r.URL.Path)
			return
		}
		limit = n
	}
	recs, next, err := s.Store.ListSolutions(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store_failed", err.Error(), r.URL.Path)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"solutions": recs, "nextCursor": next})
}

// SolutionByIDHandler returns one solution, as JSON or, with ?format=text,
// as the human-readable route listing.
func (s *Server) SolutionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeProblem(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/solutions/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "not_found", "no such solution", r.URL.Path)
		return
	}
	rec, err := s.Store.GetSolution(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "not_found", "no such solution", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store_failed", err.Error(), r.URL.Path)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(decode.Render(rec.Solution)))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HealthHandler is the liveness probe; it also reports build metadata.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Info()
	info["status"] = "ok"
	writeJSON(w, http.StatusOK, info)
}

// ReadyHandler reports readiness; with a database-backed store it pings the
// database first.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "not_ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
