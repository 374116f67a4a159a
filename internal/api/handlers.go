package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mysingle-lab/quant-backtest/internal/backtest/engine"
	"github.com/mysingle-lab/quant-backtest/internal/store"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

type createBacktestRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Config      types.BacktestConfig `json:"config"`
}

func (s *Server) handleCreateBacktest(w http.ResponseWriter, r *http.Request) {
	var req createBacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidConfig, "invalid request body", err))

		return
	}

	if req.Name == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidConfig, "name is required"))

		return
	}

	if err := req.Config.Validate(); err != nil {
		s.writeError(w, err)

		return
	}

	if _, err := s.registry.Create(req.Config.Strategy); err != nil {
		s.writeError(w, err)

		return
	}

	now := time.Now().UTC()
	run := &types.BacktestRun{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
		Status:      types.RunStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.SaveRun(r.Context(), run); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	if runs == nil {
		runs = []types.BacktestRun{}
	}

	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := s.store.LoadRun(r.Context(), id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if run == nil {
		s.writeError(w, errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", id))

		return
	}

	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteBacktest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.store.DeleteRun(r.Context(), id); err != nil {
		s.writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExecuteBacktest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	execution, err := s.engine.Execute(r.Context(), id, engine.LifecycleCallbacks{})
	if err != nil {
		// A failed run still produced an execution record worth returning.
		if execution != nil {
			s.writeJSON(w, http.StatusUnprocessableEntity, execution)

			return
		}

		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, execution)
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := s.store.LoadRun(r.Context(), id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if run == nil {
		s.writeError(w, errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", id))

		return
	}

	executions, err := s.store.ListExecutions(r.Context(), id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if executions == nil {
		executions = []types.Execution{}
	}

	s.writeJSON(w, http.StatusOK, executions)
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	execution, err := s.store.LoadExecution(r.Context(), id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if execution == nil {
		s.writeError(w, errors.Newf(errors.ErrCodeRunNotFound, "execution %s not found", id))

		return
	}

	s.writeJSON(w, http.StatusOK, execution)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.writeJSON(w, http.StatusOK, []store.ResultSummary{})

		return
	}

	summaries, err := s.results.ListResultSummaries(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	if summaries == nil {
		summaries = []store.ResultSummary{}
	}

	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleListStrategies(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"strategies": s.registry.Types()})
}

func (s *Server) handleConfigSchema(w http.ResponseWriter, _ *http.Request) {
	var cfg types.BacktestConfig

	schema, err := cfg.GenerateSchemaJSON()
	if err != nil {
		s.writeError(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(schema)); err != nil {
		s.logger.Error("failed to write schema response")
	}
}
