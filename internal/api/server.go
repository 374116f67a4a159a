// Package api exposes the backtest platform over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mysingle-lab/quant-backtest/internal/backtest/engine"
	"github.com/mysingle-lab/quant-backtest/internal/logger"
	"github.com/mysingle-lab/quant-backtest/internal/store"
	"github.com/mysingle-lab/quant-backtest/internal/strategy"
	"github.com/mysingle-lab/quant-backtest/internal/version"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// ResultLister reads cached result summaries. Implemented by the duckdb
// cache; nil disables the results endpoint gracefully.
type ResultLister interface {
	ListResultSummaries(ctx context.Context) ([]store.ResultSummary, error)
}

// Server is the HTTP API surface: run CRUD, execution, results and
// discovery endpoints.
type Server struct {
	store    store.Store
	engine   engine.Engine
	results  ResultLister
	registry *strategy.Registry
	logger   *logger.Logger
}

// NewServer wires the API with its collaborators. results may be nil.
func NewServer(s store.Store, e engine.Engine, results ResultLister, registry *strategy.Registry, l *logger.Logger) *Server {
	return &Server{
		store:    s,
		engine:   e,
		results:  results,
		registry: registry,
		logger:   l,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/backtests", s.handleCreateBacktest).Methods("POST")
	api.HandleFunc("/backtests", s.handleListBacktests).Methods("GET")
	api.HandleFunc("/backtests/{id}", s.handleGetBacktest).Methods("GET")
	api.HandleFunc("/backtests/{id}", s.handleDeleteBacktest).Methods("DELETE")
	api.HandleFunc("/backtests/{id}/execute", s.handleExecuteBacktest).Methods("POST")
	api.HandleFunc("/backtests/{id}/executions", s.handleListExecutions).Methods("GET")
	api.HandleFunc("/executions/{id}", s.handleGetExecution).Methods("GET")
	api.HandleFunc("/results", s.handleListResults).Methods("GET")
	api.HandleFunc("/strategies", s.handleListStrategies).Methods("GET")
	api.HandleFunc("/config/schema", s.handleConfigSchema).Methods("GET")

	return router
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http api listening", zap.String("address", addr))

	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.GetVersion(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError maps coded errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch errors.GetCode(err) {
	case errors.ErrCodeRunNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidConfig,
		errors.ErrCodeEmptySymbolList,
		errors.ErrCodeInvalidInitialCash,
		errors.ErrCodeInvalidDateRange,
		errors.ErrCodeInvalidCommission,
		errors.ErrCodeUnsupportedVersion,
		errors.ErrCodeStrategyNotFound,
		errors.ErrCodeStrategyParams,
		errors.ErrCodeInvalidStrategyType:
		status = http.StatusBadRequest
	case errors.ErrCodeRunNotPending:
		status = http.StatusConflict
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
