// Package web exposes the workflow over a local JSON API. It is a thin
// wrapper: every handler resolves the project from the request, delegates
// to the state machine or document stores, and serializes the outcome.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/rs/cors"

	"github.com/tunelab/tunelab/internal/gates"
	"github.com/tunelab/tunelab/internal/state"
	"github.com/tunelab/tunelab/internal/store"
	"github.com/tunelab/tunelab/internal/workflow"
)

// Server serves the lab API for projects on the local filesystem.
type Server struct {
	port      int
	overrides map[string]map[string]float64 // gate threshold overrides
	logger    state.TransitionLogger        // may be nil
}

// NewServer creates a Server.
func NewServer(port int, overrides map[string]map[string]float64) *Server {
	return &Server{port: port, overrides: overrides}
}

// SetLogger attaches the event log mirror used for transitions.
func (s *Server) SetLogger(l state.TransitionLogger) {
	s.logger = l
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/workflow", s.handleWorkflow)
	mux.HandleFunc("GET /api/state", s.handleGetState)
	mux.HandleFunc("PUT /api/state", s.handlePutState)
	mux.HandleFunc("GET /api/next", s.handleNextAction)
	mux.HandleFunc("POST /api/gates/{gate}/check", s.handleGateCheck)
	mux.HandleFunc("POST /api/steps/{step}/start", s.handleStart)
	mux.HandleFunc("POST /api/steps/{step}/complete", s.handleComplete)
	mux.HandleFunc("POST /api/steps/{step}/skip", s.handleSkip)
	mux.HandleFunc("POST /api/steps/{step}/review", s.handleReview)
	mux.HandleFunc("POST /api/steps/{step}/override", s.handleOverride)
	mux.HandleFunc("GET /api/steps/{step}/brief", s.handleBrief)
	mux.HandleFunc("GET /api/manifest", s.handleGetManifest)
	mux.HandleFunc("PUT /api/manifest", s.handlePutManifest)
	mux.HandleFunc("POST /api/manifest/datasets", s.handleRegisterDataset)
	mux.HandleFunc("POST /api/manifest/models", s.handleRegisterModel)
	mux.HandleFunc("GET /api/training-status", s.handleTrainingStatus)

	return cors.Default().Handler(mux)
}

// Start runs the server on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	log.Printf("lab API listening on http://%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// machineFor builds the per-request store/evaluator/machine trio.
func (s *Server) machineFor(root string) (*state.Machine, *store.Store) {
	st := store.NewStore(root)
	eval := gates.NewEvaluator(st.Root())
	eval.SetOverrides(s.overrides)
	m := state.NewMachine(st, eval)
	if s.logger != nil {
		m.SetLogger(s.logger)
	}
	return m, st
}

// projectRoot extracts and checks the ?project= query parameter.
func projectRoot(r *http.Request) (string, error) {
	root := r.URL.Query().Get("project")
	if root == "" {
		return "", fmt.Errorf("%w: missing project parameter", errBadRequest)
	}
	if _, err := os.Stat(root); err != nil {
		return "", fmt.Errorf("project path %s: %w", root, store.ErrNotFound)
	}
	return root, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, workflow.ErrNotFound),
		errors.Is(err, gates.ErrUnknownGate):
		status = http.StatusNotFound
	case errors.Is(err, state.ErrPrecedence),
		errors.Is(err, state.ErrInvalidTransition),
		errors.Is(err, store.ErrStale):
		status = http.StatusConflict
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

var errBadRequest = fmt.Errorf("bad request")

// decodeBody parses an optional JSON request body. An empty body leaves v
// at its zero value.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
