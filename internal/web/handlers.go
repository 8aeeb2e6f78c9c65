package web

import (
	"fmt"
	"net/http"

	"github.com/tunelab/tunelab/internal/brief"
	"github.com/tunelab/tunelab/internal/project"
	"github.com/tunelab/tunelab/internal/state"
	"github.com/tunelab/tunelab/internal/store"
	"github.com/tunelab/tunelab/internal/workflow"
)

// ---- request bodies ----

type startRequest struct {
	Actor string `json:"actor"`
}

type completeRequest struct {
	Outputs []string `json:"outputs,omitempty"`
	Actor   string   `json:"actor"`
}

type skipRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

type reviewRequest struct {
	Reviewer string `json:"reviewer"`
	Approved bool   `json:"approved"`
	Comments string `json:"comments,omitempty"`
}

type overrideRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

func actorOrUser(a string) string {
	if a == "" {
		return store.ActorUser
	}
	return a
}

// ---- catalogue ----

type workflowBody struct {
	Phases []workflow.Phase `json:"phases"`
	Steps  []workflow.Step  `json:"steps"`
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, workflowBody{Phases: workflow.Phases(), Steps: workflow.All()})
}

// ---- state ----

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ws, err := store.NewStore(root).Get()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var ws store.WorkflowState
	if err := decodeBody(r, &ws); err != nil {
		writeError(w, err)
		return
	}
	if err := store.NewStore(root).Put(&ws); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &ws)
}

func (s *Server) handleNextAction(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ws, err := store.NewStore(root).Get()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state.NextAction(ws))
}

// ---- gates ----

func (s *Server) handleGateCheck(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	m, _ := s.machineFor(root)
	result, err := m.CheckGate(r.PathValue("gate"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ---- step transitions ----

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body startRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, _ := s.machineFor(root)
	ws, err := m.Start(r.PathValue("step"), actorOrUser(body.Actor))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

type completeBody struct {
	State *store.WorkflowState `json:"state"`
	Gate  interface{}          `json:"gate,omitempty"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body completeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, _ := s.machineFor(root)
	ws, result, err := m.Complete(r.PathValue("step"), body.Outputs, actorOrUser(body.Actor))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := completeBody{State: ws}
	if result != nil {
		resp.Gate = result
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body skipRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, _ := s.machineFor(root)
	ws, err := m.Skip(r.PathValue("step"), body.Reason, actorOrUser(body.Actor))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body reviewRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, _ := s.machineFor(root)
	ws, err := m.RecordReview(r.PathValue("step"), store.ExpertReview{
		Reviewer: body.Reviewer,
		Approved: body.Approved,
		Comments: body.Comments,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body overrideRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, _ := s.machineFor(root)
	ws, err := m.Override(r.PathValue("step"), body.Reason, actorOrUser(body.Actor))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

type briefBody struct {
	Step  string `json:"step"`
	Brief string `json:"brief"`
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stepID := r.PathValue("step")
	if _, err := workflow.Lookup(stepID); err != nil {
		writeError(w, err)
		return
	}
	text, err := brief.Build(root, stepID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, briefBody{Step: stepID, Brief: text})
}

// ---- documents ----

func (s *Server) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := project.ReadManifest(root)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handlePutManifest(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var m project.Manifest
	if err := decodeBody(r, &m); err != nil {
		writeError(w, err)
		return
	}
	if err := project.WriteManifest(root, &m); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &m)
}

func (s *Server) handleRegisterDataset(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var d project.Dataset
	if err := decodeBody(r, &d); err != nil {
		writeError(w, err)
		return
	}
	if d.Path == "" {
		writeError(w, fmt.Errorf("%w: dataset path is required", errBadRequest))
		return
	}
	m, err := project.RegisterDataset(root, d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRegisterModel(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var mod project.Model
	if err := decodeBody(r, &mod); err != nil {
		writeError(w, err)
		return
	}
	if mod.Path == "" {
		writeError(w, fmt.Errorf("%w: model path is required", errBadRequest))
		return
	}
	m, err := project.RegisterModel(root, mod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleTrainingStatus(w http.ResponseWriter, r *http.Request) {
	root, err := projectRoot(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ts, err := project.ReadTrainingStatus(root)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}
