package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/synckit/synckit/internal/cache"
	"github.com/synckit/synckit/internal/dag"
	"github.com/synckit/synckit/internal/engine"
	"github.com/synckit/synckit/internal/nodes"
	"github.com/synckit/synckit/internal/repository"
	"github.com/synckit/synckit/internal/synckit"
)

// Server exposes the workflow engine over HTTP: node listing, document
// validation, synchronous execution, and run history.
type Server struct {
	registry *nodes.Registry
	store    cache.Store
	runs     repository.RunRepository
	opts     engine.Options
}

func NewServer(registry *nodes.Registry, store cache.Store, runs repository.RunRepository, opts engine.Options) *Server {
	return &Server{registry: registry, store: store, runs: runs, opts: opts}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))
	r.Route("/api", func(r chi.Router) {
		r.Get("/nodes", s.listNodes)
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/validate", s.validateWorkflow)
			r.Post("/execute", s.executeWorkflow)
		})
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.listRuns)
			r.Get("/{id}", s.getRun)
		})
	})
	return r
}

type nodeInfo struct {
	Type        string               `json:"type"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Inputs      []synckit.InputPort  `json:"inputs"`
	Outputs     []synckit.OutputPort `json:"outputs"`
}

func (s *Server) listNodes(w http.ResponseWriter, _ *http.Request) {
	caps := s.registry.List()
	infos := make([]nodeInfo, 0, len(caps))
	for _, c := range caps {
		infos = append(infos, nodeInfo{
			Type:        c.Type(),
			Description: c.Description(),
			Category:    c.Category(),
			Inputs:      c.Inputs(),
			Outputs:     c.Outputs(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": infos})
}

func (s *Server) validateWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.decodeWorkflow(w, r)
	if !ok {
		return
	}
	if _, err := dag.Build(wf, s.registry); err != nil {
		writeValidationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

type executeRequest struct {
	Workflow     json.RawMessage `json:"workflow"`
	WorkflowName string          `json:"workflow_name"`
	MaxWorkers   int             `json:"max_workers"`
	NoCache      bool            `json:"no_cache"`
}

func (s *Server) executeWorkflow(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	wf, err := synckit.ParseWorkflow(req.Workflow)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := s.opts
	if req.MaxWorkers > 0 {
		opts.MaxWorkers = req.MaxWorkers
	}
	if req.NoCache {
		opts.UseCache = false
	}

	exec := engine.New(s.registry, s.store, opts)
	result, err := exec.Execute(r.Context(), wf)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	name := req.WorkflowName
	if name == "" {
		// Unnamed API submissions still need a distinct run-history key.
		name = "adhoc-" + uuid.NewString()[:8]
	}
	if s.runs != nil {
		_ = s.runs.Create(r.Context(), synckit.NewRunRecord(name, result))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.List(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) decodeWorkflow(w http.ResponseWriter, r *http.Request) (*synckit.WorkflowDefinition, bool) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}
	wf, err := synckit.ParseWorkflow(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return wf, true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs dag.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"valid":  false,
			"errors": verrs,
		})
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
