package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/TencentBlueKing/bamboo-engine-sub001"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/presentation/graph"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/token"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/definition"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	rbgraph "github.com/TencentBlueKing/bamboo-engine-sub001/pkg/graph"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps request payloads.
const maxBodyBytes = 4 << 20

var errBadRequest = errors.New("invalid request body")

// Engine defines the compiler operations served over HTTP.
type Engine interface {
	CompileTree(ctx context.Context, tree *domain.Tree) (*domain.Pipeline, error)
	CompileDefinition(ctx context.Context, def *definition.Definition) (*domain.Pipeline, error)
	Validate(ctx context.Context, tree *domain.Tree) error
	Tokens(ctx context.Context, tree *domain.Tree) (token.Result, error)
	AllowedStartNodes(ctx context.Context, tree *domain.Tree) ([]string, error)
	SkippedNodes(ctx context.Context, tree *domain.Tree, startNodeID string) ([]string, error)
	RollbackGraph(ctx context.Context, tree *domain.Tree, startID, targetID string) (*rbgraph.RollbackGraph, []string, error)
	Load(ctx context.Context, pipelineID string) (*domain.Pipeline, error)
}

// Server holds the handlers.
type Server struct {
	Engine Engine
	Logger *slog.Logger
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Server{Engine: engine, Logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.Validate)
		r.Post("/token", s.Token)
		r.Post("/start-nodes", s.StartNodes)
		r.Post("/skipped-nodes", s.SkippedNodes)
		r.Post("/rollback-graph", s.RollbackGraph)
		r.Post("/definitions", s.CompileDefinition)
		r.Post("/pipelines", s.CompilePipeline)
		r.Get("/pipelines/{id}", s.GetPipeline)
		r.Get("/pipelines/{id}/graph", s.GetPipelineGraph)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TreeRequest addresses a tree either inline or by stored pipeline id.
type TreeRequest struct {
	Tree         *domain.Tree `json:"tree,omitempty"`
	PipelineID   string       `json:"pipeline_id,omitempty"`
	StartNodeID  string       `json:"start_node_id,omitempty"`
	TargetNodeID string       `json:"target_node_id,omitempty"`
}

// TokenResponse is the body of POST /v1/token.
type TokenResponse struct {
	Tokens       domain.TokenMap `json:"tokens"`
	Unterminated []string        `json:"unterminated"`
}

// RollbackResponse is the body of POST /v1/rollback-graph.
type RollbackResponse struct {
	Nodes  []string    `json:"nodes"`
	Flows  [][2]string `json:"flows"`
	Others []string    `json:"others"`
}

// ErrorResponse carries the detail of a rejected request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	NodeID  string   `json:"node_id,omitempty"`
	Path    []string `json:"path,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

// Validate handles the POST /v1/validate request.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.tree(w, r, nil)
	if !ok {
		return
	}
	if err := s.Engine.Validate(r.Context(), tree); err != nil {
		s.writeError(w, "Validate", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"valid": true, "tree": tree})
}

// Token handles the POST /v1/token request.
func (s *Server) Token(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.tree(w, r, nil)
	if !ok {
		return
	}
	result, err := s.Engine.Tokens(r.Context(), tree)
	if err != nil {
		s.writeError(w, "Token", err)
		return
	}
	unterminated := result.Unterminated
	if unterminated == nil {
		unterminated = []string{}
	}
	s.writeJSON(w, http.StatusOK, TokenResponse{Tokens: result.Tokens, Unterminated: unterminated})
}

// StartNodes handles the POST /v1/start-nodes request.
func (s *Server) StartNodes(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.tree(w, r, nil)
	if !ok {
		return
	}
	ids, err := s.Engine.AllowedStartNodes(r.Context(), tree)
	if err != nil {
		s.writeError(w, "StartNodes", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"allowed": ids})
}

// SkippedNodes handles the POST /v1/skipped-nodes request.
func (s *Server) SkippedNodes(w http.ResponseWriter, r *http.Request) {
	var req TreeRequest
	tree, ok := s.tree(w, r, &req)
	if !ok {
		return
	}
	if req.StartNodeID == "" {
		s.writeError(w, "SkippedNodes", fmt.Errorf("%w: start_node_id is required", errBadRequest))
		return
	}
	ids, err := s.Engine.SkippedNodes(r.Context(), tree, req.StartNodeID)
	if err != nil {
		s.writeError(w, "SkippedNodes", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"skipped": ids})
}

// RollbackGraph handles the POST /v1/rollback-graph request.
func (s *Server) RollbackGraph(w http.ResponseWriter, r *http.Request) {
	var req TreeRequest
	tree, ok := s.tree(w, r, &req)
	if !ok {
		return
	}
	if req.StartNodeID == "" || req.TargetNodeID == "" {
		s.writeError(w, "RollbackGraph", fmt.Errorf("%w: start_node_id and target_node_id are required", errBadRequest))
		return
	}
	g, others, err := s.Engine.RollbackGraph(r.Context(), tree, req.StartNodeID, req.TargetNodeID)
	if err != nil {
		s.writeError(w, "RollbackGraph", err)
		return
	}
	view := g.AsView()
	s.writeJSON(w, http.StatusOK, RollbackResponse{Nodes: view.Nodes, Flows: view.Flows, Others: others})
}

// CompileDefinition handles the POST /v1/definitions request. The body is a
// YAML definition when the content type mentions yaml, JSON otherwise.
func (s *Server) CompileDefinition(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, "CompileDefinition", fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	format := definition.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = definition.FormatYAML
	}
	def, err := definition.Parse(body, format)
	if err != nil {
		s.writeError(w, "CompileDefinition", err)
		return
	}
	p, err := s.Engine.CompileDefinition(r.Context(), def)
	if err != nil {
		s.writeError(w, "CompileDefinition", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

// CompilePipeline handles the POST /v1/pipelines request.
func (s *Server) CompilePipeline(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.tree(w, r, nil)
	if !ok {
		return
	}
	p, err := s.Engine.CompileTree(r.Context(), tree)
	if err != nil {
		s.writeError(w, "CompilePipeline", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

// GetPipeline handles the GET /v1/pipelines/{id} request.
func (s *Server) GetPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := s.Engine.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "GetPipeline", err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// GetPipelineGraph handles the GET /v1/pipelines/{id}/graph request. The
// Mermaid output highlights the allowed start nodes and, with ?current=,
// one node of interest.
func (s *Server) GetPipelineGraph(w http.ResponseWriter, r *http.Request) {
	p, err := s.Engine.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "GetPipelineGraph", err)
		return
	}
	allowed, err := s.Engine.AllowedStartNodes(r.Context(), p.Tree)
	if err != nil {
		s.writeError(w, "GetPipelineGraph", err)
		return
	}
	overlay := &graph.GraphOverlay{AllowedStartNodes: allowed, CurrentNode: r.URL.Query().Get("current")}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, graph.GenerateMermaid(p.Tree, overlay)); err != nil {
		s.Logger.Error("GetPipelineGraph response write failed", "error", err)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "bamboo-http",
		"version": strings.TrimSpace(bamboo.Version),
	})
}

// tree decodes a TreeRequest into req (or a scratch value) and resolves its
// tree. It writes the error response itself and reports false on failure.
func (s *Server) tree(w http.ResponseWriter, r *http.Request, req *TreeRequest) (*domain.Tree, bool) {
	if req == nil {
		req = &TreeRequest{}
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(req); err != nil {
		s.writeError(w, "Decode", fmt.Errorf("%w: %w", errBadRequest, err))
		return nil, false
	}

	switch {
	case req.Tree != nil:
		return req.Tree, true
	case req.PipelineID != "":
		p, err := s.Engine.Load(r.Context(), req.PipelineID)
		if err != nil {
			s.writeError(w, "Load", err)
			return nil, false
		}
		return p.Tree, true
	default:
		s.writeError(w, "Decode", fmt.Errorf("%w: tree or pipeline_id is required", errBadRequest))
		return nil, false
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	resp := ErrorResponse{Error: err.Error()}

	var se *domain.StructuralError
	var ce *domain.CycleError
	var sp *domain.StartPositionInvalidError
	switch {
	case errors.As(err, &se):
		resp.Kind, resp.NodeID = se.Kind, se.NodeID
	case errors.As(err, &ce):
		resp.Kind, resp.Path = "cycle", ce.Path
	case errors.As(err, &sp):
		resp.NodeID, resp.Allowed = sp.NodeID, sp.Allowed
	}

	if status >= http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "error", err)
	} else {
		s.Logger.Warn(op+" rejected", "error", err, "status", status)
	}
	s.writeJSON(w, status, resp)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrTreeInvalid), errors.Is(err, domain.ErrUnknownNodeType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStartPositionInvalid):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPipelineNotFound), errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, definition.ErrInvalidDefinition):
		return http.StatusBadRequest
	case errors.Is(err, bamboo.ErrNoStore):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
