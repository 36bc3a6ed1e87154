// Package httpapi exposes the engine's operations over HTTP. It is a thin
// boundary: decode, call the engine, encode; all policy lives below it.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/slatehq/slate/pkg/engine"
	"github.com/slatehq/slate/pkg/errmodel"
	"github.com/slatehq/slate/pkg/workspace"
)

// Server serves the workspace API.
type Server struct {
	eng *engine.Engine
	log zerolog.Logger
}

// New constructs a Server over an engine.
func New(eng *engine.Engine, log zerolog.Logger) *Server {
	return &Server{eng: eng, log: log}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/workspaces/{id}/state", s.handleState)
	mux.HandleFunc("GET /v1/workspaces/{id}/events", s.handleListEvents)
	mux.HandleFunc("POST /v1/workspaces/{id}/events", s.handleAppend)
	mux.HandleFunc("POST /v1/workspaces/{id}/revert", s.handleRevert)
	return otelhttp.NewHandler(mux, "httpapi")
}

type stateResponse struct {
	Version int64           `json:"version"`
	State   workspace.State `json:"state"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("id")
	state, head, err := s.eng.LoadState(r.Context(), workspaceID)
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Version: head, State: state})
}

type listEventsResponse struct {
	Events []workspace.Event `json:"events"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("id")
	var after int64
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			errmodel.WriteHTTP(w, r, errmodel.Validation("bad_after", "after must be a non-negative integer", nil))
			return
		}
		after = n
	}
	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errmodel.WriteHTTP(w, r, errmodel.Validation("bad_limit", "limit must be a non-negative integer", nil))
			return
		}
		limit = n
	}
	events, err := s.eng.ListEvents(r.Context(), workspaceID, after, limit)
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listEventsResponse{Events: events})
}

type appendRequest struct {
	Type                string          `json:"type"`
	Payload             json.RawMessage `json:"payload"`
	AuthorID            string          `json:"authorId"`
	AuthorName          *string         `json:"authorName"`
	ExpectedBaseVersion int64           `json:"expectedBaseVersion"`
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("id")
	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errmodel.WriteHTTP(w, r, errmodel.Validation("bad_request", "invalid JSON body", nil))
		return
	}
	if req.AuthorID == "" {
		errmodel.WriteHTTP(w, r, errmodel.Validation("missing_author", "authorId is required", nil))
		return
	}
	res, err := s.eng.AppendEvent(r.Context(), workspaceID, engine.AppendInput{
		Type:                workspace.EventType(req.Type),
		Payload:             req.Payload,
		AuthorID:            req.AuthorID,
		AuthorName:          req.AuthorName,
		ExpectedBaseVersion: req.ExpectedBaseVersion,
	})
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	if res.Conflicted {
		// "Someone else changed this workspace, please retry."
		errmodel.WriteHTTP(w, r, errmodel.Conflict("workspace changed concurrently, reload and retry", map[string]any{
			"workspace_id":    workspaceID,
			"current_version": res.Version,
		}))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type revertRequest struct {
	TargetVersion int64 `json:"targetVersion"`
}

type revertResponse struct {
	DeletedCount int `json:"deletedCount"`
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("id")
	var req revertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errmodel.WriteHTTP(w, r, errmodel.Validation("bad_request", "invalid JSON body", nil))
		return
	}
	n, err := s.eng.RevertToVersion(r.Context(), workspaceID, req.TargetVersion)
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, revertResponse{DeletedCount: n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
