// Package mcpserver exposes the engine's operations as MCP tools so AI
// tooling reads and writes workspaces through the same append path as every
// other caller.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	jsonschema "github.com/google/jsonschema-go/jsonschema"
	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/slatehq/slate/pkg/engine"
	"github.com/slatehq/slate/pkg/workspace"
)

// Server wraps an MCP server over the engine.
type Server struct {
	eng *engine.Engine
	srv *mcp.Server
}

type readStateInput struct {
	WorkspaceID string `json:"workspaceId"`
}

type readStateOutput struct {
	Version int64           `json:"version"`
	State   workspace.State `json:"state"`
}

type appendEventInput struct {
	WorkspaceID         string         `json:"workspaceId"`
	Type                string         `json:"type"`
	Payload             map[string]any `json:"payload"`
	AuthorID            string         `json:"authorId"`
	AuthorName          *string        `json:"authorName,omitempty"`
	ExpectedBaseVersion int64          `json:"expectedBaseVersion"`
}

type appendEventOutput struct {
	Version    int64 `json:"version"`
	Conflicted bool  `json:"conflicted"`
}

type revertInput struct {
	WorkspaceID   string `json:"workspaceId"`
	TargetVersion int64  `json:"targetVersion"`
}

type revertOutput struct {
	DeletedCount int `json:"deletedCount"`
}

// New builds the MCP server and registers the workspace tools.
func New(eng *engine.Engine, version string) (*Server, error) {
	srv := mcp.NewServer(&mcp.Implementation{Name: "slate", Version: version}, nil)
	s := &Server{eng: eng, srv: srv}

	readSchema, err := jsonschema.For[readStateInput](nil)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: read_workspace_state schema: %w", err)
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "read_workspace_state",
		Description: "Replay a workspace's event log and return its current state and head version.",
		InputSchema: readSchema,
	}, s.readState)

	appendSchema, err := jsonschema.For[appendEventInput](nil)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: append_workspace_event schema: %w", err)
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "append_workspace_event",
		Description: "Append one event to a workspace log if expectedBaseVersion still matches the head. On conflict nothing is written; read the state again and retry.",
		InputSchema: appendSchema,
	}, s.appendEvent)

	revertSchema, err := jsonschema.For[revertInput](nil)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: revert_workspace schema: %w", err)
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "revert_workspace",
		Description: "Delete every event above targetVersion. Destructive; there is no redo.",
		InputSchema: revertSchema,
	}, s.revert)

	return s, nil
}

func (s *Server) readState(ctx context.Context, _ *mcp.CallToolRequest, in readStateInput) (*mcp.CallToolResult, readStateOutput, error) {
	state, head, err := s.eng.LoadState(ctx, in.WorkspaceID)
	if err != nil {
		return nil, readStateOutput{}, err
	}
	return nil, readStateOutput{Version: head, State: state}, nil
}

func (s *Server) appendEvent(ctx context.Context, _ *mcp.CallToolRequest, in appendEventInput) (*mcp.CallToolResult, appendEventOutput, error) {
	payload, err := json.Marshal(in.Payload)
	if err != nil {
		return nil, appendEventOutput{}, err
	}
	authorID := in.AuthorID
	if authorID == "" {
		authorID = "mcp"
	}
	res, err := s.eng.AppendEvent(ctx, in.WorkspaceID, engine.AppendInput{
		Type:                workspace.EventType(in.Type),
		Payload:             payload,
		AuthorID:            authorID,
		AuthorName:          in.AuthorName,
		ExpectedBaseVersion: in.ExpectedBaseVersion,
	})
	if err != nil {
		return nil, appendEventOutput{}, err
	}
	return nil, appendEventOutput{Version: res.Version, Conflicted: res.Conflicted}, nil
}

func (s *Server) revert(ctx context.Context, _ *mcp.CallToolRequest, in revertInput) (*mcp.CallToolResult, revertOutput, error) {
	n, err := s.eng.RevertToVersion(ctx, in.WorkspaceID, in.TargetVersion)
	if err != nil {
		return nil, revertOutput{}, err
	}
	return nil, revertOutput{DeletedCount: n}, nil
}

// Run serves MCP over stdio until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.srv.Run(ctx, &mcp.StdioTransport{})
}
