// Package engine wires the pure reducer to the durable event store: it loads
// state by replaying snapshot+tail, appends events under optimistic
// concurrency control, reverts by truncating the log, and keeps replay cost
// bounded with best-effort snapshots.
package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/slatehq/slate/pkg/errmodel"
	"github.com/slatehq/slate/pkg/store"
	"github.com/slatehq/slate/pkg/workspace"
)

// DefaultSnapshotEvery is the event count between snapshots when none is
// configured.
const DefaultSnapshotEvery = 50

// Engine exposes the core operations every collaborator goes through. There is
// no secondary write path: interactive routes, AI tools, and workflow steps
// all append via AppendEvent.
type Engine struct {
	st            store.EventStore
	snapshotEvery int64
	log           zerolog.Logger

	snapshots sync.WaitGroup
}

// Option configures the Engine at construction time.
type Option func(*Engine)

// WithSnapshotEvery sets the snapshot threshold in events. n <= 0 disables
// automatic snapshotting.
func WithSnapshotEvery(n int64) Option {
	return func(e *Engine) { e.snapshotEvery = n }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New constructs an Engine over an event store.
func New(st store.EventStore, opts ...Option) *Engine {
	e := &Engine{st: st, snapshotEvery: DefaultSnapshotEvery, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AppendInput describes one event to append on behalf of an author.
type AppendInput struct {
	Type                workspace.EventType
	Payload             json.RawMessage
	AuthorID            string
	AuthorName          *string
	ExpectedBaseVersion int64
}

// AppendResult reports the outcome of an append attempt. When Conflicted is
// true nothing was written and Version holds the head the caller lost to;
// reload state and retry the whole logical operation.
type AppendResult struct {
	Version    int64 `json:"version"`
	Conflicted bool  `json:"conflicted"`
}

// AppendEvent validates and appends one event under optimistic concurrency
// control. A conflict is a result, not an error. On success a snapshot check
// runs in the background; its outcome never affects the append.
func (e *Engine) AppendEvent(ctx context.Context, workspaceID string, in AppendInput) (AppendResult, error) {
	tr := otel.Tracer("engine/workspace")
	ctx, span := tr.Start(ctx, "Engine.AppendEvent", trace.WithAttributes(
		attribute.String("workspace.id", workspaceID),
		attribute.String("event.type", string(in.Type)),
		attribute.Int64("event.base_version", in.ExpectedBaseVersion),
	))
	defer span.End()

	if workspaceID == "" {
		return AppendResult{}, errmodel.Validation("missing_workspace", "workspaceID is empty", nil)
	}
	if in.ExpectedBaseVersion < 0 {
		return AppendResult{}, errmodel.Validation("bad_base_version", "expectedBaseVersion must be >= 0", map[string]any{
			"workspace_id": workspaceID, "base_version": in.ExpectedBaseVersion,
		})
	}
	if err := ValidatePayload(in.Type, in.Payload); err != nil {
		return AppendResult{}, err
	}

	rec := store.EventRecord{
		EventID:     uuid.NewString(),
		WorkspaceID: workspaceID,
		Type:        string(in.Type),
		Payload:     in.Payload,
		TimestampMS: time.Now().UnixMilli(),
		AuthorID:    in.AuthorID,
		AuthorName:  in.AuthorName,
	}
	stored, conflicted, err := e.st.AppendEvent(ctx, rec, in.ExpectedBaseVersion)
	if err != nil {
		span.RecordError(err)
		return AppendResult{}, errmodel.System("append_failed", "event append failed", map[string]any{
			"workspace_id": workspaceID, "event_id": rec.EventID, "attempted_version": in.ExpectedBaseVersion + 1,
		}, err)
	}
	if conflicted {
		head, herr := e.st.Head(ctx, workspaceID)
		if herr != nil {
			head = 0
		}
		e.log.Debug().Str("workspace_id", workspaceID).Int64("base_version", in.ExpectedBaseVersion).
			Int64("head", head).Msg("append lost concurrency race")
		return AppendResult{Version: head, Conflicted: true}, nil
	}

	if e.snapshotEvery > 0 && in.Type != workspace.EventWorkspaceSnapshot {
		e.snapshots.Add(1)
		go func(ctx context.Context) {
			defer e.snapshots.Done()
			if err := e.CheckAndCreateSnapshot(ctx, workspaceID); err != nil {
				// Best effort: a missed snapshot only costs replay time.
				e.log.Warn().Err(err).Str("workspace_id", workspaceID).Msg("snapshot check failed")
			}
		}(context.WithoutCancel(ctx))
	}
	return AppendResult{Version: stored.Version, Conflicted: false}, nil
}

// LoadState replays the latest snapshot plus the events after it and returns
// the derived state with the workspace's head version. This is the single read
// path; it always reflects the last committed append.
func (e *Engine) LoadState(ctx context.Context, workspaceID string) (workspace.State, int64, error) {
	tr := otel.Tracer("engine/workspace")
	ctx, span := tr.Start(ctx, "Engine.LoadState", trace.WithAttributes(
		attribute.String("workspace.id", workspaceID),
	))
	defer span.End()

	snapVersion, err := e.st.LatestVersionOfType(ctx, workspaceID, string(workspace.EventWorkspaceSnapshot))
	if err != nil {
		span.RecordError(err)
		return workspace.State{}, 0, errmodel.System("load_failed", "snapshot lookup failed", map[string]any{"workspace_id": workspaceID}, err)
	}
	var after int64
	if snapVersion > 0 {
		// Include the snapshot event itself; the reducer folds it natively.
		after = snapVersion - 1
	}
	recs, err := e.st.ListEvents(ctx, workspaceID, after, 0)
	if err != nil {
		span.RecordError(err)
		return workspace.State{}, 0, errmodel.System("load_failed", "event list failed", map[string]any{"workspace_id": workspaceID}, err)
	}
	events := make([]workspace.Event, 0, len(recs))
	for _, r := range recs {
		events = append(events, recordToEvent(r))
	}
	state := workspace.Replay(events, workspace.NewState(workspaceID))
	var head int64
	if len(recs) > 0 {
		head = recs[len(recs)-1].Version
	}
	span.SetAttributes(attribute.Int64("workspace.head", head))
	return state, head, nil
}

// ListEvents exposes the raw log tail for history views and diagnostics.
func (e *Engine) ListEvents(ctx context.Context, workspaceID string, afterVersion int64, limit int) ([]workspace.Event, error) {
	recs, err := e.st.ListEvents(ctx, workspaceID, afterVersion, limit)
	if err != nil {
		return nil, errmodel.System("list_failed", "event list failed", map[string]any{"workspace_id": workspaceID}, err)
	}
	events := make([]workspace.Event, 0, len(recs))
	for _, r := range recs {
		events = append(events, recordToEvent(r))
	}
	return events, nil
}

// RevertToVersion destructively truncates the log: every event with
// version > targetVersion is deleted in one transaction. There is no redo.
func (e *Engine) RevertToVersion(ctx context.Context, workspaceID string, targetVersion int64) (int, error) {
	tr := otel.Tracer("engine/workspace")
	ctx, span := tr.Start(ctx, "Engine.RevertToVersion", trace.WithAttributes(
		attribute.String("workspace.id", workspaceID),
		attribute.Int64("revert.target_version", targetVersion),
	))
	defer span.End()

	if targetVersion < 1 {
		// Version 1 is always the creation event; the log never shrinks past it.
		return 0, errmodel.Validation("below_floor", "cannot revert below version 1", map[string]any{
			"workspace_id": workspaceID, "target_version": targetVersion,
		})
	}
	n, err := e.st.DeleteAfter(ctx, workspaceID, targetVersion)
	if err != nil {
		span.RecordError(err)
		return 0, errmodel.System("revert_failed", "log truncation failed", map[string]any{
			"workspace_id": workspaceID, "target_version": targetVersion,
		}, err)
	}
	e.log.Info().Str("workspace_id", workspaceID).Int64("target_version", targetVersion).
		Int("deleted", n).Msg("workspace reverted")
	return n, nil
}

// CheckAndCreateSnapshot appends a WORKSPACE_SNAPSHOT event if the tail since
// the last snapshot has grown past the threshold. It goes through the same
// optimistic append as everything else; losing that race is harmless and the
// next threshold crossing will try again.
func (e *Engine) CheckAndCreateSnapshot(ctx context.Context, workspaceID string) error {
	if e.snapshotEvery <= 0 {
		return nil
	}
	snapVersion, err := e.st.LatestVersionOfType(ctx, workspaceID, string(workspace.EventWorkspaceSnapshot))
	if err != nil {
		return err
	}
	head, err := e.st.Head(ctx, workspaceID)
	if err != nil {
		return err
	}
	if head-snapVersion < e.snapshotEvery {
		return nil
	}

	state, loadedHead, err := e.LoadState(ctx, workspaceID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	rec := store.EventRecord{
		EventID:     uuid.NewString(),
		WorkspaceID: workspaceID,
		Type:        string(workspace.EventWorkspaceSnapshot),
		Payload:     payload,
		TimestampMS: time.Now().UnixMilli(),
		AuthorID:    "system",
	}
	_, conflicted, err := e.st.AppendEvent(ctx, rec, loadedHead)
	if err != nil {
		return err
	}
	if conflicted {
		e.log.Debug().Str("workspace_id", workspaceID).Int64("head", loadedHead).Msg("snapshot lost race, skipping")
		return nil
	}
	e.log.Info().Str("workspace_id", workspaceID).Int64("upto_version", loadedHead).Msg("snapshot created")
	return nil
}

// Wait blocks until background snapshot checks in flight have finished.
// Intended for shutdown and tests.
func (e *Engine) Wait() { e.snapshots.Wait() }

func recordToEvent(r store.EventRecord) workspace.Event {
	return workspace.Event{
		ID:          r.EventID,
		WorkspaceID: r.WorkspaceID,
		Version:     r.Version,
		Type:        workspace.EventType(r.Type),
		Payload:     r.Payload,
		Timestamp:   r.TimestampMS,
		UserID:      r.AuthorID,
		UserName:    r.AuthorName,
	}
}
