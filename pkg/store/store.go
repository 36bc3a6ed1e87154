// Package store defines persistence contracts for the append-only workspace
// event log. Implementations must provide identical semantics across backends
// to keep replay deterministic and portable.
package store

import (
	"context"
	"encoding/json"
)

// EventRecord is the persisted representation of one workspace event.
type EventRecord struct {
	EventID     string
	WorkspaceID string
	Version     int64
	Type        string
	Payload     json.RawMessage
	TimestampMS int64
	AuthorID    string
	AuthorName  *string
}

// EventStore persists and reads per-workspace event logs.
//
// AppendEvent is the single write path. It atomically compares the workspace's
// head version with expectedBaseVersion and either inserts the record at
// expectedBaseVersion+1 or reports a conflict without writing. Two concurrent
// appends with the same base version must yield exactly one success; the
// second caller gets conflicted=true, never an error and never a second row.
type EventStore interface {
	// AppendEvent returns the stored record (with Version assigned) on
	// success. conflicted=true means the head moved and nothing was written.
	AppendEvent(ctx context.Context, rec EventRecord, expectedBaseVersion int64) (EventRecord, bool, error)

	// ListEvents returns events with version > afterVersion in ascending
	// version order. limit <= 0 means no limit.
	ListEvents(ctx context.Context, workspaceID string, afterVersion int64, limit int) ([]EventRecord, error)

	// Head returns the workspace's current head version, 0 if no events exist.
	Head(ctx context.Context, workspaceID string) (int64, error)

	// LatestVersionOfType returns the highest version among events of the
	// given type, 0 if none. Used to locate the most recent snapshot event.
	LatestVersionOfType(ctx context.Context, workspaceID, eventType string) (int64, error)

	// DeleteAfter transactionally removes every event with version > version
	// and returns the number deleted. Partial truncation is never observable.
	DeleteAfter(ctx context.Context, workspaceID string, version int64) (int, error)
}
