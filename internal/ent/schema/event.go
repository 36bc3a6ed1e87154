package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Event holds the schema definition for one row of the append-only workspace
// log. Snapshots are ordinary rows with type WORKSPACE_SNAPSHOT; there is no
// second table.
type Event struct{ ent.Schema }

// Fields of the Event.
func (Event) Fields() []ent.Field {
	return []ent.Field{
		// External stable ID for traceability.
		field.String("event_id").NotEmpty().Unique(),
		field.String("workspace_id").NotEmpty(),
		// 1-based, contiguous per workspace. The unique (workspace_id, version)
		// index is what arbitrates concurrent appends.
		field.Int64("version").Positive(),
		field.String("type").NotEmpty(),
		// JSON payload; compatible with Postgres (JSONB) and SQLite (TEXT).
		field.JSON("payload", map[string]any{}).
			Optional(),
		// Producer-supplied wall clock, epoch milliseconds.
		field.Int64("ts_ms").NonNegative().Immutable(),
		field.String("author_id").NotEmpty(),
		field.String("author_name").Optional().Nillable(),
	}
}

// Indexes of the Event.
func (Event) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("workspace_id", "version").Unique(),
		index.Fields("workspace_id", "type"),
	}
}
