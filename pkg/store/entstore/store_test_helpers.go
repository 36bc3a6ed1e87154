package entstore

import (
	"encoding/json"

	"github.com/slatehq/slate/pkg/store"
)

func rec(id, workspaceID, typ string, payload json.RawMessage) store.EventRecord {
	return store.EventRecord{
		EventID:     id,
		WorkspaceID: workspaceID,
		Type:        typ,
		Payload:     payload,
		TimestampMS: 1700000000000,
		AuthorID:    "u1",
	}
}
