package engine

import (
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/slatehq/slate/pkg/errmodel"
	"github.com/slatehq/slate/pkg/workspace"
)

// payloadSchemas pins the minimal wire contract per event type. The schemas
// check envelope shape and required keys only; item data stays opaque.
var payloadSchemas = map[workspace.EventType]string{
	workspace.EventWorkspaceCreated:      `{"type":"object","required":["title"],"properties":{"title":{"type":"string"}}}`,
	workspace.EventWorkspaceTitleUpdated: `{"type":"object","required":["title"],"properties":{"title":{"type":"string"}}}`,
	workspace.EventItemCreated:           `{"type":"object","required":["item"],"properties":{"item":{"type":"object","required":["id","type"]}}}`,
	workspace.EventItemUpdated:           `{"type":"object","required":["id","changes"],"properties":{"id":{"type":"string"},"changes":{"type":"object"}}}`,
	workspace.EventItemDeleted:           `{"type":"object","required":["id"],"properties":{"id":{"type":"string"}}}`,
	workspace.EventBulkItemsCreated:      `{"type":"object","required":["items"],"properties":{"items":{"type":"array","items":{"type":"object","required":["id","type"]}}}}`,
	workspace.EventBulkItemsUpdated:      `{"type":"object"}`,
	workspace.EventItemMovedToFolder:     `{"type":"object","required":["itemId"],"properties":{"itemId":{"type":"string"},"folderId":{"type":["string","null"]}}}`,
	workspace.EventItemsMovedToFolder:    `{"type":"object","required":["itemIds"],"properties":{"itemIds":{"type":"array","items":{"type":"string"}},"folderId":{"type":["string","null"]}}}`,
	workspace.EventFolderCreatedWithItems: `{"type":"object","required":["folder","itemIds"],"properties":{"folder":{"type":"object","required":["id","type"]},"itemIds":{"type":"array","items":{"type":"string"}}}}`,
	workspace.EventWorkspaceSnapshot:      `{"type":"object","required":["items"],"properties":{"items":{"type":"array"}}}`,
	workspace.EventFolderCreated:          `{"type":"object"}`,
	workspace.EventFolderUpdated:          `{"type":"object"}`,
	workspace.EventFolderDeleted:          `{"type":"object","required":["id"],"properties":{"id":{"type":"string"}}}`,
}

var (
	compileOnce sync.Once
	compiled    map[workspace.EventType]*jsonschema.Schema
	compileErr  error
)

func compiledSchemas() (map[workspace.EventType]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[workspace.EventType]*jsonschema.Schema, len(payloadSchemas))
		for typ, src := range payloadSchemas {
			c := jsonschema.NewCompiler()
			var doc any
			if err := json.Unmarshal([]byte(src), &doc); err != nil {
				compileErr = fmt.Errorf("schema for %s: %w", typ, err)
				return
			}
			url := fmt.Sprintf("mem://%s.json", typ)
			if err := c.AddResource(url, doc); err != nil {
				compileErr = fmt.Errorf("schema for %s: %w", typ, err)
				return
			}
			sch, err := c.Compile(url)
			if err != nil {
				compileErr = fmt.Errorf("schema for %s: %w", typ, err)
				return
			}
			compiled[typ] = sch
		}
	})
	return compiled, compileErr
}

// ValidatePayload checks an event payload against the wire contract for its
// type before anything is written. Unknown event types are rejected outright:
// the reducer's type set is closed and every producer goes through this
// boundary.
func ValidatePayload(typ workspace.EventType, payload json.RawMessage) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return errmodel.System("schema_compile", "payload schema compilation failed", nil, err)
	}
	sch, ok := schemas[typ]
	if !ok {
		return errmodel.Validation("unknown_event_type", "unknown event type", map[string]any{"type": string(typ)})
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return errmodel.Validation("bad_payload", "payload is not valid JSON", map[string]any{"type": string(typ)})
	}
	if err := sch.Validate(v); err != nil {
		return errmodel.Validation("bad_payload", err.Error(), map[string]any{"type": string(typ)})
	}
	return nil
}
