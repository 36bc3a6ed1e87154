package engine

import (
	"encoding/json"
	"testing"

	"github.com/slatehq/slate/pkg/workspace"
)

func TestValidatePayload(t *testing.T) {
	cases := []struct {
		name    string
		typ     workspace.EventType
		payload string
		ok      bool
	}{
		{"workspace created", workspace.EventWorkspaceCreated, `{"title":"Biology"}`, true},
		{"workspace created missing title", workspace.EventWorkspaceCreated, `{}`, false},
		{"item created", workspace.EventItemCreated, `{"item":{"id":"a","type":"note"}}`, true},
		{"item created bare", workspace.EventItemCreated, `{"item":{}}`, false},
		{"item updated", workspace.EventItemUpdated, `{"id":"a","changes":{"data":{"ocrStatus":"completed"}}}`, true},
		{"item updated changes not object", workspace.EventItemUpdated, `{"id":"a","changes":3}`, false},
		{"move to root", workspace.EventItemMovedToFolder, `{"itemId":"a","folderId":null}`, true},
		{"bulk updated layout-only", workspace.EventBulkItemsUpdated, `{"layoutUpdates":[{"id":"a","layout":null}]}`, true},
		{"snapshot", workspace.EventWorkspaceSnapshot, `{"workspaceId":"w","globalTitle":"","items":[]}`, true},
		{"not json", workspace.EventItemDeleted, `{`, false},
		{"unknown type", "ITEM_EXPLODED", `{}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayload(tc.typ, json.RawMessage(tc.payload))
			if tc.ok && err != nil {
				t.Fatalf("want ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("want error, got nil")
			}
		})
	}
}
