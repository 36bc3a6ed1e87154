package workspace

import (
	"encoding/json"
	"testing"
)

func TestBulkItemsUpdatedVariant(t *testing.T) {
	cases := []struct {
		name string
		json string
		want BulkUpdateKind
	}{
		{"empty", `{}`, BulkUpdateNone},
		{"delete", `{"deletedIds":["a"]}`, BulkUpdateDelete},
		{"add", `{"addedItems":[{"id":"a","type":"note"}]}`, BulkUpdateAdd},
		{"legacy replace", `{"items":[{"id":"a","type":"note"}]}`, BulkUpdateReplaceAll},
		{"layout", `{"layoutUpdates":[{"id":"a","layout":{"x":1,"y":2,"w":3,"h":4}}]}`, BulkUpdateLayout},
		// Priority: the first non-empty field in contract order wins.
		{"delete beats add", `{"deletedIds":["a"],"addedItems":[{"id":"b","type":"note"}]}`, BulkUpdateDelete},
		{"add beats legacy", `{"addedItems":[{"id":"b","type":"note"}],"items":[{"id":"c","type":"note"}]}`, BulkUpdateAdd},
		{"legacy beats layout", `{"items":[{"id":"c","type":"note"}],"layoutUpdates":[{"id":"a","layout":null}]}`, BulkUpdateReplaceAll},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p BulkItemsUpdatedPayload
			if err := json.Unmarshal([]byte(tc.json), &p); err != nil {
				t.Fatal(err)
			}
			if got := p.Variant(); got != tc.want {
				t.Fatalf("variant=%d want %d", got, tc.want)
			}
		})
	}
}

func TestEventJSONRoundTripKeepsNullUserName(t *testing.T) {
	e := Event{ID: "e1", WorkspaceID: "w", Version: 1, Type: EventWorkspaceCreated,
		Payload: json.RawMessage(`{"title":"t"}`), Timestamp: 123, UserID: "u"}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var got Event
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.UserName != nil {
		t.Fatalf("userName=%v want nil", got.UserName)
	}
	if got.Version != 1 || got.Type != EventWorkspaceCreated {
		t.Fatalf("got=%+v", got)
	}
}
