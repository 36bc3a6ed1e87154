package workspace

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
)

func ev(t *testing.T, version int64, typ EventType, payload any) Event {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return Event{
		ID:        fmt.Sprintf("e%d", version),
		Version:   version,
		Type:      typ,
		Payload:   b,
		Timestamp: 1700000000000 + version,
		UserID:    "u1",
	}
}

func strPtr(s string) *string { return &s }

// The worked example from the product brief: create, file into a folder,
// delete the folder, and check that children reparent instead of cascading.
func biologyEvents(t *testing.T) []Event {
	t.Helper()
	return []Event{
		ev(t, 1, EventWorkspaceCreated, TitlePayload{Title: "Biology"}),
		ev(t, 2, EventItemCreated, ItemCreatedPayload{Item: Item{ID: "A", Type: ItemNote, Name: "note A", Layout: &Layout{X: 1, Y: 2, W: 3, H: 4}}}),
		ev(t, 3, EventItemCreated, ItemCreatedPayload{Item: Item{ID: "F", Type: ItemFolder, Name: "folder F"}}),
		ev(t, 4, EventItemMovedToFolder, MoveToFolderPayload{ItemID: "A", FolderID: strPtr("F")}),
	}
}

func TestReplayBiologyScenario(t *testing.T) {
	s := Replay(biologyEvents(t), NewState("ws1"))
	if s.GlobalTitle != "Biology" {
		t.Fatalf("title=%q", s.GlobalTitle)
	}
	if len(s.Items) != 2 {
		t.Fatalf("items=%d want 2", len(s.Items))
	}
	a := s.Items[0]
	if a.ID != "A" || a.FolderID == nil || *a.FolderID != "F" {
		t.Fatalf("A=%+v want folderId=F", a)
	}
	if a.Layout != nil {
		t.Fatal("move must clear layout")
	}

	// Deleting the folder reparents A, never removes it.
	s = Reduce(s, ev(t, 5, EventItemDeleted, ItemDeletedPayload{ID: "F"}))
	if len(s.Items) != 1 {
		t.Fatalf("items=%d want 1", len(s.Items))
	}
	if s.Items[0].ID != "A" || s.Items[0].FolderID != nil || s.Items[0].Layout != nil {
		t.Fatalf("A after folder delete = %+v", s.Items[0])
	}
}

func TestReduceIsPure(t *testing.T) {
	events := biologyEvents(t)
	base := Replay(events[:3], NewState("ws1"))
	snapshotOfBase := Replay(events[:3], NewState("ws1"))

	_ = Reduce(base, ev(t, 4, EventItemDeleted, ItemDeletedPayload{ID: "A"}))
	_ = Reduce(base, ev(t, 4, EventItemUpdated, ItemUpdatedPayload{ID: "A", Changes: map[string]any{"name": "renamed"}}))

	if !reflect.DeepEqual(base, snapshotOfBase) {
		t.Fatal("Reduce mutated its input state")
	}
}

func TestReplayDeterminism(t *testing.T) {
	events := biologyEvents(t)
	first := Replay(events, NewState("ws1"))
	for i := 0; i < 5; i++ {
		if got := Replay(events, NewState("ws1")); !reflect.DeepEqual(first, got) {
			t.Fatalf("replay %d diverged", i)
		}
	}
}

func TestItemUpdatedDeepMergesDataOneLevel(t *testing.T) {
	s := Replay([]Event{
		ev(t, 1, EventWorkspaceCreated, TitlePayload{Title: "t"}),
		ev(t, 2, EventItemCreated, ItemCreatedPayload{Item: Item{
			ID: "p", Type: ItemPDF, Name: "paper.pdf",
			Data: map[string]any{
				"fileRef":     "files/paper.pdf",
				"textContent": "cached text",
				"meta":        map[string]any{"pages": float64(12)},
			},
		}}),
	}, NewState("ws1"))

	// A workflow step reports OCR status without clobbering siblings.
	s = Reduce(s, ev(t, 3, EventItemUpdated, ItemUpdatedPayload{
		ID:      "p",
		Changes: map[string]any{"data": map[string]any{"ocrStatus": "completed", "meta": map[string]any{"lang": "en"}}},
		Source:  "workflow",
	}))

	d := s.Items[0].Data
	if d["ocrStatus"] != "completed" {
		t.Fatalf("ocrStatus=%v", d["ocrStatus"])
	}
	if d["textContent"] != "cached text" {
		t.Fatal("untouched data keys must survive")
	}
	if d["fileRef"] != "files/paper.pdf" {
		t.Fatal("untouched data keys must survive")
	}
	// One level only: nested values replace wholesale.
	meta, _ := d["meta"].(map[string]any)
	if _, stillThere := meta["pages"]; stillThere {
		t.Fatal("nested maps must be replaced, not merged")
	}
	if meta["lang"] != "en" {
		t.Fatalf("meta=%v", meta)
	}
}

func TestItemUpdatedEnvelopeIsShallow(t *testing.T) {
	s := Replay([]Event{
		ev(t, 1, EventItemCreated, ItemCreatedPayload{Item: Item{ID: "a", Type: ItemNote, Name: "old"}}),
	}, NewState("ws1"))

	s = Reduce(s, ev(t, 2, EventItemUpdated, ItemUpdatedPayload{
		ID: "a",
		Changes: map[string]any{
			"name":   "new",
			"layout": map[string]any{"x": 1.0, "y": 2.0, "w": 3.0, "h": 4.0},
		},
	}))
	it := s.Items[0]
	if it.Name != "new" {
		t.Fatalf("name=%q", it.Name)
	}
	if it.Layout == nil || it.Layout.W != 3 {
		t.Fatalf("layout=%+v", it.Layout)
	}
	if it.LastModified != 1700000000002 {
		t.Fatalf("lastModified=%d", it.LastModified)
	}
}

func TestItemUpdatedMissingItemIsNoOp(t *testing.T) {
	s := Replay(biologyEvents(t), NewState("ws1"))
	got := Reduce(s, ev(t, 5, EventItemUpdated, ItemUpdatedPayload{ID: "ghost", Changes: map[string]any{"name": "boo"}}))
	if !reflect.DeepEqual(s, got) {
		t.Fatal("update of a missing item must be a silent no-op")
	}
	got = Reduce(s, ev(t, 5, EventItemDeleted, ItemDeletedPayload{ID: "ghost"}))
	if !reflect.DeepEqual(s, got) {
		t.Fatal("delete of a missing item must be a silent no-op")
	}
}

func TestBulkItemsUpdatedPriorityOrder(t *testing.T) {
	base := Replay([]Event{
		ev(t, 1, EventItemCreated, ItemCreatedPayload{Item: Item{ID: "a", Type: ItemNote, Name: "a"}}),
		ev(t, 2, EventItemCreated, ItemCreatedPayload{Item: Item{ID: "b", Type: ItemNote, Name: "b"}}),
	}, NewState("ws1"))

	// deletedIds wins over every other field present in the same payload.
	s := Reduce(base, ev(t, 3, EventBulkItemsUpdated, BulkItemsUpdatedPayload{
		DeletedIDs:    []string{"a"},
		AddedItems:    []Item{{ID: "c", Type: ItemNote}},
		LayoutUpdates: []LayoutUpdate{{ID: "b", Layout: &Layout{X: 9}}},
	}))
	if len(s.Items) != 1 || s.Items[0].ID != "b" {
		t.Fatalf("deletedIds priority: items=%+v", s.Items)
	}
	if s.Items[0].Layout != nil {
		t.Fatal("layoutUpdates must be ignored when deletedIds is present")
	}

	// addedItems beats the legacy items list.
	s = Reduce(base, ev(t, 3, EventBulkItemsUpdated, BulkItemsUpdatedPayload{
		AddedItems: []Item{{ID: "c", Type: ItemNote, Name: "c"}},
		Items:      []Item{{ID: "z", Type: ItemNote}},
	}))
	if len(s.Items) != 3 || s.Items[2].ID != "c" {
		t.Fatalf("addedItems priority: items=%+v", s.Items)
	}

	// Legacy full list replaces everything.
	s = Reduce(base, ev(t, 3, EventBulkItemsUpdated, BulkItemsUpdatedPayload{
		Items: []Item{{ID: "z", Type: ItemNote, Name: "z"}},
	}))
	if len(s.Items) != 1 || s.Items[0].ID != "z" {
		t.Fatalf("legacy replace: items=%+v", s.Items)
	}
	if s.Items[0].LastModified == 0 {
		t.Fatal("replaced items must be stamped with the event timestamp")
	}

	// Layout-only batch.
	s = Reduce(base, ev(t, 3, EventBulkItemsUpdated, BulkItemsUpdatedPayload{
		LayoutUpdates: []LayoutUpdate{{ID: "a", Layout: &Layout{X: 5, Y: 6, W: 7, H: 8}}},
	}))
	if s.Items[0].Layout == nil || s.Items[0].Layout.X != 5 {
		t.Fatalf("layout batch: %+v", s.Items[0].Layout)
	}

	// Empty payload is a no-op.
	s = Reduce(base, ev(t, 3, EventBulkItemsUpdated, BulkItemsUpdatedPayload{}))
	if !reflect.DeepEqual(base, s) {
		t.Fatal("empty bulk update must be a no-op")
	}
}

func TestBulkItemsCreatedStampsTimestamp(t *testing.T) {
	s := Reduce(NewState("ws1"), ev(t, 1, EventBulkItemsCreated, BulkItemsCreatedPayload{
		Items: []Item{{ID: "a", Type: ItemNote}, {ID: "b", Type: ItemFlashcard}},
	}))
	if len(s.Items) != 2 {
		t.Fatalf("items=%d", len(s.Items))
	}
	for _, it := range s.Items {
		if it.LastModified != 1700000000001 {
			t.Fatalf("lastModified=%d", it.LastModified)
		}
	}
}

func TestItemsMovedToFolderClearsLayouts(t *testing.T) {
	s := Replay([]Event{
		ev(t, 1, EventItemCreated, ItemCreatedPayload{Item: Item{ID: "a", Type: ItemNote, Layout: &Layout{X: 1}}}),
		ev(t, 2, EventItemCreated, ItemCreatedPayload{Item: Item{ID: "b", Type: ItemNote, Layout: &Layout{X: 2}}}),
		ev(t, 3, EventItemCreated, ItemCreatedPayload{Item: Item{ID: "F", Type: ItemFolder}}),
	}, NewState("ws1"))

	s = Reduce(s, ev(t, 4, EventItemsMovedToFolder, MoveManyToFolderPayload{ItemIDs: []string{"a", "b", "ghost"}, FolderID: strPtr("F")}))
	for _, id := range []string{"a", "b"} {
		it := s.Items[s.indexOf(id)]
		if it.FolderID == nil || *it.FolderID != "F" || it.Layout != nil {
			t.Fatalf("%s=%+v", id, it)
		}
	}

	// Moving back to the root via a nil folderId.
	s = Reduce(s, ev(t, 5, EventItemMovedToFolder, MoveToFolderPayload{ItemID: "a", FolderID: nil}))
	if s.Items[s.indexOf("a")].FolderID != nil {
		t.Fatal("nil folderId must move the item to the root")
	}
}

func TestFolderCreatedWithItems(t *testing.T) {
	s := Replay([]Event{
		ev(t, 1, EventItemCreated, ItemCreatedPayload{Item: Item{ID: "a", Type: ItemNote, Layout: &Layout{X: 1}}}),
	}, NewState("ws1"))

	s = Reduce(s, ev(t, 2, EventFolderCreatedWithItems, FolderCreatedWithItemsPayload{
		Folder:  Item{ID: "F", Type: ItemFolder, Name: "new folder"},
		ItemIDs: []string{"a"},
	}))
	if len(s.Items) != 2 {
		t.Fatalf("items=%d", len(s.Items))
	}
	a := s.Items[s.indexOf("a")]
	if a.FolderID == nil || *a.FolderID != "F" || a.Layout != nil {
		t.Fatalf("a=%+v", a)
	}
}

func TestWorkspaceSnapshotReplacesStateKeepingID(t *testing.T) {
	s := Replay(biologyEvents(t), NewState("ws1"))
	snap := State{
		WorkspaceID: "someone-elses-id",
		GlobalTitle: "Restored",
		Items:       []Item{{ID: "x", Type: ItemNote, Name: "x"}},
	}
	got := Reduce(s, ev(t, 5, EventWorkspaceSnapshot, snap))
	if got.WorkspaceID != "ws1" {
		t.Fatalf("workspaceId=%q, snapshot must not change identity", got.WorkspaceID)
	}
	if got.GlobalTitle != "Restored" || len(got.Items) != 1 || got.Items[0].ID != "x" {
		t.Fatalf("got=%+v", got)
	}
}

func TestSnapshotEquivalence(t *testing.T) {
	// Replaying from a snapshot+tail must equal replaying the full history.
	events := biologyEvents(t)
	full := Replay(events, NewState("ws1"))

	mid := Replay(events[:2], NewState("ws1"))
	snapEvent := ev(t, 3, EventWorkspaceSnapshot, mid)
	tail := append([]Event{snapEvent}, events[2:]...)
	viaSnapshot := Replay(tail, NewState("ws1"))

	if !reflect.DeepEqual(full, viaSnapshot) {
		t.Fatalf("snapshot+tail diverged:\nfull: %+v\nsnap: %+v", full, viaSnapshot)
	}
}

func TestDeprecatedFolderEvents(t *testing.T) {
	s := Replay([]Event{
		ev(t, 1, EventItemCreated, ItemCreatedPayload{Item: Item{ID: "a", Type: ItemNote, FolderID: strPtr("legacy-f")}}),
	}, NewState("ws1"))

	// FOLDER_CREATED and FOLDER_UPDATED are accepted no-ops.
	got := Reduce(s, ev(t, 2, EventFolderCreated, map[string]any{"id": "legacy-f"}))
	if !reflect.DeepEqual(s, got) {
		t.Fatal("FOLDER_CREATED must be a no-op")
	}
	got = Reduce(s, ev(t, 2, EventFolderUpdated, map[string]any{"id": "legacy-f", "name": "renamed"}))
	if !reflect.DeepEqual(s, got) {
		t.Fatal("FOLDER_UPDATED must be a no-op")
	}

	// FOLDER_DELETED still clears children's folderId.
	got = Reduce(s, ev(t, 2, EventFolderDeleted, ItemDeletedPayload{ID: "legacy-f"}))
	if got.Items[0].FolderID != nil {
		t.Fatal("FOLDER_DELETED must clear children's folderId")
	}
	if len(got.Items) != 1 {
		t.Fatal("FOLDER_DELETED must not remove items")
	}
}

func TestMalformedPayloadIsNoOp(t *testing.T) {
	s := Replay(biologyEvents(t), NewState("ws1"))
	bad := Event{ID: "bad", Version: 5, Type: EventItemCreated, Payload: json.RawMessage(`{"item":`), Timestamp: 1}
	if got := Reduce(s, bad); !reflect.DeepEqual(s, got) {
		t.Fatal("malformed payload must leave state unchanged")
	}
	unknown := Event{ID: "unk", Version: 5, Type: "SOMETHING_NEW", Payload: json.RawMessage(`{}`), Timestamp: 1}
	if got := Reduce(s, unknown); !reflect.DeepEqual(s, got) {
		t.Fatal("unknown event types must replay as no-ops")
	}
}
