package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/slatehq/slate/pkg/errmodel"
	"github.com/slatehq/slate/pkg/store/entstore"
	"github.com/slatehq/slate/pkg/workspace"
)

func openEngine(t *testing.T, name string, opts ...Option) *Engine {
	t.Helper()
	ctx := context.Background()
	st, err := entstore.Open(ctx, fmt.Sprintf("sqlite:file:engine-%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return New(st, opts...)
}

func mustAppend(t *testing.T, e *Engine, ws string, base int64, typ workspace.EventType, payload any) int64 {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.AppendEvent(context.Background(), ws, AppendInput{
		Type: typ, Payload: b, AuthorID: "u1", ExpectedBaseVersion: base,
	})
	if err != nil {
		t.Fatalf("append %s: %v", typ, err)
	}
	if res.Conflicted {
		t.Fatalf("append %s: unexpected conflict at base %d", typ, base)
	}
	return res.Version
}

func buildBiology(t *testing.T, e *Engine, ws string) {
	t.Helper()
	note := workspace.Item{ID: "A", Type: workspace.ItemNote, Name: "note A"}
	folder := workspace.Item{ID: "F", Type: workspace.ItemFolder, Name: "folder F"}
	mustAppend(t, e, ws, 0, workspace.EventWorkspaceCreated, workspace.TitlePayload{Title: "Biology"})
	mustAppend(t, e, ws, 1, workspace.EventItemCreated, workspace.ItemCreatedPayload{Item: note})
	mustAppend(t, e, ws, 2, workspace.EventItemCreated, workspace.ItemCreatedPayload{Item: folder})
	mustAppend(t, e, ws, 3, workspace.EventItemMovedToFolder, workspace.MoveToFolderPayload{ItemID: "A", FolderID: strPtr("F")})
}

func strPtr(s string) *string { return &s }

func TestAppendAndLoadRoundTrip(t *testing.T) {
	e := openEngine(t, "roundtrip", WithSnapshotEvery(0))
	ws := "ws1"
	buildBiology(t, e, ws)

	state, head, err := e.LoadState(context.Background(), ws)
	if err != nil {
		t.Fatal(err)
	}
	if head != 4 {
		t.Fatalf("head=%d want 4", head)
	}
	if state.GlobalTitle != "Biology" {
		t.Fatalf("title=%q want Biology", state.GlobalTitle)
	}
	if len(state.Items) != 2 {
		t.Fatalf("items=%d want 2", len(state.Items))
	}
	a := state.Items[0]
	if a.FolderID == nil || *a.FolderID != "F" || a.Layout != nil {
		t.Fatalf("item A = %+v, want folderId=F layout=nil", a)
	}

	// Deleting the folder reparents A to the root, never cascades.
	mustAppend(t, e, ws, 4, workspace.EventItemDeleted, workspace.ItemDeletedPayload{ID: "F"})
	state, _, err = e.LoadState(context.Background(), ws)
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Items) != 1 {
		t.Fatalf("items=%d want 1", len(state.Items))
	}
	if state.Items[0].ID != "A" || state.Items[0].FolderID != nil {
		t.Fatalf("item A after folder delete = %+v, want folderId=nil", state.Items[0])
	}
}

func TestAppendConflictIsResultNotError(t *testing.T) {
	e := openEngine(t, "conflict", WithSnapshotEvery(0))
	ws := "ws1"
	mustAppend(t, e, ws, 0, workspace.EventWorkspaceCreated, workspace.TitlePayload{Title: "t"})

	// Two clients both read head=1; the second append must be told to retry.
	mustAppend(t, e, ws, 1, workspace.EventWorkspaceTitleUpdated, workspace.TitlePayload{Title: "t2"})
	b, _ := json.Marshal(workspace.TitlePayload{Title: "t3"})
	res, err := e.AppendEvent(context.Background(), ws, AppendInput{
		Type: workspace.EventWorkspaceTitleUpdated, Payload: b, AuthorID: "u2", ExpectedBaseVersion: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Conflicted {
		t.Fatal("want conflict")
	}
	if res.Version != 2 {
		t.Fatalf("conflict head=%d want 2", res.Version)
	}
}

func TestAppendRejectsUnknownTypeAndBadPayload(t *testing.T) {
	e := openEngine(t, "validate", WithSnapshotEvery(0))

	_, err := e.AppendEvent(context.Background(), "ws1", AppendInput{
		Type: "ITEM_EXPLODED", Payload: json.RawMessage(`{}`), AuthorID: "u1",
	})
	if !errmodel.IsCategory(err, errmodel.CategoryValidation) {
		t.Fatalf("unknown type: got %v, want validation error", err)
	}

	_, err = e.AppendEvent(context.Background(), "ws1", AppendInput{
		Type: workspace.EventItemCreated, Payload: json.RawMessage(`{"nope":true}`), AuthorID: "u1",
	})
	if !errmodel.IsCategory(err, errmodel.CategoryValidation) {
		t.Fatalf("bad payload: got %v, want validation error", err)
	}
}

func TestSnapshotTransparency(t *testing.T) {
	e := openEngine(t, "snaptrans", WithSnapshotEvery(5))
	ws := "ws1"
	mustAppend(t, e, ws, 0, workspace.EventWorkspaceCreated, workspace.TitlePayload{Title: "Snappy"})
	for i := int64(1); i <= 12; i++ {
		it := workspace.Item{ID: fmt.Sprintf("n%d", i), Type: workspace.ItemNote, Name: fmt.Sprintf("note %d", i)}
		// Background snapshots race with these appends; reload and retry on
		// conflict exactly as a real caller would.
		appendWithRetry(t, e, ws, workspace.EventItemCreated, workspace.ItemCreatedPayload{Item: it})
	}
	e.Wait()

	// At least one snapshot must exist by now.
	events, err := e.ListEvents(context.Background(), ws, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	var snapshots int
	for _, ev := range events {
		if ev.Type == workspace.EventWorkspaceSnapshot {
			snapshots++
		}
	}
	if snapshots == 0 {
		t.Fatal("expected a snapshot event after crossing the threshold")
	}

	// Snapshot+tail replay must equal replay from version 1.
	viaLoader, _, err := e.LoadState(context.Background(), ws)
	if err != nil {
		t.Fatal(err)
	}
	fromScratch := workspace.Replay(events, workspace.NewState(ws))
	if !reflect.DeepEqual(viaLoader, fromScratch) {
		t.Fatalf("snapshot replay diverged:\nloader:  %+v\nscratch: %+v", viaLoader, fromScratch)
	}
}

func appendWithRetry(t *testing.T, e *Engine, ws string, typ workspace.EventType, payload any) {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	for {
		_, head, err := e.LoadState(context.Background(), ws)
		if err != nil {
			t.Fatal(err)
		}
		res, err := e.AppendEvent(context.Background(), ws, AppendInput{
			Type: typ, Payload: b, AuthorID: "u1", ExpectedBaseVersion: head,
		})
		if err != nil {
			t.Fatal(err)
		}
		if !res.Conflicted {
			return
		}
	}
}

func TestRevertToVersion(t *testing.T) {
	e := openEngine(t, "revert", WithSnapshotEvery(0))
	ws := "ws1"
	buildBiology(t, e, ws)
	mustAppend(t, e, ws, 4, workspace.EventItemDeleted, workspace.ItemDeletedPayload{ID: "F"})

	// Undo the move and the delete.
	n, err := e.RevertToVersion(context.Background(), ws, 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("deletedCount=%d want 2", n)
	}
	state, head, err := e.LoadState(context.Background(), ws)
	if err != nil {
		t.Fatal(err)
	}
	if head != 3 {
		t.Fatalf("head=%d want 3", head)
	}
	if len(state.Items) != 2 {
		t.Fatalf("items=%d want 2", len(state.Items))
	}
	if state.Items[0].ID != "A" || state.Items[0].FolderID != nil {
		t.Fatalf("item A = %+v, want folderId=nil", state.Items[0])
	}

	// Idempotent on repeat.
	n, err = e.RevertToVersion(context.Background(), ws, 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("repeat deletedCount=%d want 0", n)
	}

	// Below the floor is rejected before touching the store.
	if _, err := e.RevertToVersion(context.Background(), ws, 0); !errmodel.IsCategory(err, errmodel.CategoryValidation) {
		t.Fatalf("floor: got %v, want validation error", err)
	}
}

func TestLoadStateDeterminism(t *testing.T) {
	e := openEngine(t, "determinism", WithSnapshotEvery(0))
	ws := "ws1"
	buildBiology(t, e, ws)

	first, _, err := e.LoadState(context.Background(), ws)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, _, err := e.LoadState(context.Background(), ws)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("replay %d diverged", i)
		}
	}
}
