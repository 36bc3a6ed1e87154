package entstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

func openTestStore(t *testing.T, name string) *Store {
	t.Helper()
	ctx := context.Background()
	st, err := Open(ctx, fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestSQLiteAppendAssignsContiguousVersions(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, "append")

	payload, _ := json.Marshal(map[string]any{"title": "Biology"})
	e1, conflicted, err := st.AppendEvent(ctx, rec("e1", "ws1", "WORKSPACE_CREATED", payload), 0)
	if err != nil || conflicted {
		t.Fatalf("append 1: conflicted=%v err=%v", conflicted, err)
	}
	if e1.Version != 1 {
		t.Fatalf("version=%d want 1", e1.Version)
	}

	e2, conflicted, err := st.AppendEvent(ctx, rec("e2", "ws1", "ITEM_CREATED", nil), 1)
	if err != nil || conflicted {
		t.Fatalf("append 2: conflicted=%v err=%v", conflicted, err)
	}
	if e2.Version != 2 {
		t.Fatalf("version=%d want 2", e2.Version)
	}

	events, err := st.ListEvents(ctx, "ws1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("len=%d want 2", len(events))
	}
	if events[0].Version != 1 || events[1].Version != 2 {
		t.Fatalf("versions=%d,%d want 1,2", events[0].Version, events[1].Version)
	}
}

func TestSQLiteAppendStaleBaseConflicts(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, "stale")

	if _, _, err := st.AppendEvent(ctx, rec("e1", "ws1", "WORKSPACE_CREATED", nil), 0); err != nil {
		t.Fatal(err)
	}
	// Two readers both observed head=1; the first append wins.
	if _, conflicted, err := st.AppendEvent(ctx, rec("e2", "ws1", "ITEM_CREATED", nil), 1); err != nil || conflicted {
		t.Fatalf("winner: conflicted=%v err=%v", conflicted, err)
	}
	_, conflicted, err := st.AppendEvent(ctx, rec("e3", "ws1", "ITEM_CREATED", nil), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !conflicted {
		t.Fatal("stale append must report a conflict")
	}
	// Nothing was written for the loser.
	head, err := st.Head(ctx, "ws1")
	if err != nil {
		t.Fatal(err)
	}
	if head != 2 {
		t.Fatalf("head=%d want 2", head)
	}
}

func TestSQLiteConcurrentAppendsStayContiguous(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, "race")

	const writers = 8
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			// Reload-and-retry until the append wins, like any real caller.
			for attempt := 0; ; attempt++ {
				head, err := st.Head(ctx, "ws1")
				if err != nil {
					continue
				}
				id := fmt.Sprintf("w%d-a%d", w, attempt)
				_, conflicted, err := st.AppendEvent(ctx, rec(id, "ws1", "ITEM_CREATED", nil), head)
				if err == nil && !conflicted {
					return
				}
			}
		}(w)
	}
	wg.Wait()

	events, err := st.ListEvents(ctx, "ws1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != writers {
		t.Fatalf("len=%d want %d", len(events), writers)
	}
	for i, e := range events {
		if e.Version != int64(i+1) {
			t.Fatalf("version at %d = %d, want %d (gap or duplicate)", i, e.Version, i+1)
		}
	}
}

func TestSQLiteLatestVersionOfType(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, "snapver")

	types := []string{"WORKSPACE_CREATED", "ITEM_CREATED", "WORKSPACE_SNAPSHOT", "ITEM_CREATED", "WORKSPACE_SNAPSHOT", "ITEM_CREATED"}
	for i, typ := range types {
		if _, conflicted, err := st.AppendEvent(ctx, rec(fmt.Sprintf("e%d", i), "ws1", typ, nil), int64(i)); err != nil || conflicted {
			t.Fatalf("append %d: conflicted=%v err=%v", i, conflicted, err)
		}
	}
	v, err := st.LatestVersionOfType(ctx, "ws1", "WORKSPACE_SNAPSHOT")
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Fatalf("snapshot version=%d want 5", v)
	}
	v, err = st.LatestVersionOfType(ctx, "ws1", "ITEM_DELETED")
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("missing type version=%d want 0", v)
	}
}

func TestSQLiteDeleteAfterTruncatesSuffix(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, "revert")

	for i := 0; i < 5; i++ {
		if _, conflicted, err := st.AppendEvent(ctx, rec(fmt.Sprintf("e%d", i), "ws1", "ITEM_CREATED", nil), int64(i)); err != nil || conflicted {
			t.Fatalf("append %d: conflicted=%v err=%v", i, conflicted, err)
		}
	}
	n, err := st.DeleteAfter(ctx, "ws1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("deleted=%d want 2", n)
	}
	head, err := st.Head(ctx, "ws1")
	if err != nil {
		t.Fatal(err)
	}
	if head != 3 {
		t.Fatalf("head=%d want 3", head)
	}
	// Repeat is a no-op.
	n, err = st.DeleteAfter(ctx, "ws1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("deleted=%d want 0", n)
	}
	// The log accepts appends again at the new head.
	e, conflicted, err := st.AppendEvent(ctx, rec("e-after", "ws1", "ITEM_CREATED", nil), 3)
	if err != nil || conflicted {
		t.Fatalf("append after revert: conflicted=%v err=%v", conflicted, err)
	}
	if e.Version != 4 {
		t.Fatalf("version=%d want 4", e.Version)
	}
}

func TestSQLiteWorkspacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, "isolation")

	if _, _, err := st.AppendEvent(ctx, rec("a1", "wsA", "WORKSPACE_CREATED", nil), 0); err != nil {
		t.Fatal(err)
	}
	// wsB starts at its own version 1 regardless of wsA's head.
	e, conflicted, err := st.AppendEvent(ctx, rec("b1", "wsB", "WORKSPACE_CREATED", nil), 0)
	if err != nil || conflicted {
		t.Fatalf("conflicted=%v err=%v", conflicted, err)
	}
	if e.Version != 1 {
		t.Fatalf("version=%d want 1", e.Version)
	}
}
