package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/slatehq/slate/pkg/engine"
	"github.com/slatehq/slate/pkg/store/entstore"
)

func newTestServer(t *testing.T, name string) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	st, err := entstore.Open(ctx, fmt.Sprintf("sqlite:file:httpapi-%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	eng := engine.New(st, engine.WithSnapshotEvery(0))
	ts := httptest.NewServer(New(eng, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return resp, out
}

func TestAppendAndReadState(t *testing.T) {
	ts := newTestServer(t, "roundtrip")

	resp, out := postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"WORKSPACE_CREATED","payload":{"title":"Biology"},"authorId":"u1","expectedBaseVersion":0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%v", resp.StatusCode, out)
	}
	if out["version"].(float64) != 1 || out["conflicted"].(bool) {
		t.Fatalf("out=%v", out)
	}

	resp, out = postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"ITEM_CREATED","payload":{"item":{"id":"A","type":"note","name":"note A"}},"authorId":"u1","expectedBaseVersion":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%v", resp.StatusCode, out)
	}

	getResp, err := http.Get(ts.URL + "/v1/workspaces/ws1/state")
	if err != nil {
		t.Fatal(err)
	}
	defer getResp.Body.Close()
	var stateOut struct {
		Version int64 `json:"version"`
		State   struct {
			WorkspaceID string `json:"workspaceId"`
			GlobalTitle string `json:"globalTitle"`
			Items       []struct {
				ID string `json:"id"`
			} `json:"items"`
		} `json:"state"`
	}
	if err := json.NewDecoder(getResp.Body).Decode(&stateOut); err != nil {
		t.Fatal(err)
	}
	if stateOut.Version != 2 || stateOut.State.GlobalTitle != "Biology" || len(stateOut.State.Items) != 1 {
		t.Fatalf("state=%+v", stateOut)
	}
}

func TestAppendConflictReturns409(t *testing.T) {
	ts := newTestServer(t, "conflict")

	postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"WORKSPACE_CREATED","payload":{"title":"t"},"authorId":"u1","expectedBaseVersion":0}`)
	postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"WORKSPACE_TITLE_UPDATED","payload":{"title":"t2"},"authorId":"u1","expectedBaseVersion":1}`)

	// Stale base: the caller still believes head is 1.
	resp, out := postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"WORKSPACE_TITLE_UPDATED","payload":{"title":"t3"},"authorId":"u2","expectedBaseVersion":1}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status=%d body=%v", resp.StatusCode, out)
	}
	errObj := out["error"].(map[string]any)
	if errObj["code"] != "conflict" {
		t.Fatalf("error=%v", errObj)
	}
}

func TestAppendValidation(t *testing.T) {
	ts := newTestServer(t, "validation")

	resp, _ := postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"ITEM_EXPLODED","payload":{},"authorId":"u1","expectedBaseVersion":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown type status=%d", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"WORKSPACE_CREATED","payload":{"title":"t"},"expectedBaseVersion":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing author status=%d", resp.StatusCode)
	}
}

func TestRevertEndpoint(t *testing.T) {
	ts := newTestServer(t, "revert")

	postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"WORKSPACE_CREATED","payload":{"title":"t"},"authorId":"u1","expectedBaseVersion":0}`)
	postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"ITEM_CREATED","payload":{"item":{"id":"A","type":"note"}},"authorId":"u1","expectedBaseVersion":1}`)

	resp, out := postJSON(t, ts.URL+"/v1/workspaces/ws1/revert", `{"targetVersion":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%v", resp.StatusCode, out)
	}
	if out["deletedCount"].(float64) != 1 {
		t.Fatalf("out=%v", out)
	}

	resp, _ = postJSON(t, ts.URL+"/v1/workspaces/ws1/revert", `{"targetVersion":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("floor status=%d", resp.StatusCode)
	}
}

func TestListEventsEndpoint(t *testing.T) {
	ts := newTestServer(t, "history")

	postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"WORKSPACE_CREATED","payload":{"title":"t"},"authorId":"u1","expectedBaseVersion":0}`)
	postJSON(t, ts.URL+"/v1/workspaces/ws1/events",
		`{"type":"ITEM_CREATED","payload":{"item":{"id":"A","type":"note"}},"authorId":"u1","expectedBaseVersion":1}`)

	resp, err := http.Get(ts.URL + "/v1/workspaces/ws1/events?after=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Events []struct {
			Version int64  `json:"version"`
			Type    string `json:"type"`
		} `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Events) != 1 || out.Events[0].Version != 2 || out.Events[0].Type != "ITEM_CREATED" {
		t.Fatalf("events=%+v", out.Events)
	}
}
