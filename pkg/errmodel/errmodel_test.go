package errmodel

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewAndFrom(t *testing.T) {
	e := Validation("missing", "field missing", map[string]any{"field": "workspace_id"})
	if e.Category != CategoryValidation || e.Code != "missing" {
		t.Fatalf("unexpected: %#v", e)
	}
	if got := From(e); got != e {
		t.Fatalf("From should return same error instance")
	}
	if got := From(errors.New("plain")); got.Category != CategorySystem || got.Code != "internal" {
		t.Fatalf("unexpected: %#v", got)
	}
}

func TestConflict(t *testing.T) {
	e := Conflict("head moved", map[string]any{"current_version": 7})
	if !IsConflict(e) {
		t.Fatal("want IsConflict true")
	}
	if IsConflict(Validation("other", "x", nil)) {
		t.Fatal("want IsConflict false")
	}
	// A conflict wrapped by fmt still classifies.
	if !IsConflict(fmt.Errorf("append: %w", e)) {
		t.Fatal("want IsConflict true through wrapping")
	}
	if got := HTTPStatus(e); got != 409 {
		t.Fatalf("status=%d want 409", got)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validation("bad_json", "x", nil), 400},
		{Validation("not_found", "x", nil), 404},
		{Conflict("x", nil), 409},
		{New(CategoryNetwork, "upstream", "x", nil), 502},
		{System("boom", "x", nil, nil), 500},
		{nil, 500},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v)=%d want %d", tc.err, got, tc.want)
		}
	}
}

func TestWriteHTTP_StatusAndEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	WriteHTTP(rr, req, Validation("bad_json", "oops", nil))
	if rr.Code != 400 {
		t.Fatalf("status=%d want 400", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "\"category\":\"validation\"") {
		t.Fatalf("body missing category: %s", body)
	}
	if !strings.Contains(body, "\"code\":\"bad_json\"") {
		t.Fatalf("body missing code: %s", body)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 600)
	e := Validation("c", long, map[string]any{"v": long})
	if len(e.Message) != 512 || !strings.HasSuffix(e.Message, "...") {
		t.Fatalf("message len=%d", len(e.Message))
	}
	if s := e.Context["v"].(string); len(s) != 256 {
		t.Fatalf("context len=%d", len(s))
	}
}

func TestIsCategory(t *testing.T) {
	if !IsCategory(System("boom", "x", nil, nil), CategorySystem) {
		t.Fatal("want system category")
	}
	if IsCategory(Validation("c", "x", nil), CategorySystem) {
		t.Fatal("want category mismatch")
	}
}
