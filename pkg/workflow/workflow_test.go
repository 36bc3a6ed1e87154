package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/slatehq/slate/pkg/adapters/extract/fake"
	"github.com/slatehq/slate/pkg/engine"
	"github.com/slatehq/slate/pkg/store/entstore"
	"github.com/slatehq/slate/pkg/workspace"
)

func newTestEngine(t *testing.T, name string) *engine.Engine {
	t.Helper()
	ctx := context.Background()
	st, err := entstore.Open(ctx, fmt.Sprintf("sqlite:file:workflow-%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return engine.New(st, engine.WithSnapshotEvery(0))
}

func seedItem(t *testing.T, eng *engine.Engine, itemType string, data map[string]any) {
	t.Helper()
	ctx := context.Background()
	appendEvent := func(typ workspace.EventType, payload any, base int64) {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		res, err := eng.AppendEvent(ctx, "ws1", engine.AppendInput{
			Type: typ, Payload: b, AuthorID: "u1", ExpectedBaseVersion: base,
		})
		if err != nil || res.Conflicted {
			t.Fatalf("seed append: res=%+v err=%v", res, err)
		}
	}
	appendEvent(workspace.EventWorkspaceCreated, workspace.TitlePayload{Title: "t"}, 0)
	appendEvent(workspace.EventItemCreated, workspace.ItemCreatedPayload{Item: workspace.Item{
		ID: "X", Type: workspace.ItemType(itemType), Name: "source.bin", Data: data,
	}}, 1)
}

func itemData(t *testing.T, eng *engine.Engine) map[string]any {
	t.Helper()
	state, _, err := eng.LoadState(context.Background(), "ws1")
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range state.Items {
		if it.ID == "X" {
			return it.Data
		}
	}
	t.Fatal("item X missing")
	return nil
}

func fetchBytes(data []byte, mime string) FetchFunc {
	return func(context.Context, string) ([]byte, string, error) { return data, mime, nil }
}

func TestOCRStepSuccess(t *testing.T) {
	eng := newTestEngine(t, "ocr-ok")
	seedItem(t, eng, "pdf", map[string]any{"fileRef": "blob1", "pageCount": float64(3)})

	step := &OCRStep{
		Eng: eng, Extractor: fake.New(), Fetch: fetchBytes([]byte("pdfbytes"), "application/pdf"),
		WorkspaceID: "ws1", ItemID: "X",
	}
	if err := NewRunner().Run(context.Background(), step); err != nil {
		t.Fatal(err)
	}

	data := itemData(t, eng)
	if data["ocrStatus"] != "completed" {
		t.Fatalf("data=%v", data)
	}
	if text, _ := data["textContent"].(string); text == "" {
		t.Fatalf("textContent missing: %v", data)
	}
	// Untouched keys survive the merge.
	if data["pageCount"] != float64(3) || data["fileRef"] != "blob1" {
		t.Fatalf("data=%v", data)
	}
}

func TestOCRStepFailureRecordsStatus(t *testing.T) {
	eng := newTestEngine(t, "ocr-fail")
	seedItem(t, eng, "pdf", map[string]any{"fileRef": "blob1"})

	boom := errors.New("provider down")
	f := fake.New()
	f.Err = boom
	step := &OCRStep{
		Eng: eng, Extractor: f, Fetch: fetchBytes([]byte("pdfbytes"), "application/pdf"),
		WorkspaceID: "ws1", ItemID: "X",
	}
	if err := NewRunner().Run(context.Background(), step); !errors.Is(err, boom) {
		t.Fatalf("err=%v want cause", err)
	}

	data := itemData(t, eng)
	if data["ocrStatus"] != "failed" {
		t.Fatalf("data=%v", data)
	}
	if _, ok := data["textContent"]; ok {
		t.Fatalf("textContent present after failure: %v", data)
	}
}

func TestOCRStepMissingItem(t *testing.T) {
	eng := newTestEngine(t, "ocr-missing")
	seedItem(t, eng, "pdf", nil)

	step := &OCRStep{
		Eng: eng, Extractor: fake.New(), Fetch: fetchBytes(nil, "application/pdf"),
		WorkspaceID: "ws1", ItemID: "nope",
	}
	if err := NewRunner().Run(context.Background(), step); err == nil {
		t.Fatal("want error for missing item")
	}
}

func TestTranscribeStepSuccess(t *testing.T) {
	eng := newTestEngine(t, "transcribe-ok")
	seedItem(t, eng, "audio", map[string]any{"fileRef": "rec1"})

	step := &TranscribeStep{
		Eng: eng, Transcriber: fake.New(), Fetch: fetchBytes([]byte("wavbytes"), "audio/wav"),
		WorkspaceID: "ws1", ItemID: "X",
	}
	if err := NewRunner().Run(context.Background(), step); err != nil {
		t.Fatal(err)
	}

	data := itemData(t, eng)
	if data["transcriptStatus"] != "completed" {
		t.Fatalf("data=%v", data)
	}
	if text, _ := data["transcript"].(string); !strings.Contains(text, "source.bin") {
		t.Fatalf("transcript=%q", text)
	}
}

func TestGenerateStepBudgetsPrompt(t *testing.T) {
	eng := newTestEngine(t, "generate-ok")
	seedItem(t, eng, "note", map[string]any{"textContent": strings.Repeat("lorem ipsum ", 500)})

	var lastPrompt string
	estimate := func(text string) int { return len(text) / 4 }
	step := &GenerateStep{
		Eng:       eng,
		Generator: promptCapture{&lastPrompt},
		Estimate:  estimate, TokenBudget: 100,
		WorkspaceID: "ws1", ItemID: "X",
		Instruction: "Write flashcards from this.",
	}
	if err := NewRunner().Run(context.Background(), step); err != nil {
		t.Fatal(err)
	}
	if estimate(lastPrompt) > 100 {
		t.Fatalf("prompt over budget: %d tokens", estimate(lastPrompt))
	}
	if !strings.HasPrefix(lastPrompt, "Write flashcards from this.") {
		t.Fatalf("prompt=%q", lastPrompt)
	}

	data := itemData(t, eng)
	if data["generationStatus"] != "completed" || data["generatedContent"] != "ok" {
		t.Fatalf("data=%v", data)
	}
}

type promptCapture struct{ dst *string }

func (promptCapture) Name() string { return "capture" }
func (p promptCapture) Generate(_ context.Context, prompt string) (string, error) {
	*p.dst = prompt
	return "ok", nil
}

type flakyStep struct {
	conflicts int
	runs      int
}

func (s *flakyStep) Name() string { return "flaky" }
func (s *flakyStep) Run(context.Context) error {
	s.runs++
	if s.runs <= s.conflicts {
		return ErrConflict
	}
	return nil
}

func TestRunnerRetriesOnConflict(t *testing.T) {
	s := &flakyStep{conflicts: 2}
	if err := NewRunner(WithMaxAttempts(3)).Run(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if s.runs != 3 {
		t.Fatalf("runs=%d", s.runs)
	}

	s = &flakyStep{conflicts: 5}
	if err := NewRunner(WithMaxAttempts(3)).Run(context.Background(), s); !errors.Is(err, ErrConflict) {
		t.Fatalf("err=%v want ErrConflict", err)
	}
	if s.runs != 3 {
		t.Fatalf("runs=%d", s.runs)
	}
}
