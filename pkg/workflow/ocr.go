package workflow

import (
	"context"

	"github.com/slatehq/slate/pkg/adapters/extract"
	"github.com/slatehq/slate/pkg/engine"
)

// FetchFunc resolves a stored file reference to its bytes and MIME type.
type FetchFunc func(ctx context.Context, ref string) ([]byte, string, error)

// OCRStep extracts text from a PDF or image item. On success it sets
// data.ocrStatus="completed" and data.textContent; on any failure it still
// records data.ocrStatus="failed" so the item never stays "processing".
type OCRStep struct {
	Eng         *engine.Engine
	Extractor   extract.DocumentExtractor
	Fetch       FetchFunc
	WorkspaceID string
	ItemID      string
}

func (s *OCRStep) Name() string { return "ocr" }

func (s *OCRStep) Run(ctx context.Context) error {
	state, _, err := s.Eng.LoadState(ctx, s.WorkspaceID)
	if err != nil {
		return err
	}
	item, ok := findItem(state, s.ItemID)
	if !ok {
		return itemNotFound(s.WorkspaceID, s.ItemID)
	}
	ref, _ := item.Data["fileRef"].(string)

	data, mime, err := s.Fetch(ctx, ref)
	if err != nil {
		return s.fail(ctx, err)
	}
	text, err := s.Extractor.ExtractText(ctx, mime, data)
	if err != nil {
		return s.fail(ctx, err)
	}
	return writeItemUpdate(ctx, s.Eng, s.WorkspaceID, s.ItemID, map[string]any{
		"ocrStatus":   "completed",
		"textContent": text,
	})
}

func (s *OCRStep) fail(ctx context.Context, cause error) error {
	// Detached so a timed-out step can still record the failure.
	wctx := context.WithoutCancel(ctx)
	if err := writeItemUpdate(wctx, s.Eng, s.WorkspaceID, s.ItemID, map[string]any{
		"ocrStatus": "failed",
	}); err != nil {
		return err
	}
	return cause
}
