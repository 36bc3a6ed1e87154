package workflow

import (
	"bytes"
	"context"

	"github.com/slatehq/slate/pkg/adapters/extract"
	"github.com/slatehq/slate/pkg/engine"
)

// TranscribeStep turns an audio item into text. On success it sets
// data.transcriptStatus="completed" and data.transcript; on failure
// data.transcriptStatus="failed".
type TranscribeStep struct {
	Eng         *engine.Engine
	Transcriber extract.Transcriber
	Fetch       FetchFunc
	WorkspaceID string
	ItemID      string
}

func (s *TranscribeStep) Name() string { return "transcribe" }

func (s *TranscribeStep) Run(ctx context.Context) error {
	state, _, err := s.Eng.LoadState(ctx, s.WorkspaceID)
	if err != nil {
		return err
	}
	item, ok := findItem(state, s.ItemID)
	if !ok {
		return itemNotFound(s.WorkspaceID, s.ItemID)
	}
	ref, _ := item.Data["fileRef"].(string)
	fileName := item.Name
	if fileName == "" {
		fileName = s.ItemID
	}

	audio, _, err := s.Fetch(ctx, ref)
	if err != nil {
		return s.fail(ctx, err)
	}
	text, err := s.Transcriber.Transcribe(ctx, fileName, bytes.NewReader(audio))
	if err != nil {
		return s.fail(ctx, err)
	}
	return writeItemUpdate(ctx, s.Eng, s.WorkspaceID, s.ItemID, map[string]any{
		"transcriptStatus": "completed",
		"transcript":       text,
	})
}

func (s *TranscribeStep) fail(ctx context.Context, cause error) error {
	wctx := context.WithoutCancel(ctx)
	if err := writeItemUpdate(wctx, s.Eng, s.WorkspaceID, s.ItemID, map[string]any{
		"transcriptStatus": "failed",
	}); err != nil {
		return err
	}
	return cause
}
