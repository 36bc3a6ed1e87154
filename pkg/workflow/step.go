// Package workflow runs durable content-processing steps (OCR, transcription,
// generation) against a workspace. Steps read state through the engine, call a
// provider, and record their outcome as an ITEM_UPDATED event through the same
// optimistic append every other writer uses.
package workflow

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/slatehq/slate/pkg/engine"
	"github.com/slatehq/slate/pkg/errmodel"
	"github.com/slatehq/slate/pkg/workspace"
)

// ErrConflict reports that a step's outcome append lost the concurrency race.
// The runner reacts by re-running the whole step against fresh state.
var ErrConflict = errors.New("workflow: append lost concurrency race")

// Step is one unit of processing bound to a workspace item.
type Step interface {
	Name() string
	Run(ctx context.Context) error
}

// DefaultMaxAttempts bounds conflict retries per step run.
const DefaultMaxAttempts = 3

// Runner executes steps with bounded retry on ErrConflict.
type Runner struct {
	log         zerolog.Logger
	maxAttempts int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMaxAttempts sets the attempt bound; n < 1 is treated as 1.
func WithMaxAttempts(n int) RunnerOption {
	return func(r *Runner) {
		if n < 1 {
			n = 1
		}
		r.maxAttempts = n
	}
}

// WithRunnerLogger sets the structured logger.
func WithRunnerLogger(l zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// NewRunner constructs a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{log: zerolog.Nop(), maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the step, re-running it on ErrConflict up to the attempt bound.
// Any other error stops the run immediately.
func (r *Runner) Run(ctx context.Context, step Step) error {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = step.Run(ctx)
		if !errors.Is(err, ErrConflict) {
			return err
		}
		r.log.Debug().Str("step", step.Name()).Int("attempt", attempt).Msg("step lost append race, retrying")
	}
	return err
}

// writeItemUpdate appends one ITEM_UPDATED carrying only the touched data
// keys. The reducer merges them into the item's existing data.
func writeItemUpdate(ctx context.Context, eng *engine.Engine, workspaceID, itemID string, data map[string]any) error {
	_, head, err := eng.LoadState(ctx, workspaceID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(workspace.ItemUpdatedPayload{
		ID:      itemID,
		Changes: map[string]any{"data": data},
		Source:  "workflow",
	})
	if err != nil {
		return err
	}
	res, err := eng.AppendEvent(ctx, workspaceID, engine.AppendInput{
		Type:                workspace.EventItemUpdated,
		Payload:             payload,
		AuthorID:            "system",
		ExpectedBaseVersion: head,
	})
	if err != nil {
		return err
	}
	if res.Conflicted {
		return ErrConflict
	}
	return nil
}

// findItem looks an item up in derived state.
func findItem(state workspace.State, itemID string) (workspace.Item, bool) {
	for _, it := range state.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return workspace.Item{}, false
}

func itemNotFound(workspaceID, itemID string) error {
	return errmodel.Validation("item_not_found", "item does not exist in workspace", map[string]any{
		"workspace_id": workspaceID, "item_id": itemID,
	})
}
