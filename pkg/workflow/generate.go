package workflow

import (
	"context"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/slatehq/slate/pkg/adapters/extract"
	"github.com/slatehq/slate/pkg/engine"
)

// TokenEstimator returns an estimated token count for text.
type TokenEstimator func(text string) int

// NewTikTokenEstimator returns a TokenEstimator backed by tiktoken-go for the
// given model. If the model is unknown, EncodingForModel returns an error.
func NewTikTokenEstimator(model string) (TokenEstimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// DefaultTokenBudget caps the source text included in a generation prompt.
const DefaultTokenBudget = 4000

// GenerateStep produces new content from an item's extracted text. On success
// it sets data.generationStatus="completed" and data.generatedContent; on
// failure data.generationStatus="failed".
type GenerateStep struct {
	Eng         *engine.Engine
	Generator   extract.Generator
	Estimate    TokenEstimator
	TokenBudget int
	WorkspaceID string
	ItemID      string
	Instruction string
}

func (s *GenerateStep) Name() string { return "generate" }

func (s *GenerateStep) Run(ctx context.Context) error {
	state, _, err := s.Eng.LoadState(ctx, s.WorkspaceID)
	if err != nil {
		return err
	}
	item, ok := findItem(state, s.ItemID)
	if !ok {
		return itemNotFound(s.WorkspaceID, s.ItemID)
	}
	source, _ := item.Data["textContent"].(string)
	prompt := s.buildPrompt(source)

	out, err := s.Generator.Generate(ctx, prompt)
	if err != nil {
		return s.fail(ctx, err)
	}
	return writeItemUpdate(ctx, s.Eng, s.WorkspaceID, s.ItemID, map[string]any{
		"generationStatus": "completed",
		"generatedContent": out,
	})
}

// buildPrompt prepends the instruction and trims the source until the whole
// prompt fits the token budget. Trimming drops the tail; the head of a
// document carries most of its context.
func (s *GenerateStep) buildPrompt(source string) string {
	instruction := s.Instruction
	if instruction == "" {
		instruction = "Summarize the following content."
	}
	budget := s.TokenBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	prompt := instruction + "\n\n" + source
	if s.Estimate == nil {
		return prompt
	}
	for s.Estimate(prompt) > budget && len(source) > 0 {
		source = source[:len(source)*3/4]
		prompt = instruction + "\n\n" + source
	}
	return prompt
}

func (s *GenerateStep) fail(ctx context.Context, cause error) error {
	wctx := context.WithoutCancel(ctx)
	if err := writeItemUpdate(wctx, s.Eng, s.WorkspaceID, s.ItemID, map[string]any{
		"generationStatus": "failed",
	}); err != nil {
		return err
	}
	return cause
}
