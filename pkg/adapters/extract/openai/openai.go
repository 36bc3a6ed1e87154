// Package openai backs transcription and generation with the OpenAI API:
// Whisper for audio, chat completions for text.
package openai

import (
	"context"
	"fmt"
	"io"
	"os"

	oa "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/slatehq/slate/pkg/adapters/extract"
)

const defaultModel = "gpt-5-nano"

type clientWrapper struct {
	client oa.Client
	model  string
}

func (c *clientWrapper) Name() string { return "openai" }

func (c *clientWrapper) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	resp, err := c.client.Audio.Transcriptions.New(ctx, oa.AudioTranscriptionNewParams{
		Model: oa.AudioModelWhisper1,
		File:  oa.File(audio, fileName, "application/octet-stream"),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *clientWrapper) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{oa.UserMessage(prompt)},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// Factory creates the OpenAI provider. cfg keys: api_key, model.
func Factory(ctx context.Context, cfg map[string]any) (extract.Provider, error) { // nolint: revive
	_ = ctx
	apiKey := os.Getenv("OPENAI_API_KEY")
	if v, ok := cfg["api_key"].(string); ok && v != "" {
		apiKey = v
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: missing API key; set OPENAI_API_KEY or cfg.api_key")
	}
	model := defaultModel
	if v, ok := cfg["model"].(string); ok && v != "" {
		model = v
	}

	c := oa.NewClient(option.WithAPIKey(apiKey))
	return &clientWrapper{client: c, model: model}, nil
}

func init() {
	_ = extract.Register("openai", Factory)
}
