// Package gemini backs document OCR and generation with the Gemini API.
// Images and PDFs go in as inline blobs with an extraction instruction.
package gemini

import (
	"context"
	"fmt"
	"os"

	genai "google.golang.org/genai"

	"github.com/slatehq/slate/pkg/adapters/extract"
)

const defaultModel = "gemini-2.5-flash-lite"

const extractInstruction = "Extract all text from this document. Return only the text, preserving reading order."

type clientWrapper struct {
	client *genai.Client
	model  string
}

func (c *clientWrapper) Name() string { return "gemini" }

func (c *clientWrapper) ExtractText(ctx context.Context, mime string, data []byte) (string, error) {
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mime, Data: data}},
		{Text: extractInstruction},
	}
	res, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (c *clientWrapper) Generate(ctx context.Context, prompt string) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	res, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

// Factory creates the Gemini provider using GOOGLE_API_KEY by default.
// cfg keys: api_key, model.
func Factory(ctx context.Context, cfg map[string]any) (extract.Provider, error) { // nolint: revive
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if v, ok := cfg["api_key"].(string); ok && v != "" {
		apiKey = v
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing API key; set GOOGLE_API_KEY or cfg.api_key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	model := defaultModel
	if v, ok := cfg["model"].(string); ok && v != "" {
		model = v
	}
	return &clientWrapper{client: client, model: model}, nil
}

func init() {
	_ = extract.Register("gemini", Factory)
}
