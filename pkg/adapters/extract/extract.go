// Package extract defines the provider interfaces workflow steps use to turn
// raw item content into text: document OCR, audio transcription, and content
// generation. Providers self-register by name, so binaries choose providers by
// importing them.
package extract

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Provider is the common handle every factory returns. Capability interfaces
// are discovered with type assertions; a provider may implement any subset.
type Provider interface {
	// Name returns the provider name (e.g., "openai").
	Name() string
}

// DocumentExtractor produces plain text from a document or image blob.
type DocumentExtractor interface {
	Provider
	ExtractText(ctx context.Context, mime string, data []byte) (string, error)
}

// Transcriber produces plain text from an audio stream.
type Transcriber interface {
	Provider
	Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error)
}

// Generator produces new text from a prompt.
type Generator interface {
	Provider
	Generate(ctx context.Context, prompt string) (string, error)
}

// Factory constructs a Provider from provider-specific config.
type Factory func(ctx context.Context, cfg map[string]any) (Provider, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a provider factory under a name.
func Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("extract: empty provider name")
	}
	if f == nil {
		return fmt.Errorf("extract: nil factory for %q", name)
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("extract: provider %q already registered", name)
	}
	factories[name] = f
	return nil
}

// Resolve gets a registered factory by name.
func Resolve(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Range iterates all registered factories.
func Range(fn func(name string, f Factory)) {
	regMu.RLock()
	defer regMu.RUnlock()
	for n, f := range factories {
		fn(n, f)
	}
}
