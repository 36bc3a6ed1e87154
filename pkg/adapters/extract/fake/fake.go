// Package fake provides a deterministic extract provider for tests and local
// development. Outputs are derived from the input bytes, so the same input
// always yields the same text.
package fake

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/slatehq/slate/pkg/adapters/extract"
)

// Fake implements every extract capability. A non-nil Err makes each call
// fail, which is how failure paths are exercised.
type Fake struct {
	Err error
}

// New returns a Fake that succeeds.
func New() *Fake { return &Fake{} }

func (f *Fake) Name() string { return "fake" }

func (f *Fake) ExtractText(_ context.Context, mime string, data []byte) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return fmt.Sprintf("extracted text for %s blob %s", mime, digest(data)), nil
}

func (f *Fake) Transcribe(_ context.Context, fileName string, audio io.Reader) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("transcript of %s %s", fileName, digest(data)), nil
}

func (f *Fake) Generate(_ context.Context, prompt string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return fmt.Sprintf("generated from prompt %s", digest([]byte(prompt))), nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Factory returns a shared Fake. cfg key "error" (string) makes every call
// fail with that message.
func Factory(_ context.Context, cfg map[string]any) (extract.Provider, error) {
	f := New()
	if msg, ok := cfg["error"].(string); ok && msg != "" {
		f.Err = fmt.Errorf("%s", msg)
	}
	return f, nil
}

func init() {
	_ = extract.Register("fake", Factory)
}
