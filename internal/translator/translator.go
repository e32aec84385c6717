// Package translator talks to text translation providers.
package translator

import (
	"context"
	"fmt"
)

// Translator translates a single text.
type Translator interface {
	Translate(ctx context.Context, req Request) (*Result, error)
}

// Request is one text to translate. An empty From lets the provider detect
// the source language; an empty APIVersion uses the client's default.
type Request struct {
	Text       string
	From       string
	To         string
	APIVersion string
}

// Result is the first translation returned by the provider.
type Result struct {
	Text             string  `json:"text"`
	To               string  `json:"to"`
	DetectedLanguage string  `json:"detectedLanguage,omitempty"`
	Score            float64 `json:"score,omitempty"`
}

// TranslationError is returned when the provider fails or answers with an unexpected shape.
type TranslationError struct {
	// Key names the response element that was missing, if any.
	Key        string
	StatusCode int
	Message    string
	Err        error
}

// Error implements error.
func (e *TranslationError) Error() string {
	switch {
	case e.Key != "":
		return fmt.Sprintf("translation response missing key %q", e.Key)
	case e.StatusCode != 0:
		return fmt.Sprintf("translation API status %d: %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("translation request: %v", e.Err)
	default:
		return "translation failed: " + e.Message
	}
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}
