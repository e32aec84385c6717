// Package detector decides whether a work item change needs its description translated.
package detector

import "github.com/ticket-translator/pkg/webhook"

// Decision describes why Detect returned what it did.
type Decision int

const (
	// DescriptionChanged means the event carries a new description value.
	DescriptionChanged Decision = iota
	// TranslationExists means the current revision already has a translation.
	TranslationExists
	// TranslationMissing means the revision has a description but no translation yet.
	TranslationMissing
	// DescriptionMissing means there is nothing to translate.
	DescriptionMissing
)

func (d Decision) String() string {
	switch d {
	case DescriptionChanged:
		return "description_changed"
	case TranslationExists:
		return "translation_exists"
	case TranslationMissing:
		return "translation_missing"
	case DescriptionMissing:
		return "description_missing"
	default:
		return "unknown"
	}
}

// Result is the outcome of a detection.
type Result struct {
	Text     string
	Decision Decision
}

// NeedsTranslation reports whether Text should be translated.
func (r Result) NeedsTranslation() bool {
	return r.Decision == DescriptionChanged || r.Decision == TranslationMissing
}

// Evaluate applies the detection rules in priority order:
// a fresh description edit wins, an existing translation blocks,
// otherwise the current description is translated if there is one.
func Evaluate(event webhook.Event, sourceField, targetField string) Result {
	if text, ok := event.String("resource", "fields", sourceField, "newValue"); ok && text != "" {
		return Result{Text: text, Decision: DescriptionChanged}
	}

	if event.NonEmpty("resource", "revision", "fields", targetField) {
		return Result{Decision: TranslationExists}
	}

	if text, ok := event.String("resource", "revision", "fields", sourceField); ok && text != "" {
		return Result{Text: text, Decision: TranslationMissing}
	}

	return Result{Decision: DescriptionMissing}
}

// Detect returns the text to translate, or false when no translation is needed.
func Detect(event webhook.Event, sourceField, targetField string) (string, bool) {
	r := Evaluate(event, sourceField, targetField)
	return r.Text, r.NeedsTranslation()
}
