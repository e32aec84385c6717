package translator

import (
	"context"
	"fmt"
	"log/slog"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// Google translates through the Cloud Translation API.
type Google struct {
	client *translate.Client
	logger *slog.Logger
}

// NewGoogle creates a client. An empty credentialsFile uses application default credentials.
func NewGoogle(ctx context.Context, credentialsFile string, logger *slog.Logger) (*Google, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return newGoogle(ctx, logger, opts...)
}

func newGoogle(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Google, error) {
	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google translate client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Google{client: client, logger: logger}, nil
}

// Translate translates req.Text. APIVersion is ignored.
func (g *Google) Translate(ctx context.Context, req Request) (*Result, error) {
	target, err := language.Parse(req.To)
	if err != nil {
		return nil, fmt.Errorf("invalid target language %q: %w", req.To, err)
	}

	opts := &translate.Options{Format: translate.Text}
	if req.From != "" {
		source, err := language.Parse(req.From)
		if err != nil {
			return nil, fmt.Errorf("invalid source language %q: %w", req.From, err)
		}
		opts.Source = source
	}

	g.logger.Debug("translating text", slog.String("to", req.To), slog.String("from", req.From), slog.Int("length", len(req.Text)))

	translations, err := g.client.Translate(ctx, []string{req.Text}, target, opts)
	if err != nil {
		return nil, &TranslationError{Err: err}
	}
	if len(translations) == 0 {
		return nil, &TranslationError{Key: "translations"}
	}

	result := &Result{Text: translations[0].Text, To: req.To}
	if translations[0].Source != language.Und {
		result.DetectedLanguage = translations[0].Source.String()
	}
	return result, nil
}

// CheckLanguage verifies that the provider can translate into lang.
func (g *Google) CheckLanguage(ctx context.Context, lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("invalid target language %q: %w", lang, err)
	}
	supported, err := g.client.SupportedLanguages(ctx, language.English)
	if err != nil {
		return fmt.Errorf("list google languages: %w", err)
	}
	for _, l := range supported {
		if l.Tag == tag {
			return nil
		}
	}
	return fmt.Errorf("language %q is not supported", lang)
}

// Close releases the underlying client.
func (g *Google) Close() error {
	return g.client.Close()
}
