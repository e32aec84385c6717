// Package app assembles the service from its configuration.
package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ticket-translator/internal/config"
	"github.com/ticket-translator/internal/devops"
	"github.com/ticket-translator/internal/logging"
	"github.com/ticket-translator/internal/processor"
	"github.com/ticket-translator/internal/translator"
	"github.com/ticket-translator/internal/webhook"
)

// Backend is a translation provider that can also verify a language code.
type Backend interface {
	processor.Translator
	CheckLanguage(ctx context.Context, lang string) error
}

// App holds the wired service components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Translator Backend
	DevOps     *devops.Client
	Processor  *processor.Processor
	Handler    *webhook.Handler

	closers []func() error
}

// NewLogger builds the service logger from cfg. debug forces the debug level.
func NewLogger(cfg *config.Config, debug bool) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	return logging.New(logging.Config{
		Level:       level,
		SentryDSN:   cfg.Logging.SentryDSN,
		Environment: cfg.Logging.Environment,
	})
}

// New wires clients, the processor and the HTTP handler.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	backend, err := a.newTranslator(ctx)
	if err != nil {
		return nil, err
	}
	a.Translator = backend

	devopsClient, err := devops.New(
		cfg.DevOps.PersonalAccessToken,
		cfg.DevOps.APIVersion,
		NewHTTPClient(cfg.DevOps.SkipTLSVerify, cfg.DevOps.Timeout.Duration),
		logger.With(slog.String("component", "devops_client")),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create devops client: %w", err)
	}
	a.DevOps = devopsClient

	a.Processor = processor.New(cfg, a.Translator, a.DevOps, logger.With(slog.String("component", "processor")))
	a.Handler = webhook.New(a.Processor, logger.With(slog.String("component", "webhook_handler")))
	return a, nil
}

func (a *App) newTranslator(ctx context.Context) (Backend, error) {
	cfg := a.Config.Translator
	logger := a.Logger.With(slog.String("component", "translator"), slog.String("provider", cfg.Provider))

	switch cfg.Provider {
	case config.ProviderGoogle:
		client, err := translator.NewGoogle(ctx, cfg.GoogleCredentialsFile, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return client, nil
	case config.ProviderMicrosoft, "":
		client, err := translator.NewMicrosoft(
			cfg.Endpoint,
			cfg.SubscriptionKey,
			cfg.SubscriptionRegion,
			cfg.APIVersion,
			NewHTTPClient(cfg.SkipTLSVerify, cfg.Timeout.Duration),
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("create translator client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown translation provider %q", cfg.Provider)
	}
}

// Close releases provider clients.
func (a *App) Close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// NewHTTPClient returns a client with its own transport and the given timeout.
func NewHTTPClient(skipTLSVerify bool, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
