package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ticket-translator/internal/app"
	"github.com/ticket-translator/internal/config"
)

type checkResult struct {
	passed   int
	errors   int
	warnings int
}

func (r *checkResult) ok(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "✓ "+format+"\n", args...)
	r.passed++
}

func (r *checkResult) fail(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "✗ "+format+"\n", args...)
	r.errors++
}

func (r *checkResult) warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "⚠ Warning: "+format+"\n", args...)
	r.warnings++
}

var errChecksFailed = errors.New("configuration check failed")

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and reachability of the translation and DevOps APIs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runCheck(ctx, opts, cmd.OutOrStdout())
		},
	}
}

func runCheck(ctx context.Context, opts *options, out io.Writer) error {
	result := &checkResult{}

	fmt.Fprintln(out, "Checking configuration...")
	fmt.Fprintln(out)

	if opts.configPath != "" {
		if _, err := os.Stat(opts.configPath); err != nil {
			result.fail(out, "Configuration file not found: %s", opts.configPath)
			return printSummary(out, result)
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		result.fail(out, "Failed to load configuration: %v", err)
		return printSummary(out, result)
	}
	result.ok(out, "Configuration loaded and validated (provider %s)", cfg.Translator.Provider)

	if err := validateServerConfig(cfg); err != nil {
		result.fail(out, "Server configuration invalid: %v", err)
		return printSummary(out, result)
	}
	result.ok(out, "Server configuration is valid")

	logger, err := app.NewLogger(cfg, opts.debug)
	if err != nil {
		result.fail(out, "Logger could not be created: %v", err)
		return printSummary(out, result)
	}

	svc, err := app.New(ctx, cfg, logger)
	if err != nil {
		result.fail(out, "Clients could not be created: %v", err)
		return printSummary(out, result)
	}
	defer svc.Close()

	if err := svc.Translator.CheckLanguage(ctx, cfg.Translator.TargetLanguage); err != nil {
		result.fail(out, "Translator rejected target language %q: %v", cfg.Translator.TargetLanguage, err)
	} else {
		result.ok(out, "Translator is accessible and supports target language %q", cfg.Translator.TargetLanguage)
	}

	if cfg.Translator.SourceLanguage == "" {
		result.warn(out, "No source language configured, the provider will auto-detect it")
	} else if err := svc.Translator.CheckLanguage(ctx, cfg.Translator.SourceLanguage); err != nil {
		result.fail(out, "Translator rejected source language %q: %v", cfg.Translator.SourceLanguage, err)
	} else {
		result.ok(out, "Translator supports source language %q", cfg.Translator.SourceLanguage)
	}

	if cfg.DevOps.OrganizationURL == "" {
		result.warn(out, "DEVOPS_ORGANIZATION_URL is not set, skipping DevOps access check")
	} else if err := svc.DevOps.CheckAccessibility(ctx, cfg.DevOps.OrganizationURL); err != nil {
		switch {
		case strings.Contains(err.Error(), "access denied"):
			result.fail(out, "Personal access token has no access to %s", cfg.DevOps.OrganizationURL)
		case strings.Contains(err.Error(), "not found"):
			result.fail(out, "Organization %s does not exist", cfg.DevOps.OrganizationURL)
		default:
			result.fail(out, "DevOps is not accessible at %s: %v", cfg.DevOps.OrganizationURL, err)
		}
	} else {
		result.ok(out, "DevOps is accessible at %s", cfg.DevOps.OrganizationURL)
	}

	return printSummary(out, result)
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Address == "" {
		return errors.New("server.address must be provided")
	}
	if cfg.Server.ReadTimeout.Duration <= 0 || cfg.Server.WriteTimeout.Duration <= 0 {
		return errors.New("server timeouts must be > 0")
	}
	if cfg.Server.WriteTimeout.Duration < cfg.Translator.Timeout.Duration+cfg.DevOps.Timeout.Duration {
		return fmt.Errorf("server.write_timeout %s is shorter than translator and devops timeouts combined", cfg.Server.WriteTimeout.Duration)
	}
	return nil
}

func printSummary(out io.Writer, result *checkResult) error {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Summary: %d checks passed, %d errors, %d warnings\n", result.passed, result.errors, result.warnings)
	if result.errors > 0 {
		return errChecksFailed
	}
	return nil
}
