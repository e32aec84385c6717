package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/ticket-translator/internal/config"
	"github.com/ticket-translator/internal/detector"
	"github.com/ticket-translator/internal/devops"
	"github.com/ticket-translator/internal/logging"
	"github.com/ticket-translator/internal/translator"
	"github.com/ticket-translator/pkg/webhook"
)

// NotNecessaryMessage is the response body when a ticket needs no translation.
const NotNecessaryMessage = "Translation is not necessary."

// Translator defines the subset of translation functionality the processor depends on.
type Translator interface {
	Translate(ctx context.Context, req translator.Request) (*translator.Result, error)
}

// WorkItemUpdater defines the subset of work item functionality the processor depends on.
type WorkItemUpdater interface {
	UpdateField(ctx context.Context, cmd devops.UpdateCommand) error
}

// State is a terminal state of a ticket request.
type State string

const (
	StateSkipped State = "skipped"
	StateUpdated State = "updated"
	StateFailed  State = "failed"
)

// Outcome captures what happened to one ticket event.
type Outcome struct {
	State       State
	Decision    detector.Decision
	SourceText  string
	Ticket      webhook.TicketRef
	Translation *translator.Result
}

// Processor turns webhook events into translations and work item updates.
// It holds no per-request state and is safe for concurrent use.
type Processor struct {
	cfg        *config.Config
	translator Translator
	devops     WorkItemUpdater
	logger     *slog.Logger
}

// New creates a processor.
func New(cfg *config.Config, t Translator, d WorkItemUpdater, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cfg:        cfg,
		translator: t,
		devops:     d,
		logger:     logger,
	}
}

// HandleTicket runs one work item event through detection, translation and write-back.
// The returned outcome is non-nil even on failure.
func (p *Processor) HandleTicket(ctx context.Context, body []byte) (*Outcome, error) {
	logger := logging.FromContext(ctx, p.logger)
	outcome := &Outcome{State: StateFailed}

	event, err := webhook.DecodeEvent(body)
	if err != nil {
		return outcome, err
	}

	result := detector.Evaluate(event, p.cfg.DevOps.SourceField, p.cfg.DevOps.TargetField)
	outcome.Decision = result.Decision
	logger = logger.With(slog.String("decision", result.Decision.String()))

	if !result.NeedsTranslation() {
		outcome.State = StateSkipped
		logger.Info("translation is not necessary", slog.String("event_type", event.EventType()))
		return outcome, nil
	}
	outcome.SourceText = result.Text

	ticket, err := event.Ticket()
	if err != nil {
		return outcome, err
	}
	outcome.Ticket = ticket
	logger = logger.With(
		slog.Int("work_item_id", ticket.WorkItemID),
		slog.String("project_id", ticket.ProjectID),
	)

	start := time.Now()
	translation, err := p.translator.Translate(ctx, translator.Request{
		Text:       result.Text,
		From:       p.cfg.Translator.SourceLanguage,
		To:         p.cfg.Translator.TargetLanguage,
		APIVersion: p.cfg.Translator.APIVersion,
	})
	if err != nil {
		logger.Error("translation failed", slog.String("error", err.Error()))
		return outcome, err
	}
	outcome.Translation = translation
	logger.Info("description translated",
		slog.String("to", translation.To),
		slog.String("detected_language", translation.DetectedLanguage),
		slog.Duration("elapsed", time.Since(start)),
	)

	err = p.devops.UpdateField(ctx, devops.UpdateCommand{
		OrganizationURL: ticket.OrganizationURL,
		ProjectID:       ticket.ProjectID,
		WorkItemID:      ticket.WorkItemID,
		Field:           p.cfg.DevOps.TargetField,
		Value:           translation.Text,
	})
	if err != nil {
		logger.Error("work item update failed", slog.String("error", err.Error()))
		return outcome, err
	}

	outcome.State = StateUpdated
	logger.Info("ticket updated", slog.String("field", p.cfg.DevOps.TargetField))
	return outcome, nil
}

// HandleMessage translates a chat-style message. Empty to and from fall back
// to the configured languages.
func (p *Processor) HandleMessage(ctx context.Context, body []byte, to, from string) (*translator.Result, error) {
	logger := logging.FromContext(ctx, p.logger)

	msg, err := webhook.DecodeMessage(body)
	if err != nil {
		return nil, err
	}

	if to == "" {
		to = p.cfg.Translator.TargetLanguage
	}
	if from == "" {
		from = p.cfg.Translator.SourceLanguage
	}
	for name, lang := range map[string]string{"to": to, "from": from} {
		if lang == "" {
			continue
		}
		if _, err := language.Parse(lang); err != nil {
			return nil, &webhook.MalformedRequestError{Reason: fmt.Sprintf("invalid %s language %q", name, lang), Err: err}
		}
	}

	logger.Debug("message received",
		slog.Int("text_length", len(msg.Message.Text)),
		slog.Bool("has_html", msg.Message.HTML != ""),
		slog.Bool("has_markdown", msg.Message.Markdown != ""),
	)

	result, err := p.translator.Translate(ctx, translator.Request{
		Text:       msg.Message.Text,
		From:       from,
		To:         to,
		APIVersion: p.cfg.Translator.APIVersion,
	})
	if err != nil {
		logger.Error("message translation failed", slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("message translated", slog.String("to", result.To))
	return result, nil
}
