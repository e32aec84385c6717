// Package webhook exposes the translation processor over HTTP.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ticket-translator/internal/devops"
	"github.com/ticket-translator/internal/logging"
	"github.com/ticket-translator/internal/processor"
	"github.com/ticket-translator/internal/translator"
	payload "github.com/ticket-translator/pkg/webhook"
)

const maxBodyBytes = 1 << 20

// Processor is the work the handler delegates to.
type Processor interface {
	HandleTicket(ctx context.Context, body []byte) (*processor.Outcome, error)
	HandleMessage(ctx context.Context, body []byte, to, from string) (*translator.Result, error)
}

// Response is a transport-neutral reply.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Handler serves the ticket and message routes.
type Handler struct {
	proc   Processor
	logger *slog.Logger
}

// New creates a handler delegating to proc.
func New(proc Processor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{proc: proc, logger: logger}
}

// Register mounts the webhook routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/webhook", h.Ticket)
	r.POST("/api/ticket", h.Ticket)
	r.POST("/api/message", h.Message)
}

// Ticket handles work item change notifications.
func (h *Handler) Ticket(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		h.write(c, TicketResponse(nil, err))
		return
	}
	h.write(c, h.ServeTicket(c.Request.Context(), body))
}

// Message handles chat-style message payloads.
func (h *Handler) Message(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		h.write(c, MessageResponse(nil, err))
		return
	}
	h.write(c, h.ServeMessage(c.Request.Context(), body, c.Query("to"), c.Query("from")))
}

// ServeTicket runs the ticket flow and renders its response.
func (h *Handler) ServeTicket(ctx context.Context, body []byte) Response {
	outcome, err := h.proc.HandleTicket(ctx, body)
	resp := TicketResponse(outcome, err)
	h.logResult(ctx, "ticket", resp, err)
	return resp
}

// ServeMessage runs the message flow and renders its response.
func (h *Handler) ServeMessage(ctx context.Context, body []byte, to, from string) Response {
	result, err := h.proc.HandleMessage(ctx, body, to, from)
	resp := MessageResponse(result, err)
	h.logResult(ctx, "message", resp, err)
	return resp
}

func (h *Handler) logResult(ctx context.Context, flow string, resp Response, err error) {
	if err == nil {
		return
	}
	logger := logging.FromContext(ctx, h.logger)
	level := slog.LevelWarn
	if resp.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "request failed",
		slog.String("flow", flow),
		slog.Int("status", resp.Status),
		slog.String("error", err.Error()),
	)
}

func (h *Handler) write(c *gin.Context, resp Response) {
	c.Data(resp.Status, resp.ContentType, resp.Body)
}

// TicketResponse maps a ticket outcome to a plain-text reply: the translated
// text on success, a neutral message when skipped, an error description otherwise.
func TicketResponse(outcome *processor.Outcome, err error) Response {
	if err != nil {
		status, msg := describeError(err)
		return text(status, msg)
	}
	if outcome == nil || outcome.State == processor.StateSkipped || outcome.Translation == nil {
		return text(http.StatusOK, processor.NotNecessaryMessage)
	}
	return text(http.StatusOK, outcome.Translation.Text)
}

// MessageResponse maps a message translation to a JSON reply.
func MessageResponse(result *translator.Result, err error) Response {
	if err != nil {
		status, msg := describeError(err)
		return jsonBody(status, gin.H{"error": msg})
	}
	return jsonBody(http.StatusOK, result)
}

func describeError(err error) (int, string) {
	var (
		malformed *payload.MalformedRequestError
		translErr *translator.TranslationError
		updateErr *devops.UpdateError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.As(err, &malformed):
		return http.StatusBadRequest, malformed.Error()
	case errors.As(err, &translErr):
		return http.StatusBadGateway, fmt.Sprintf("Translation failed: %v", translErr)
	case errors.As(err, &updateErr):
		return http.StatusBadGateway, fmt.Sprintf("Translation succeeded but the work item was not updated: %v", updateErr)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream call timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, &payload.MalformedRequestError{Reason: "failed to read body", Err: err}
	}
	return body, nil
}

func text(status int, msg string) Response {
	return Response{Status: status, ContentType: "text/plain; charset=utf-8", Body: []byte(msg)}
}

func jsonBody(status int, v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return text(http.StatusInternalServerError, "failed to encode response")
	}
	return Response{Status: status, ContentType: "application/json; charset=utf-8", Body: data}
}
