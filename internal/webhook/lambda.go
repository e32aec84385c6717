package webhook

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/ticket-translator/internal/logging"
)

// HandleLambda serves the webhook routes behind an API Gateway proxy integration.
func (h *Handler) HandleLambda(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := h.logger.With(slog.String("request_id", requestID))
	ctx = logging.WithContext(ctx, logger)

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			logger.Warn("invalid base64 body", slog.String("error", err.Error()))
			return toProxyResponse(text(http.StatusBadRequest, "invalid base64 body"), requestID), nil
		}
		body = decoded
	}

	path := "/" + strings.Trim(req.Path, "/")
	method := strings.ToUpper(req.HTTPMethod)

	var resp Response
	switch {
	case method == http.MethodPost && (path == "/webhook" || path == "/api/ticket"):
		resp = h.ServeTicket(ctx, body)
	case method == http.MethodPost && path == "/api/message":
		resp = h.ServeMessage(ctx, body, req.QueryStringParameters["to"], req.QueryStringParameters["from"])
	case method == http.MethodGet && path == "/healthz":
		resp = text(http.StatusOK, "ok")
	default:
		resp = text(http.StatusNotFound, "not found")
	}

	logger.Info("lambda request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.Status),
	)
	return toProxyResponse(resp, requestID), nil
}

func toProxyResponse(resp Response, requestID string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: resp.Status,
		Headers: map[string]string{
			"Content-Type": resp.ContentType,
			"X-Request-ID": requestID,
		},
		Body: string(resp.Body),
	}
}
