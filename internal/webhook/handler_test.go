package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticket-translator/internal/config"
	"github.com/ticket-translator/internal/devops"
	"github.com/ticket-translator/internal/logging"
	"github.com/ticket-translator/internal/processor"
	"github.com/ticket-translator/internal/translator"
)

type stubTranslator struct {
	calls  []translator.Request
	result *translator.Result
	err    error
}

func (s *stubTranslator) Translate(_ context.Context, req translator.Request) (*translator.Result, error) {
	s.calls = append(s.calls, req)
	return s.result, s.err
}

type stubDevOps struct {
	calls []devops.UpdateCommand
	err   error
}

func (s *stubDevOps) UpdateField(_ context.Context, cmd devops.UpdateCommand) error {
	s.calls = append(s.calls, cmd)
	return s.err
}

func newTestHandler(tr *stubTranslator, dev *stubDevOps) (*Handler, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Translator: config.TranslatorConfig{APIVersion: "3.0", TargetLanguage: "en"},
		DevOps:     config.DevOpsConfig{SourceField: "Description", TargetField: "TranslatedDescription"},
	}
	proc := processor.New(cfg, tr, dev, logging.Discard())
	handler := New(proc, logging.Discard())

	router := gin.New()
	handler.Register(router)
	return handler, router
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const changedPayload = `{
	"resource": {"workItemId": 5, "fields": {"Description": {"newValue": "Hallo Welt"}}},
	"resourceContainers": {"project": {"id": "p", "baseUrl": "https://dev.azure.com/org/"}}
}`

func TestTicketTranslatedAndUpdated(t *testing.T) {
	tr := &stubTranslator{result: &translator.Result{Text: "Hello World", To: "en"}}
	dev := &stubDevOps{}
	_, router := newTestHandler(tr, dev)

	rec := post(router, "/webhook", changedPayload)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello World", rec.Body.String())
	require.Len(t, tr.calls, 1)
	assert.Equal(t, "Hallo Welt", tr.calls[0].Text)
	require.Len(t, dev.calls, 1)
	assert.Equal(t, "TranslatedDescription", dev.calls[0].Field)
	assert.Equal(t, "Hello World", dev.calls[0].Value)
}

func TestTicketNotNecessary(t *testing.T) {
	tr := &stubTranslator{}
	dev := &stubDevOps{}
	_, router := newTestHandler(tr, dev)

	rec := post(router, "/api/ticket", `{"resource": {"revision": {"fields": {"TranslatedDescription": "already there"}}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, processor.NotNecessaryMessage, rec.Body.String())
	assert.Empty(t, tr.calls)
	assert.Empty(t, dev.calls)
}

func TestTicketTranslationError(t *testing.T) {
	tr := &stubTranslator{err: &translator.TranslationError{Key: "translations"}}
	dev := &stubDevOps{}
	_, router := newTestHandler(tr, dev)

	rec := post(router, "/webhook", changedPayload)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Translation failed")
	assert.Contains(t, rec.Body.String(), "translations")
	assert.Empty(t, dev.calls)
}

func TestTicketUpdateError(t *testing.T) {
	tr := &stubTranslator{result: &translator.Result{Text: "Hello World"}}
	dev := &stubDevOps{err: &devops.UpdateError{WorkItemID: 5, StatusCode: http.StatusUnauthorized}}
	_, router := newTestHandler(tr, dev)

	rec := post(router, "/webhook", changedPayload)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "work item was not updated")
	assert.Contains(t, rec.Body.String(), "access denied")
}

func TestTicketMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"resource": `},
		{name: "array", body: `[]`},
		{name: "trailing data", body: `{"resource": {"revision": {"fields": {"TranslatedDescription": "x"}}}} }}} not json`},
		{name: "zero work item id", body: `{"resource": {"workItemId": 0, "fields": {"Description": {"newValue": "Hallo"}}}, "resourceContainers": {"project": {"id": "p", "baseUrl": "https://dev.azure.com/org/"}}}`},
		{name: "missing ticket reference", body: `{"resource": {"fields": {"Description": {"newValue": "Hallo"}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &stubTranslator{}
			_, router := newTestHandler(tr, &stubDevOps{})

			rec := post(router, "/webhook", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "malformed request")
			assert.Empty(t, tr.calls)
		})
	}
}

func TestTicketBodyTooLarge(t *testing.T) {
	_, router := newTestHandler(&stubTranslator{}, &stubDevOps{})

	body := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMessage(t *testing.T) {
	tr := &stubTranslator{result: &translator.Result{Text: "Bonjour", To: "fr", DetectedLanguage: "en", Score: 1}}
	_, router := newTestHandler(tr, &stubDevOps{})

	rec := post(router, "/api/message?to=fr", `{"message": {"text": "Hello", "html": "<p>Hello</p>", "markdown": "Hello"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var got translator.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, translator.Result{Text: "Bonjour", To: "fr", DetectedLanguage: "en", Score: 1}, got)
	require.Len(t, tr.calls, 1)
	assert.Equal(t, "fr", tr.calls[0].To)
}

func TestMessageMissingText(t *testing.T) {
	_, router := newTestHandler(&stubTranslator{}, &stubDevOps{})

	rec := post(router, "/api/message", `{"message": {"html": "<p></p>"}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got["error"], "message.text is required")
}

func TestHandleLambda(t *testing.T) {
	tr := &stubTranslator{result: &translator.Result{Text: "Hello World", To: "en"}}
	dev := &stubDevOps{}
	handler, _ := newTestHandler(tr, dev)

	resp, err := handler.HandleLambda(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/webhook/",
		Body:       changedPayload,
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: "req-1",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello World", resp.Body)
	assert.Equal(t, "req-1", resp.Headers["X-Request-ID"])
	assert.Len(t, dev.calls, 1)

	resp, err = handler.HandleLambda(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/unknown",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Headers["X-Request-ID"])

	resp, err = handler.HandleLambda(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/message",
		Body:            "%%%",
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
