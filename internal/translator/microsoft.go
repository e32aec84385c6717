package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	headerSubscriptionKey    = "Ocp-Apim-Subscription-Key"
	headerSubscriptionRegion = "Ocp-Apim-Subscription-Region"
)

// Microsoft is a client for the Microsoft Translator v3 REST API.
type Microsoft struct {
	endpoint   *url.URL
	key        string
	region     string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

type textItem struct {
	Text string `json:"text"`
}

type translateResponse struct {
	DetectedLanguage *struct {
		Language string  `json:"language"`
		Score    float64 `json:"score"`
	} `json:"detectedLanguage"`
	Translations []struct {
		Text *string `json:"text"`
		To   string  `json:"to"`
	} `json:"translations"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Language describes a supported translation language.
type Language struct {
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
	Dir        string `json:"dir"`
}

// NewMicrosoft creates a Translator client for endpoint, e.g.
// https://api.cognitive.microsofttranslator.com/.
func NewMicrosoft(endpoint, key, region, apiVersion string, httpClient *http.Client, logger *slog.Logger) (*Microsoft, error) {
	if endpoint == "" {
		return nil, errors.New("translator endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse translator endpoint: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Microsoft{
		endpoint:   u,
		key:        key,
		region:     region,
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Translate sends req.Text as a batch of one and returns the first translation.
func (c *Microsoft) Translate(ctx context.Context, req Request) (*Result, error) {
	apiVersion := req.APIVersion
	if apiVersion == "" {
		apiVersion = c.apiVersion
	}

	endpoint := c.endpoint.JoinPath("translate")
	query := endpoint.Query()
	query.Set("api-version", apiVersion)
	query.Set("to", req.To)
	if req.From != "" {
		query.Set("from", req.From)
	}
	endpoint.RawQuery = query.Encode()

	payload, err := json.Marshal([]textItem{{Text: req.Text}})
	if err != nil {
		return nil, fmt.Errorf("marshal translate payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	c.logger.Debug("translating text", slog.String("to", req.To), slog.String("from", req.From), slog.Int("length", len(req.Text)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TranslationError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TranslationError{Err: fmt.Errorf("read response: %w", err)}
	}
	c.logger.Debug("translator response", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TranslationError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	}

	return parseTranslation(body)
}

func parseTranslation(body []byte) (*Result, error) {
	var items []translateResponse
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &TranslationError{Message: "decode response", Err: err}
	}
	if len(items) == 0 {
		return nil, &TranslationError{Key: "0"}
	}
	first := items[0]
	if len(first.Translations) == 0 {
		return nil, &TranslationError{Key: "translations"}
	}
	if first.Translations[0].Text == nil {
		return nil, &TranslationError{Key: "text"}
	}

	result := &Result{
		Text: *first.Translations[0].Text,
		To:   first.Translations[0].To,
	}
	if first.DetectedLanguage != nil {
		result.DetectedLanguage = first.DetectedLanguage.Language
		result.Score = first.DetectedLanguage.Score
	}
	return result, nil
}

func apiErrorMessage(body []byte) string {
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Sprintf("%s (code %d)", apiErr.Error.Message, apiErr.Error.Code)
	}
	return strings.TrimSpace(string(body))
}

// Languages lists the languages the translate operation supports.
func (c *Microsoft) Languages(ctx context.Context) (map[string]Language, error) {
	endpoint := c.endpoint.JoinPath("languages")
	query := endpoint.Query()
	query.Set("api-version", c.apiVersion)
	query.Set("scope", "translation")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translator languages request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &TranslationError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	}

	var languages struct {
		Translation map[string]Language `json:"translation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return nil, fmt.Errorf("decode languages response: %w", err)
	}
	return languages.Translation, nil
}

// CheckLanguage verifies that the provider can translate into lang.
func (c *Microsoft) CheckLanguage(ctx context.Context, lang string) error {
	languages, err := c.Languages(ctx)
	if err != nil {
		return err
	}
	if _, ok := languages[lang]; !ok {
		return fmt.Errorf("language %q is not supported", lang)
	}
	return nil
}

func (c *Microsoft) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerSubscriptionKey, c.key)
	req.Header.Set(headerSubscriptionRegion, c.region)
	req.Header.Set("charset", "UTF-8")
}
