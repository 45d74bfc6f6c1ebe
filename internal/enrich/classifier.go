// Package enrich classifies storefront products with an OpenAI-compatible
// chat completion endpoint.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/engine"
)

const (
	// ClassClassify is the rate limit class for classification calls.
	ClassClassify = "llm:classify"

	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 15 * time.Second
)

// Classifier assigns a category, audience and tags to products.
type Classifier struct {
	BaseURL string
	APIKey  string
	Model   string
	Fetcher *engine.Fetcher
	Timeout time.Duration
}

// NewClassifier returns a classifier with defaults applied.
func NewClassifier(baseURL, apiKey, model string, fetcher *engine.Fetcher) *Classifier {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = DefaultBaseURL
	}
	name := strings.TrimSpace(model)
	if name == "" {
		name = DefaultModel
	}
	return &Classifier{
		BaseURL: url,
		APIKey:  strings.TrimSpace(apiKey),
		Model:   name,
		Fetcher: fetcher,
		Timeout: DefaultTimeout,
	}
}

// Classify asks the model to classify product.
func (c *Classifier) Classify(ctx context.Context, product *core.Product) (*core.Classification, error) {
	if c == nil {
		return nil, fmt.Errorf("classifier not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key is required", core.ErrInvalidInput)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: product is required", core.ErrInvalidInput)
	}

	payload, err := buildClassifyRequest(c.Model, product)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	fetcher := c.Fetcher
	if fetcher == nil {
		fetcher = &engine.Fetcher{}
	}
	resp, err := fetcher.Do(ctx, req, engine.RequestOptions{
		Class:   ClassClassify,
		Context: "classify product",
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	result, err := parseClassification(&parsed)
	if err != nil {
		return nil, err
	}

	result.Handle = product.Handle
	result.Model = c.Model
	return result, nil
}
