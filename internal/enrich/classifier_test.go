package enrich

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/engine"
)

func testProduct() *core.Product {
	return &core.Product{
		Handle:      "trail-pack",
		Title:       "Trail Pack",
		Vendor:      "Acme",
		ProductType: "Bags",
		Tags:        []string{"outdoor"},
		BodyHTML:    "<p>Roomy <strong>35L</strong> pack</p>",
	}
}

func noRetryFetcher(client *http.Client) *engine.Fetcher {
	return &engine.Fetcher{Client: client, Policy: &engine.RetryPolicy{}}
}

func TestClassifierRequiresAPIKey(t *testing.T) {
	classifier := NewClassifier("", "", "", nil)
	_, err := classifier.Classify(context.Background(), testProduct())
	require.ErrorIs(t, err, core.ErrInvalidInput)
	require.Contains(t, err.Error(), "api key")
}

func TestClassifierSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload chatCompletionRequest
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "test-model", payload.Model)
		require.Len(t, payload.Messages, 2)
		require.Contains(t, payload.Messages[1].Content, "Title: Trail Pack")
		require.Contains(t, payload.Messages[1].Content, "Description: Roomy 35L pack")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"category\":\"outdoor gear\",\"audience\":\"hikers\",\"tags\":[\" Backpack \",\"\"]}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	classifier := NewClassifier(server.URL, "test-key", "test-model", noRetryFetcher(server.Client()))
	result, err := classifier.Classify(context.Background(), testProduct())
	require.NoError(t, err)
	require.Equal(t, &core.Classification{
		Handle:   "trail-pack",
		Category: "outdoor gear",
		Audience: "hikers",
		Tags:     []string{"backpack"},
		Model:    "test-model",
	}, result)
}

func TestClassifierErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	classifier := NewClassifier(server.URL, "test-key", "", noRetryFetcher(server.Client()))
	_, err := classifier.Classify(context.Background(), testProduct())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")
	require.Contains(t, err.Error(), "nope")
	require.Equal(t, "ENRICH_PROVIDER_AUTH", ErrorCode(err))
}

func TestParseClassificationAcceptsFencedJSON(t *testing.T) {
	result, err := parseClassification(&chatCompletionResponse{Choices: []choice{{
		Message: chatMessage{Content: "```json\n{\"category\":\"skincare\"}\n```"},
	}}})
	require.NoError(t, err)
	require.Equal(t, "skincare", result.Category)

	_, err = parseClassification(&chatCompletionResponse{Choices: []choice{{Message: chatMessage{Content: `{"audience":"all"}`}}}})
	require.Error(t, err)

	_, err = parseClassification(&chatCompletionResponse{})
	require.Error(t, err)
}

func TestPlainTextTruncates(t *testing.T) {
	long := "<div>" + strings.Repeat("word ", 1000) + "</div>"
	text := plainText(long)
	require.True(t, strings.HasSuffix(text, "..."))
	require.Len(t, []rune(text), maxDescriptionRunes+3)
	require.Empty(t, plainText("   "))
}

func TestErrorCode(t *testing.T) {
	require.Equal(t, "", ErrorCode(nil))
	require.Equal(t, "ENRICH_PROVIDER_RATE_LIMIT", ErrorCode(&ProviderError{StatusCode: 429}))
	require.Equal(t, "ENRICH_PROVIDER_UNAVAILABLE", ErrorCode(&ProviderError{StatusCode: 502}))
	require.Equal(t, "ENRICH_PROVIDER_BAD_REQUEST", ErrorCode(&ProviderError{StatusCode: 422}))
	require.Equal(t, "ENRICH_PROVIDER_TIMEOUT", ErrorCode(context.DeadlineExceeded))
}
