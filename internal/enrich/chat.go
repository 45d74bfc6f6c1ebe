package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/storelens/storelens/internal/core"
)

const maxDescriptionRunes = 1500

const systemPrompt = `You classify e-commerce products. Reply with a JSON object:
{"category": string, "audience": string, "tags": [string]}.
category is a short noun phrase such as "outdoor gear" or "skincare".
audience is who the product is for, or "general".
tags holds at most five lowercase keywords.`

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type classificationPayload struct {
	Category string   `json:"category"`
	Audience string   `json:"audience"`
	Tags     []string `json:"tags"`
}

func buildClassifyRequest(model string, product *core.Product) (*chatCompletionRequest, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	temperature := 0.0
	return &chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: describeProduct(product)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    &temperature,
	}, nil
}

func describeProduct(product *core.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", product.Title)
	if product.Vendor != "" {
		fmt.Fprintf(&b, "Vendor: %s\n", product.Vendor)
	}
	if product.ProductType != "" {
		fmt.Fprintf(&b, "Type: %s\n", product.ProductType)
	}
	if len(product.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(product.Tags, ", "))
	}
	if text := plainText(product.BodyHTML); text != "" {
		fmt.Fprintf(&b, "Description: %s\n", text)
	}
	return b.String()
}

// plainText strips markup and truncates long descriptions.
func plainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > maxDescriptionRunes {
		text = string(runes[:maxDescriptionRunes]) + "..."
	}
	return text
}

func parseClassification(resp *chatCompletionResponse) (*core.Classification, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var payload classificationPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	if strings.TrimSpace(payload.Category) == "" {
		return nil, fmt.Errorf("decode classification: missing category")
	}

	tags := make([]string, 0, len(payload.Tags))
	for _, tag := range payload.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	return &core.Classification{
		Category: strings.TrimSpace(payload.Category),
		Audience: strings.TrimSpace(payload.Audience),
		Tags:     tags,
	}, nil
}
