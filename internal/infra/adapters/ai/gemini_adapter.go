// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
	"telegram-movie-finder/internal/infra/metrics"
)

var _ adapter.IntentAnalyzer = (*GeminiAnalyzer)(nil)

type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	maxOut int
}

// NewGeminiAnalyzer creates a Gemini intent analyzer using the official SDK.
func NewGeminiAnalyzer(ctx context.Context, apiKey, baseURL, defaultModel string, maxOut int) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if maxOut <= 0 {
		maxOut = 256
	}
	return &GeminiAnalyzer{client: c, model: modelOrDefault(defaultModel, "gemini-1.5-flash"), maxOut: maxOut}, nil
}

func (g *GeminiAnalyzer) Name() string { return "gemini" }

func (g *GeminiAnalyzer) Analyze(ctx context.Context, text string) (model.Intent, error) {
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(BuildIntentPrompt(text)),
		&genai.GenerateContentConfig{
			MaxOutputTokens:  int32(g.maxOut),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		metrics.ObserveIntentCall(g.Name(), g.model, time.Since(start).Milliseconds(), false)
		return model.Intent{}, err
	}
	if resp != nil && resp.UsageMetadata != nil {
		metrics.AddPromptTokens(g.Name(), g.model, int(resp.UsageMetadata.PromptTokenCount))
	}

	in, err := ParseIntent(firstText(resp))
	metrics.ObserveIntentCall(g.Name(), g.model, time.Since(start).Milliseconds(), err == nil)
	return in, err
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
