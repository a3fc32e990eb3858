package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
	"telegram-movie-finder/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.IntentAnalyzer = (*OpenAIAnalyzer)(nil)

// OpenAIAnalyzer extracts intents through the Chat Completions API. Any
// OpenAI-compatible gateway works through baseURL.
type OpenAIAnalyzer struct {
	client    openai.Client
	model     string
	maxPrompt int
	enc       *tiktoken.Tiktoken
}

func NewOpenAIAnalyzer(apiKey, baseURL, defaultModel string, maxPromptTokens int) (*OpenAIAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(30 * time.Second),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	a := &OpenAIAnalyzer{
		client:    openai.NewClient(opts...),
		model:     modelOrDefault(defaultModel, "gpt-4o-mini"),
		maxPrompt: maxPromptTokens,
	}
	if maxPromptTokens > 0 {
		a.enc = encodingFor(a.model)
	}
	return a, nil
}

// encodingFor returns nil when no tokenizer is available; trimming then
// falls back to a rune budget.
func encodingFor(m string) *tiktoken.Tiktoken {
	if enc, err := tiktoken.EncodingForModel(m); err == nil {
		return enc
	}
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		return enc
	}
	return nil
}

func (o *OpenAIAnalyzer) Name() string { return "openai" }

func (o *OpenAIAnalyzer) Analyze(ctx context.Context, text string) (model.Intent, error) {
	prompt := BuildIntentPrompt(trimToTokens(o.enc, text, o.maxPrompt))

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(200),
		Temperature:         openai.Float(0),
	})
	if err != nil {
		metrics.ObserveIntentCall(o.Name(), o.model, time.Since(start).Milliseconds(), false)
		return model.Intent{}, err
	}
	metrics.AddPromptTokens(o.Name(), o.model, int(resp.Usage.PromptTokens))

	var content string
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			content = c.Message.Content
			break
		}
	}
	in, err := ParseIntent(content)
	metrics.ObserveIntentCall(o.Name(), o.model, time.Since(start).Milliseconds(), err == nil)
	return in, err
}

// trimToTokens cuts text to at most max tokens. Pasted captions and links
// can be long; the title is almost always near the start.
func trimToTokens(enc *tiktoken.Tiktoken, text string, max int) string {
	if max <= 0 {
		return text
	}
	if enc == nil {
		r := []rune(text)
		if len(r) > max*4 {
			return string(r[:max*4])
		}
		return text
	}
	toks := enc.Encode(text, nil, nil)
	if len(toks) <= max {
		return text
	}
	return enc.Decode(toks[:max])
}
