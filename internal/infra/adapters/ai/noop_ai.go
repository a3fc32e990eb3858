package ai

import (
	"context"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
)

var _ adapter.IntentAnalyzer = (*NoopAnalyzer)(nil)

// NoopAnalyzer searches the catalog with the raw text. Used in dev and when
// no provider key is configured.
type NoopAnalyzer struct{}

func NewNoopAnalyzer() *NoopAnalyzer {
	return &NoopAnalyzer{}
}

func (a *NoopAnalyzer) Name() string { return "none" }

func (a *NoopAnalyzer) Analyze(ctx context.Context, text string) (model.Intent, error) {
	if err := ctx.Err(); err != nil {
		return model.Intent{}, err
	}
	return model.PassThroughIntent(text), nil
}
