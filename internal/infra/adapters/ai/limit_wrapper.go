package ai

import (
	"context"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.IntentAnalyzer = (*limitedAnalyzer)(nil)

type limitedAnalyzer struct {
	inner adapter.IntentAnalyzer
	sem   chan struct{}
}

// NewLimitedAnalyzer caps concurrent calls to inner. Waiting callers give up
// when their context ends.
func NewLimitedAnalyzer(inner adapter.IntentAnalyzer, maxConcurrent int) adapter.IntentAnalyzer {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAnalyzer{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAnalyzer) Name() string { return l.inner.Name() }

func (l *limitedAnalyzer) Analyze(ctx context.Context, text string) (model.Intent, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return model.Intent{}, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Analyze(ctx, text)
}
