// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
)

var _ adapter.IntentAnalyzer = (*MultiAnalyzer)(nil)

// MultiAnalyzer tries providers in order and returns the first usable intent.
type MultiAnalyzer struct {
	providers []adapter.IntentAnalyzer
}

func NewMultiAnalyzer(providers ...adapter.IntentAnalyzer) *MultiAnalyzer {
	out := make([]adapter.IntentAnalyzer, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			out = append(out, p)
		}
	}
	return &MultiAnalyzer{providers: out}
}

func (m *MultiAnalyzer) Name() string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

func (m *MultiAnalyzer) Analyze(ctx context.Context, text string) (model.Intent, error) {
	if len(m.providers) == 0 {
		return model.Intent{}, errors.New("no intent provider configured")
	}
	var errs []error
	for _, p := range m.providers {
		in, err := p.Analyze(ctx, text)
		if err == nil {
			return in, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return model.Intent{}, errors.Join(errs...)
}
