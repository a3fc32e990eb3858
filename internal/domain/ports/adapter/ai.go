package adapter

import (
	"context"

	"telegram-movie-finder/internal/domain/model"
)

// IntentAnalyzer is the port for the language model that turns a free-text
// query (title, plot description, link) into a catalog search query.
type IntentAnalyzer interface {
	Name() string
	Analyze(ctx context.Context, text string) (model.Intent, error)
}
