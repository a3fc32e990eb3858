package adapter

import "telegram-movie-finder/internal/domain/model"

// Localizer renders a message key in the user's language. Unknown keys are
// returned as-is.
type Localizer interface {
	T(lang model.Language, key string, args ...interface{}) string
}
