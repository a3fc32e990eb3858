package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"telegram-movie-finder/internal/domain/model"
)

var errEmptyReply = errors.New("empty model reply")

// BuildIntentPrompt is the single-shot extraction prompt shared by all providers.
func BuildIntentPrompt(text string) string {
	return fmt.Sprintf(`Task: Extract movie title from %q. Output JSON: { "isMovieRequest": boolean, "searchQuery": "Title", "russianResponse": "Text" }`, text)
}

// ParseIntent decodes a model reply, tolerating markdown code fences and
// chatter around the JSON object.
func ParseIntent(raw string) (model.Intent, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Intent{}, errEmptyReply
	}
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}

	var in model.Intent
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return model.Intent{}, fmt.Errorf("decode intent: %w", err)
	}
	in.SearchQuery = strings.TrimSpace(in.SearchQuery)
	return in, nil
}
