package application

import (
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
)

// Reply is one outbound message. The gateway renders it; the facade never
// touches the Telegram API.
type Reply struct {
	Text string
	HTML bool
	// PhotoURL turns the message into a photo with Text as its caption.
	PhotoURL string
	Inline   [][]adapter.InlineButton
	// Keyboard replaces the persistent reply keyboard.
	Keyboard [][]string
	// ContactLabel asks for the user's own phone number through a one-time
	// keyboard button.
	ContactLabel string
}

// Texts is the localizer plus the reverse lookup used to recognise
// keyboard buttons pressed in any language.
type Texts interface {
	adapter.Localizer
	Variants(key string) []string
}

// Language buttons are shown before the user has a language, so they are
// the same for everyone.
var languageButtons = []struct {
	Label string
	Lang  model.Language
}{
	{"🇺🇿 O'zbek", model.LanguageUz},
	{"🇷🇺 Русский", model.LanguageRu},
	{"🇺🇸 English", model.LanguageEn},
}

// LanguageFromButton maps a pressed language button to its language.
func LanguageFromButton(text string) (model.Language, bool) {
	for _, b := range languageButtons {
		if b.Label == text {
			return b.Lang, true
		}
	}
	return "", false
}

var genreEmoji = map[int]string{
	28:    "💥",
	35:    "😂",
	27:    "🧟‍♂️",
	18:    "🎭",
	14:    "🧙‍♂️",
	10749: "💘",
	16:    "🧸",
	878:   "🚀",
}

const (
	CallbackGenrePrefix  = "genre_"
	CallbackSelectPrefix = "select_"
)
