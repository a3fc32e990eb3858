package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-movie-finder/internal/application"
	"telegram-movie-finder/internal/domain/ports/adapter"
)

// tgbotapi v5.5 predates Mini App buttons, so inline keyboards are encoded
// with local types. ReplyMarkup is serialised as-is.
type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string      `json:"text"`
	URL          string      `json:"url,omitempty"`
	CallbackData string      `json:"callback_data,omitempty"`
	WebApp       *webAppInfo `json:"web_app,omitempty"`
}

type webAppInfo struct {
	URL string `json:"url"`
}

func inlineMarkup(rows [][]adapter.InlineButton) *inlineKeyboard {
	kb := &inlineKeyboard{InlineKeyboard: make([][]inlineButton, 0, len(rows))}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		out := make([]inlineButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			b := inlineButton{Text: label}
			switch {
			case btn.URL != "" && btn.WebApp:
				b.WebApp = &webAppInfo{URL: btn.URL}
			case btn.URL != "":
				b.URL = btn.URL
			case btn.Data != "":
				b.CallbackData = btn.Data
			default:
				b.CallbackData = label
			}
			out = append(out, b)
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, out)
	}
	return kb
}

// replyMarkup picks the keyboard of a reply; nil keeps the current one.
func replyMarkup(rep application.Reply) interface{} {
	switch {
	case len(rep.Inline) > 0:
		return inlineMarkup(rep.Inline)
	case rep.ContactLabel != "":
		kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(rep.ContactLabel)))
		kb.OneTimeKeyboard = true
		return kb
	case len(rep.Keyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(rep.Keyboard))
		for _, row := range rep.Keyboard {
			btns := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				btns = append(btns, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, btns)
		}
		return tgbotapi.NewReplyKeyboard(rows...)
	}
	return nil
}
