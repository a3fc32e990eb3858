package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-movie-finder/internal/application"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/metrics"
)

type cbHandler func(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, data string) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Prefix-match callbacks
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: application.CallbackGenrePrefix, Fn: r.genreCBRoute},
		{Prefix: application.CallbackSelectPrefix, Fn: r.selectCBRoute},
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop telegram spinner when we return
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	var chatID int64
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	} else {
		chatID = query.From.ID
	}
	if chatID == 0 {
		return nil
	}
	ctx = logging.WithTgID(ctx, query.From.ID)

	data := strings.TrimSpace(query.Data)
	for _, pr := range r.cbPrefixRoutes() {
		if !strings.HasPrefix(data, pr.Prefix) {
			continue
		}
		action := strings.TrimSuffix(pr.Prefix, "_")
		ctx = logging.WithAction(ctx, action)
		metrics.IncTelegramCommand("cb:" + action)

		release, ok := r.guard(ctx, query.From.ID, "cb:"+action, r.cfg.RateLimitPerMinute)
		if !ok {
			return nil
		}
		defer release()
		return pr.Fn(ctx, query, chatID, strings.TrimPrefix(data, pr.Prefix))
	}
	return errors.New("unknown callback data")
}

func (r *RealTelegramBotAdapter) genreCBRoute(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, data string) error {
	genreID, err := strconv.Atoi(data)
	if err != nil || genreID <= 0 {
		return errors.New("bad genre id")
	}
	replies, ferr := r.facade.SelectGenre(ctx, q.From.ID, displayName(q.From), genreID, r.now())
	return r.sendReplies(ctx, chatID, replies, ferr)
}

func (r *RealTelegramBotAdapter) selectCBRoute(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, data string) error {
	movieID, err := strconv.ParseInt(data, 10, 64)
	if err != nil || movieID <= 0 {
		return errors.New("bad movie id")
	}
	replies, ferr := r.facade.HandleDetails(ctx, q.From.ID, displayName(q.From), movieID, r.now())
	return r.sendReplies(ctx, chatID, replies, ferr)
}
