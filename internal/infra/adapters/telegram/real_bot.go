package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/application"
	"telegram-movie-finder/internal/config"
	"telegram-movie-finder/internal/domain"
	"telegram-movie-finder/internal/domain/ports/adapter"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/metrics"
	red "telegram-movie-finder/internal/infra/redis"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

const interactionLockTTL = 30 * time.Second

// RealTelegramBotAdapter polls updates with tgbotapi and delegates every
// interaction to the BotFacade.
type RealTelegramBotAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	texts       application.Texts
	rateLimiter *red.RateLimiter
	locker      red.Locker
	log         *zerolog.Logger
	dev         bool
	now         func() time.Time

	menu          map[string]textHandler
	updateWorkers int
	cancelPolling context.CancelFunc
}

// NewRealTelegramBotAdapter wraps an authenticated bot. rateLimiter and
// locker are optional.
func NewRealTelegramBotAdapter(
	bot *tgbotapi.BotAPI,
	cfg *config.BotConfig,
	texts application.Texts,
	rateLimiter *red.RateLimiter,
	locker red.Locker,
	logger *zerolog.Logger,
	dev bool,
) (*RealTelegramBotAdapter, error) {
	if bot == nil {
		return nil, errors.New("bot api is nil")
	}
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if texts == nil {
		return nil, errors.New("texts are nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	r := &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		texts:         texts,
		rateLimiter:   rateLimiter,
		locker:        locker,
		log:           logger,
		dev:           dev,
		now:           time.Now,
		updateWorkers: workers,
	}
	r.menu = r.menuRoutes()
	return r, nil
}

// NewBotAPI authenticates against Telegram. endpoint may be empty.
func NewBotAPI(token, endpoint string) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	return tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
}

// Username is the bot's @name as reported by getMe.
func (r *RealTelegramBotAdapter) Username() string { return r.bot.Self.UserName }

// StartPolling blocks until ctx is cancelled. The facade must be set before
// the first update is read.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context, facade *application.BotFacade) error {
	if facade == nil {
		return errors.New("bot facade is nil")
	}
	r.facade = facade

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, up); err != nil {
						r.log.Error().Err(err).Int("worker", id).Msg("telegram update failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			select {
			case updateChan <- up:
			case <-ctx.Done():
			}
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, logging.NewTraceID())

	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}
	tgID := msg.From.ID
	ctx = logging.WithTgID(ctx, tgID)

	command := "message"
	switch {
	case msg.Contact != nil:
		command = "contact"
	case msg.IsCommand():
		command = "/" + msg.Command()
	}
	ctx = logging.WithAction(ctx, command)
	metrics.IncTelegramCommand(command)

	release, ok := r.guard(ctx, tgID, command, r.cfg.RateLimitPerMinute)
	if !ok {
		return nil
	}
	defer release()

	switch {
	case msg.Contact != nil:
		return r.handleContact(ctx, msg)
	case msg.IsCommand():
		if fn, ok := r.commandRoutes()[msg.Command()]; ok {
			return fn(ctx, msg)
		}
		return r.sendReplies(ctx, msg.Chat.ID, []application.Reply{r.facade.Notice(ctx, tgID, "unknown_command")}, nil)
	default:
		return r.handleText(ctx, msg)
	}
}

// guard applies the per-user rate limit and takes the interaction lock. When
// ok is false the user has already been told why.
func (r *RealTelegramBotAdapter) guard(ctx context.Context, tgID int64, key string, perMinute int) (release func(), ok bool) {
	if r.rateLimiter != nil {
		if perMinute <= 0 {
			perMinute = 20
		}
		allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(tgID, key), perMinute, time.Minute)
		if err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter unavailable")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			_ = r.sendReplies(ctx, tgID, []application.Reply{r.facade.Notice(ctx, tgID, "rate_limited")}, nil)
			return nil, false
		}
	}

	if r.locker == nil {
		return func() {}, true
	}
	lockKey := red.UserInteractionKey(tgID)
	token, err := r.locker.TryLock(ctx, lockKey, interactionLockTTL)
	switch {
	case errors.Is(err, domain.ErrLockNotAcquired):
		metrics.IncLockContended()
		_ = r.sendReplies(ctx, tgID, []application.Reply{r.facade.Notice(ctx, tgID, "busy")}, nil)
		return nil, false
	case err != nil:
		// redis trouble must not take the bot down; run unserialised
		logging.With(ctx, r.log).Warn().Err(err).Msg("interaction lock unavailable")
		return func() {}, true
	}
	return func() {
		if err := r.locker.Unlock(context.Background(), lockKey, token); err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("release interaction lock")
		}
	}, true
}

func (r *RealTelegramBotAdapter) handleContact(ctx context.Context, msg *tgbotapi.Message) error {
	c := msg.Contact
	logging.With(ctx, r.log).Info().
		Str("phone", logging.Redact(c.PhoneNumber, r.dev)).
		Int64("contact_user_id", c.UserID).
		Msg("contact received")
	replies, err := r.facade.HandleContact(ctx, msg.From.ID, displayName(msg.From), c.PhoneNumber, c.UserID, r.now())
	return r.sendReplies(ctx, msg.Chat.ID, replies, err)
}

// sendReplies delivers replies in order. A facade error is logged here; the
// user already has the generic message among the replies.
func (r *RealTelegramBotAdapter) sendReplies(ctx context.Context, chatID int64, replies []application.Reply, facadeErr error) error {
	if facadeErr != nil {
		logging.With(ctx, r.log).Error().Err(facadeErr).Msg("interaction failed")
	}
	for _, rep := range replies {
		if err := r.sendReply(ctx, chatID, rep); err != nil {
			return err
		}
	}
	return nil
}

func (r *RealTelegramBotAdapter) sendReply(ctx context.Context, chatID int64, rep application.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	markup := replyMarkup(rep)
	parseMode := ""
	if rep.HTML {
		parseMode = tgbotapi.ModeHTML
	}

	if rep.PhotoURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(rep.PhotoURL))
		photo.Caption = rep.Text
		photo.ParseMode = parseMode
		photo.ReplyMarkup = markup
		_, err := r.bot.Send(photo)
		if err == nil {
			return nil
		}
		// dead poster links are common; the card still goes out as text
		logging.With(ctx, r.log).Warn().Err(err).Str("photo", rep.PhotoURL).Msg("send photo failed")
	}

	msg := tgbotapi.NewMessage(chatID, rep.Text)
	msg.ParseMode = parseMode
	msg.ReplyMarkup = markup
	_, err := r.bot.Send(msg)
	return err
}

// SendMessage implements adapter.TelegramBotAdapter.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	return r.sendReply(ctx, tgID, application.Reply{Text: text})
}

// SendButtons sends a message with inline buttons.
// - URL buttons open a link, as a Mini App when WebApp is set
// - Data buttons send callback data
// - anything else falls back to the label as callback data
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	return r.sendReply(ctx, tgID, application.Reply{Text: text, Inline: rows})
}

// Notify implements adapter.Notifier. Notifications carry HTML markup.
func (r *RealTelegramBotAdapter) Notify(ctx context.Context, tgID int64, text string) error {
	return r.sendReply(ctx, tgID, application.Reply{Text: text, HTML: true})
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
