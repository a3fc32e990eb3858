package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain"
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/usecase"
)

const overviewLimit = 300

// BotFacade composes the use cases into gateway replies. Every method returns
// something to send; a non-nil error comes with the generic retry reply and
// is meant for the log only.
type BotFacade struct {
	UserUC     usecase.UserUseCase
	TrialUC    usecase.TrialUseCase
	ReferralUC usecase.ReferralUseCase
	SearchUC   usecase.SearchUseCase

	texts       Texts
	policy      model.Policy
	botUsername string
	log         *zerolog.Logger
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	trialUC usecase.TrialUseCase,
	referralUC usecase.ReferralUseCase,
	searchUC usecase.SearchUseCase,
	texts Texts,
	policy model.Policy,
	botUsername string,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		UserUC:      userUC,
		TrialUC:     trialUC,
		ReferralUC:  referralUC,
		SearchUC:    searchUC,
		texts:       texts,
		policy:      policy,
		botUsername: botUsername,
		log:         logger,
	}
}

// HandleStart records the user and asks for a language. A referral payload
// only counts on the very first /start, when the record is created.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, name, payload string, now time.Time) ([]Reply, error) {
	u, created, err := b.touch(ctx, tgID, name, now)
	if err != nil {
		return b.failure(model.DefaultLanguage, err)
	}
	if created && payload != "" {
		outcome, err := b.ReferralUC.Apply(ctx, tgID, payload, now)
		if err != nil {
			// the new user still gets the language prompt
			logging.With(ctx, b.log).Error().Err(err).Msg("apply referral")
		} else {
			logging.With(ctx, b.log).Info().Str("outcome", string(outcome)).Msg("referral")
		}
	}

	row := make([]string, 0, len(languageButtons))
	for _, lb := range languageButtons {
		row = append(row, lb.Label)
	}
	return []Reply{{Text: b.texts.T(u.Language, "lang_prompt"), Keyboard: [][]string{row}}}, nil
}

func (b *BotFacade) SelectLanguage(ctx context.Context, tgID int64, name string, lang model.Language, now time.Time) ([]Reply, error) {
	if _, _, err := b.touch(ctx, tgID, name, now); err != nil {
		return b.failure(lang, err)
	}
	if _, err := b.UserUC.SetLanguage(ctx, tgID, lang, now); err != nil {
		return b.failure(lang, err)
	}
	return []Reply{
		{Text: b.texts.T(lang, "preview", b.policy.FreeSearchLimit), HTML: true},
		b.mainMenu(lang),
	}, nil
}

// HandleContact registers the phone of the sender. ownerID is the Telegram id
// the shared contact belongs to; anything but the sender's own is refused.
func (b *BotFacade) HandleContact(ctx context.Context, tgID int64, name, phone string, ownerID int64, now time.Time) ([]Reply, error) {
	u, _, err := b.touch(ctx, tgID, name, now)
	if err != nil {
		return b.failure(model.DefaultLanguage, err)
	}
	lang := u.Language
	if ownerID != tgID {
		return []Reply{{Text: b.texts.T(lang, "contact_not_own")}}, nil
	}
	u, already, err := b.UserUC.RegisterContact(ctx, tgID, name, phone, now)
	if err != nil {
		return b.failure(lang, err)
	}
	lang = u.Language
	key := "trial_active"
	if already {
		key = "already_registered"
	}
	return []Reply{{Text: b.texts.T(lang, key), HTML: true}, b.mainMenu(lang)}, nil
}

func (b *BotFacade) SearchPrompt(ctx context.Context, tgID int64, name string, now time.Time) ([]Reply, error) {
	u, _, err := b.touch(ctx, tgID, name, now)
	if err != nil {
		return b.failure(model.DefaultLanguage, err)
	}
	return []Reply{{Text: b.texts.T(u.Language, "search_prompt")}}, nil
}

func (b *BotFacade) HandleGenres(ctx context.Context, tgID int64, name string, now time.Time) ([]Reply, error) {
	acc, err := b.SearchUC.BrowseGenres(ctx, tgID, name, now)
	if err != nil {
		return b.failure(b.LanguageOf(ctx, tgID), err)
	}
	lang := acc.User.Language
	if !acc.Verdict.Allowed {
		return []Reply{b.denial(lang, acc.Verdict)}, nil
	}

	var rows [][]adapter.InlineButton
	for i := 0; i < len(model.BrowseGenres); i += 2 {
		var row []adapter.InlineButton
		for _, id := range model.BrowseGenres[i:minInt(i+2, len(model.BrowseGenres))] {
			row = append(row, adapter.InlineButton{
				Text: genreEmoji[id] + " " + b.genreName(lang, id),
				Data: CallbackGenrePrefix + strconv.Itoa(id),
			})
		}
		rows = append(rows, row)
	}
	return []Reply{{Text: b.texts.T(lang, "genres_title"), HTML: true, Inline: rows}}, nil
}

func (b *BotFacade) SelectGenre(ctx context.Context, tgID int64, name string, genreID int, now time.Time) ([]Reply, error) {
	acc, err := b.SearchUC.SelectGenre(ctx, tgID, name, genreID, now)
	if err != nil {
		return b.failure(b.LanguageOf(ctx, tgID), err)
	}
	lang := acc.User.Language
	if !acc.Verdict.Allowed {
		return []Reply{b.denial(lang, acc.Verdict)}, nil
	}
	return []Reply{{Text: b.texts.T(lang, "genre_selected", b.genreName(lang, genreID)), HTML: true}}, nil
}

func (b *BotFacade) HandleSearch(ctx context.Context, tgID int64, name, text string, now time.Time) ([]Reply, error) {
	res, err := b.SearchUC.Search(ctx, tgID, name, text, now)
	if err != nil {
		return b.failure(b.LanguageOf(ctx, tgID), err)
	}
	lang := res.Access.User.Language
	if !res.Access.Verdict.Allowed {
		return []Reply{b.denial(lang, res.Access.Verdict)}, nil
	}
	if !res.Intent.IsMovieRequest && res.Intent.SearchQuery == "" {
		if res.Intent.Reply != "" {
			return []Reply{{Text: res.Intent.Reply}}, nil
		}
		return []Reply{{Text: b.texts.T(lang, "not_movie")}}, nil
	}
	if len(res.Movies) == 0 {
		return []Reply{{Text: b.texts.T(lang, "not_found")}}, nil
	}

	rows := make([][]adapter.InlineButton, 0, len(res.Movies))
	for _, m := range res.Movies {
		rows = append(rows, []adapter.InlineButton{{
			Text: fmt.Sprintf("🎬 %s (%s)", m.Title, m.Year()),
			Data: CallbackSelectPrefix + strconv.FormatInt(m.ID, 10),
		}})
	}
	return []Reply{{Text: b.texts.T(lang, "results"), Inline: rows}}, nil
}

func (b *BotFacade) HandleDetails(ctx context.Context, tgID int64, name string, movieID int64, now time.Time) ([]Reply, error) {
	res, err := b.SearchUC.Details(ctx, tgID, name, movieID, now)
	if err != nil {
		return b.failure(b.LanguageOf(ctx, tgID), err)
	}
	lang := res.Access.User.Language
	if !res.Access.Verdict.Allowed {
		return []Reply{b.denial(lang, res.Access.Verdict)}, nil
	}
	if res.Movie == nil {
		return []Reply{{Text: b.texts.T(lang, "movie_unavailable")}}, nil
	}

	m := res.Movie
	var rows [][]adapter.InlineButton
	for _, l := range model.WatchLinks(*m) {
		rows = append(rows, []adapter.InlineButton{{Text: b.texts.T(lang, "watch_"+l.Kind), URL: l.URL, WebApp: l.WebApp}})
	}
	return []Reply{{Text: Caption(*m), HTML: true, PhotoURL: m.PosterURL(), Inline: rows}}, nil
}

// HandleCabinet shows the entitlement snapshot and the referral link.
func (b *BotFacade) HandleCabinet(ctx context.Context, tgID int64, name string, now time.Time) ([]Reply, error) {
	u, _, err := b.touch(ctx, tgID, name, now)
	if err != nil {
		return b.failure(b.LanguageOf(ctx, tgID), err)
	}
	lang := u.Language

	status := "status_none"
	switch {
	case u.IsPremium:
		status = "status_premium"
	case u.IsTrial:
		status = "status_trial"
	}
	body := b.texts.T(lang, "cabinet_body",
		u.TelegramID,
		b.texts.T(lang, status),
		b.policy.TrialDaysLeft(u, now),
		u.Points,
		u.ReferralCount,
		u.FreeSearchCount, b.policy.FreeSearchLimit,
		b.ReferralLink(u.TelegramID),
	)
	return []Reply{{Text: b.texts.T(lang, "cabinet_title") + "\n\n" + body, HTML: true}}, nil
}

func (b *BotFacade) HandlePremium(ctx context.Context, tgID int64, name string, now time.Time) ([]Reply, error) {
	u, _, err := b.touch(ctx, tgID, name, now)
	if err != nil {
		return b.failure(model.DefaultLanguage, err)
	}
	friends := b.policy.PremiumCostPoints / b.policy.PointsPerRef
	return []Reply{{
		Text: b.texts.T(u.Language, "premium_quote", friends, b.policy.PointsPerRef, b.policy.PremiumCostPoints),
		HTML: true,
	}}, nil
}

// Notice renders a single localized message, for gateway-level answers such
// as rate limiting.
func (b *BotFacade) Notice(ctx context.Context, tgID int64, key string) Reply {
	return Reply{Text: b.texts.T(b.LanguageOf(ctx, tgID), key)}
}

// LanguageOf returns the stored language, or the default for unknown users.
func (b *BotFacade) LanguageOf(ctx context.Context, tgID int64) model.Language {
	u, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.With(ctx, b.log).Warn().Err(err).Msg("language lookup")
		}
		return model.DefaultLanguage
	}
	return u.Language
}

// touch runs at the top of every interaction that is not gated through the
// search use case: it fetches or creates the record and applies any trial
// transition that is due, warning included.
func (b *BotFacade) touch(ctx context.Context, tgID int64, name string, now time.Time) (*model.User, bool, error) {
	u, created, err := b.UserUC.RegisterOrFetch(ctx, tgID, name, now)
	if err != nil {
		return nil, false, err
	}
	u, _, err = b.TrialUC.Check(ctx, u, now)
	if err != nil {
		return nil, false, err
	}
	return u, created, nil
}

func (b *BotFacade) ReferralLink(tgID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", b.botUsername, tgID)
}

func (b *BotFacade) mainMenu(lang model.Language) Reply {
	return Reply{
		Text: b.texts.T(lang, "welcome_menu"),
		Keyboard: [][]string{
			{b.texts.T(lang, "menu_search"), b.texts.T(lang, "menu_genres")},
			{b.texts.T(lang, "menu_cab"), b.texts.T(lang, "menu_prem")},
		},
	}
}

func (b *BotFacade) denial(lang model.Language, v model.Verdict) Reply {
	if v.Reason == model.DenyRegistrationRequired {
		return Reply{Text: b.texts.T(lang, "register_limit"), HTML: true, ContactLabel: b.texts.T(lang, "btn_phone")}
	}
	return Reply{Text: b.texts.T(lang, "daily_limit"), HTML: true}
}

func (b *BotFacade) failure(lang model.Language, err error) ([]Reply, error) {
	return []Reply{{Text: b.texts.T(lang, "error_generic")}}, err
}

func (b *BotFacade) genreName(lang model.Language, id int) string {
	return b.texts.T(lang, "genre_"+strconv.Itoa(id))
}

// Caption renders the details card. Title and overview are escaped for
// Telegram HTML.
func Caption(m model.Movie) string {
	overview := ""
	if m.Overview != "" {
		overview = truncateRunes(m.Overview, overviewLimit) + "..."
	}
	return fmt.Sprintf("🎬 <b>%s</b> (%s)\n⭐️ %.1f\n\n📝 %s",
		html.EscapeString(m.Title), m.Year(), m.VoteAverage, html.EscapeString(overview))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
