package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
	"telegram-movie-finder/internal/domain/ports/repository"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/metrics"
)

const (
	stateGenre   = "genre"
	stateGenreID = "genre_id"
)

// SearchResult is what the gateway renders for a free-text query. Movies is
// empty when nothing matched or the catalog was unavailable.
type SearchResult struct {
	Access  *Access
	Intent  model.Intent
	GenreID int
	Movies  []model.Movie
}

type DetailsResult struct {
	Access *Access
	Movie  *model.Movie
}

var _ SearchUseCase = (*searchUC)(nil)

// SearchUseCase runs the gated catalog actions.
type SearchUseCase interface {
	Search(ctx context.Context, tgID int64, displayName, text string, now time.Time) (*SearchResult, error)
	BrowseGenres(ctx context.Context, tgID int64, displayName string, now time.Time) (*Access, error)
	SelectGenre(ctx context.Context, tgID int64, displayName string, genreID int, now time.Time) (*Access, error)
	Details(ctx context.Context, tgID int64, displayName string, movieID int64, now time.Time) (*DetailsResult, error)
}

type searchUC struct {
	access   AccessUseCase
	analyzer adapter.IntentAnalyzer
	catalog  adapter.MovieCatalog
	state    repository.StateRepository
	limit    int
	log      *zerolog.Logger
}

func NewSearchUseCase(access AccessUseCase, analyzer adapter.IntentAnalyzer, catalog adapter.MovieCatalog, state repository.StateRepository, resultLimit int, logger *zerolog.Logger) *searchUC {
	if resultLimit <= 0 {
		resultLimit = 5
	}
	return &searchUC{access: access, analyzer: analyzer, catalog: catalog, state: state, limit: resultLimit, log: logger}
}

func (s *searchUC) Search(ctx context.Context, tgID int64, displayName, text string, now time.Time) (*SearchResult, error) {
	defer logging.TraceDuration(s.log, "SearchUC.Search")()

	acc, err := s.access.Authorize(ctx, tgID, displayName, ActionSearch, now)
	if err != nil {
		return nil, err
	}
	res := &SearchResult{Access: acc}
	if !acc.Verdict.Allowed {
		return res, nil
	}
	if acc.Verdict.ConsumesFreeSearch {
		// spent on attempt, before any external call
		v, err := s.access.ConsumeFreeSearch(ctx, tgID)
		if err != nil {
			return nil, err
		}
		acc.Verdict = v
		if !v.Allowed {
			return res, nil
		}
	}

	res.Intent = s.analyze(ctx, text)
	if !res.Intent.IsMovieRequest && res.Intent.SearchQuery == "" {
		return res, nil
	}
	query := res.Intent.SearchQuery
	if query == "" {
		query = strings.TrimSpace(text)
	}

	movies, err := s.catalog.Search(ctx, query, s.limit)
	if err != nil {
		s.log.Warn().Err(err).Int64("tg_id", tgID).Msg("catalog search failed")
		movies = nil
	}
	res.GenreID = s.takeGenre(ctx, tgID)
	res.Movies = filterByGenre(movies, res.GenreID)
	return res, nil
}

func (s *searchUC) analyze(ctx context.Context, text string) model.Intent {
	intent, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		metrics.IncIntentFallback(s.analyzer.Name())
		s.log.Warn().Err(err).Str("provider", s.analyzer.Name()).Msg("intent analysis failed, using raw text")
		return model.PassThroughIntent(text)
	}
	return intent
}

// takeGenre returns and clears the genre picked before this search.
func (s *searchUC) takeGenre(ctx context.Context, tgID int64) int {
	st, err := s.state.GetState(ctx, tgID)
	if err != nil {
		s.log.Warn().Err(err).Int64("tg_id", tgID).Msg("read conversation state")
		return 0
	}
	if st == nil || st.Step != stateGenre {
		return 0
	}
	if err := s.state.ClearState(ctx, tgID); err != nil {
		s.log.Warn().Err(err).Int64("tg_id", tgID).Msg("clear conversation state")
	}
	id, _ := strconv.Atoi(st.Data[stateGenreID])
	return id
}

// filterByGenre keeps movies of genreID. An empty match falls back to the
// unfiltered list so a genre pick never hides every result.
func filterByGenre(movies []model.Movie, genreID int) []model.Movie {
	if genreID == 0 {
		return movies
	}
	var out []model.Movie
	for _, m := range movies {
		for _, g := range m.GenreIDs {
			if g == genreID {
				out = append(out, m)
				break
			}
		}
	}
	if len(out) == 0 {
		return movies
	}
	return out
}

func (s *searchUC) BrowseGenres(ctx context.Context, tgID int64, displayName string, now time.Time) (*Access, error) {
	defer logging.TraceDuration(s.log, "SearchUC.BrowseGenres")()
	return s.access.Authorize(ctx, tgID, displayName, ActionGenres, now)
}

func (s *searchUC) SelectGenre(ctx context.Context, tgID int64, displayName string, genreID int, now time.Time) (*Access, error) {
	defer logging.TraceDuration(s.log, "SearchUC.SelectGenre")()

	acc, err := s.access.Authorize(ctx, tgID, displayName, ActionGenreSelect, now)
	if err != nil || !acc.Verdict.Allowed {
		return acc, err
	}
	st := &repository.ConversationState{
		Step: stateGenre,
		Data: map[string]string{stateGenreID: strconv.Itoa(genreID)},
	}
	if err := s.state.SetState(ctx, tgID, st); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *searchUC) Details(ctx context.Context, tgID int64, displayName string, movieID int64, now time.Time) (*DetailsResult, error) {
	defer logging.TraceDuration(s.log, "SearchUC.Details")()

	acc, err := s.access.Authorize(ctx, tgID, displayName, ActionDetails, now)
	if err != nil {
		return nil, err
	}
	res := &DetailsResult{Access: acc}
	if !acc.Verdict.Allowed {
		return res, nil
	}
	m, err := s.catalog.Details(ctx, movieID)
	if err != nil {
		s.log.Warn().Err(err).Int64("movie_id", movieID).Msg("catalog details failed")
		return res, nil
	}
	res.Movie = m
	return res, nil
}
