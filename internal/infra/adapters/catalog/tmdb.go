package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain"
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
)

var _ adapter.MovieCatalog = (*TMDBCatalog)(nil)

// TMDBCatalog talks to the TMDB v3 REST API.
type TMDBCatalog struct {
	apiKey   string
	base     string
	language string
	client   *http.Client
	log      *zerolog.Logger
}

func NewTMDBCatalog(apiKey, baseURL, language string, timeout time.Duration, logger *zerolog.Logger) (*TMDBCatalog, error) {
	if apiKey == "" {
		return nil, errors.New("tmdb: empty api key")
	}
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	if language == "" {
		language = "ru-RU"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TMDBCatalog{
		apiKey:   apiKey,
		base:     strings.TrimRight(baseURL, "/"),
		language: language,
		client:   &http.Client{Timeout: timeout},
		log:      logger,
	}, nil
}

type tmdbMovie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int   `json:"genre_ids"`
	Genres      []struct {
		ID int `json:"id"`
	} `json:"genres"`
}

func (m tmdbMovie) toModel() model.Movie {
	out := model.Movie{
		ID:          m.ID,
		Title:       m.Title,
		Overview:    m.Overview,
		ReleaseDate: m.ReleaseDate,
		PosterPath:  m.PosterPath,
		VoteAverage: m.VoteAverage,
		GenreIDs:    m.GenreIDs,
	}
	if len(out.GenreIDs) == 0 {
		for _, g := range m.Genres {
			out.GenreIDs = append(out.GenreIDs, g.ID)
		}
	}
	return out
}

// Search returns at most limit movies for query, in catalog order.
func (c *TMDBCatalog) Search(ctx context.Context, query string, limit int) ([]model.Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	var payload struct {
		Results []tmdbMovie `json:"results"`
	}
	if err := c.get(ctx, "/search/movie", url.Values{"query": {query}}, &payload); err != nil {
		return nil, err
	}
	if limit > 0 && len(payload.Results) > limit {
		payload.Results = payload.Results[:limit]
	}
	out := make([]model.Movie, 0, len(payload.Results))
	for _, m := range payload.Results {
		out = append(out, m.toModel())
	}
	return out, nil
}

// Details returns domain.ErrNotFound for unknown ids.
func (c *TMDBCatalog) Details(ctx context.Context, movieID int64) (*model.Movie, error) {
	var m tmdbMovie
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(movieID, 10), nil, &m); err != nil {
		return nil, err
	}
	out := m.toModel()
	return &out, nil
}

func (c *TMDBCatalog) get(ctx context.Context, path string, q url.Values, dst interface{}) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("tmdb request")
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("tmdb %s: http %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("tmdb %s: decode: %w", path, err)
	}
	return nil
}
