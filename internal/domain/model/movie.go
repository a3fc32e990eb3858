package model

import (
	"fmt"
	"net/url"
	"strings"
)

// Movie is the slice of a catalog entry the bot renders.
type Movie struct {
	ID          int64
	Title       string
	Overview    string
	ReleaseDate string
	PosterPath  string
	VoteAverage float64
	GenreIDs    []int
}

func (m Movie) Year() string {
	if len(m.ReleaseDate) >= 4 {
		return m.ReleaseDate[:4]
	}
	return ""
}

func (m Movie) PosterURL() string {
	if m.PosterPath == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/w500" + m.PosterPath
}

// Intent is what the language model extracted from a free-text query.
type Intent struct {
	IsMovieRequest bool   `json:"isMovieRequest"`
	SearchQuery    string `json:"searchQuery"`
	Reply          string `json:"russianResponse"`
}

// PassThroughIntent is used whenever intent analysis is unavailable.
func PassThroughIntent(text string) Intent {
	return Intent{IsMovieRequest: true, SearchQuery: strings.TrimSpace(text)}
}

type WatchLink struct {
	Kind   string // ru | ru_yandex | en | uz
	URL    string
	WebApp bool
}

// WatchLinks returns the external players/search pages for a movie.
func WatchLinks(m Movie) []WatchLink {
	return []WatchLink{
		{Kind: "ru", URL: fmt.Sprintf("https://embed.su/embed/movie/%d", m.ID), WebApp: true},
		{Kind: "ru_yandex", URL: "https://yandex.uz/video/search?text=" + url.QueryEscape(m.Title+" смотреть онлайн"), WebApp: true},
		{Kind: "en", URL: fmt.Sprintf("https://vidsrc.net/embed/movie/%d", m.ID), WebApp: true},
		{Kind: "uz", URL: "http://asilmedia.org/index.php?do=search&subaction=search&story=" + url.QueryEscape(m.Title)},
	}
}

// Genres offered in the browse keyboard, TMDB ids.
var BrowseGenres = []int{28, 35, 27, 18, 14, 10749, 16, 878}
