package apiv1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain"
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/usecase"
)

// Server serves the read-only admin API.
type Server struct {
	users  usecase.UserUseCase
	stats  usecase.StatsUseCase
	policy model.Policy
	now    func() time.Time
	log    *zerolog.Logger
}

func NewServer(users usecase.UserUseCase, stats usecase.StatsUseCase, policy model.Policy, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{users: users, stats: stats, policy: policy, now: time.Now, log: logger}
}

func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/users/{tgID}", s.getUser)
		r.Get("/stats", s.getStats)
	})
}

// UserSnapshot is the entitlement view of one user. It is computed from the
// stored record and never applies trial transitions.
type UserSnapshot struct {
	TelegramID      int64     `json:"telegram_id"`
	DisplayName     string    `json:"display_name"`
	Registered      bool      `json:"registered"`
	Language        string    `json:"language"`
	Country         string    `json:"country,omitempty"`
	FreeSearchCount int       `json:"free_search_count"`
	FreeSearchLimit int       `json:"free_search_limit"`
	Points          int       `json:"points"`
	ReferralCount   int       `json:"referral_count"`
	ReferredBy      *int64    `json:"referred_by,omitempty"`
	IsPremium       bool      `json:"is_premium"`
	IsTrial         bool      `json:"is_trial"`
	TrialState      string    `json:"trial_state"`
	TrialDaysLeft   int       `json:"trial_days_left"`
	Access          string    `json:"access"`
	JoinedDate      time.Time `json:"joined_date"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(chi.URLParam(r, "tgID"), 10, 64)
	if err != nil || tgID <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "invalid telegram id"})
		return
	}
	u, err := s.users.GetByTelegramID(r.Context(), tgID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Error: "user not found"})
		return
	case err != nil:
		logging.With(r.Context(), s.log).Error().Err(err).Int64("tg_id", tgID).Msg("admin user lookup")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "lookup failed"})
		return
	}

	now := s.now()
	state, _ := s.policy.TrialState(u, now)
	render.JSON(w, r, UserSnapshot{
		TelegramID:      u.TelegramID,
		DisplayName:     u.DisplayName,
		Registered:      u.IsRegistered(),
		Language:        string(u.Language),
		Country:         string(u.Country),
		FreeSearchCount: u.FreeSearchCount,
		FreeSearchLimit: s.policy.FreeSearchLimit,
		Points:          u.Points,
		ReferralCount:   u.ReferralCount,
		ReferredBy:      u.ReferredBy,
		IsPremium:       u.IsPremium,
		IsTrial:         u.IsTrial,
		TrialState:      string(state),
		TrialDaysLeft:   s.policy.TrialDaysLeft(u, now),
		Access:          s.policy.Evaluate(u, now).Outcome(),
		JoinedDate:      u.JoinedDate,
	})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Totals(r.Context())
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("admin stats")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "stats unavailable"})
		return
	}
	render.JSON(w, r, st)
}
