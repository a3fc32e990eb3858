package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/config"
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/infra/db/postgres"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/redis"
)

// fixture is one user parked in a known entitlement state.
type fixture struct {
	name  string
	apply func(u *model.User, now time.Time)
}

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	baseID := flag.Int64("base-id", 900000001, "telegram id of the first fixture user")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log, true)
	ctx := context.Background()

	// --- Connect to Postgres ---
	if _, err := postgres.Migrate(cfg.Database.URL); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	pool, err := postgres.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()

	log.Info().Msg("--- Starting E2E Environment Setup ---")

	log.Info().Msg("[1/3] Wiping Redis cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to flush redis")
	}

	log.Info().Msg("[2/3] Wiping all existing users...")
	if _, err := pool.Exec(ctx, `TRUNCATE users;`); err != nil {
		log.Fatal().Err(err).Msg("failed to truncate users")
	}

	log.Info().Msg("[3/3] Seeding fixture users...")
	policy := cfg.EntitlementPolicy()
	repo := postgres.NewPostgresUserRepo(pool)
	now := time.Now().UTC()
	for i, f := range fixtures(policy) {
		seedUser(ctx, repo, *baseID+int64(i), f, now, log)
	}

	log.Info().Msg("--- ✅ E2E Environment Setup Complete ---")
}

func fixtures(p model.Policy) []fixture {
	phone := func(s string) *string { return &s }
	return []fixture{
		{name: "fresh", apply: func(u *model.User, _ time.Time) {}},
		{name: "free-exhausted", apply: func(u *model.User, _ time.Time) {
			u.FreeSearchCount = p.FreeSearchLimit
		}},
		{name: "trial-day-1", apply: func(u *model.User, now time.Time) {
			u.Phone = phone("+998901112233")
			u.Country = model.CountryDomestic
			u.IsPremium, u.IsTrial = true, true
		}},
		// next interaction sends the expiry warning
		{name: "trial-warning", apply: func(u *model.User, now time.Time) {
			u.Phone = phone("+998901112234")
			u.Country = model.CountryDomestic
			u.IsPremium, u.IsTrial = true, true
			u.JoinedDate = now.AddDate(0, 0, -p.WarningDay)
		}},
		{name: "trial-expired", apply: func(u *model.User, now time.Time) {
			u.Phone = phone("+79001112233")
			u.Country = model.CountryForeign
			u.IsPremium, u.IsTrial, u.TrialNotified = true, true, true
			u.JoinedDate = now.AddDate(0, 0, -p.TrialDays-1)
		}},
		// one more referral promotes
		{name: "referrer-near-premium", apply: func(u *model.User, now time.Time) {
			u.Phone = phone("+998901112235")
			u.Country = model.CountryDomestic
			u.JoinedDate = now.AddDate(0, 0, -p.TrialDays-1)
			u.TrialNotified = true
			u.Points = p.PremiumCostPoints - p.PointsPerRef
			u.ReferralCount = u.Points / p.PointsPerRef
		}},
		{name: "premium", apply: func(u *model.User, now time.Time) {
			u.Phone = phone("+998901112236")
			u.Country = model.CountryDomestic
			u.JoinedDate = now.AddDate(0, 0, -p.TrialDays-1)
			u.TrialNotified = true
			u.IsPremium = true
			u.Points = p.PremiumCostPoints
			u.ReferralCount = p.PremiumCostPoints / p.PointsPerRef
		}},
	}
}

func seedUser(ctx context.Context, repo *postgres.PostgresUserRepo, tgID int64, f fixture, now time.Time, log *zerolog.Logger) {
	u, err := repo.CreateDefault(ctx, nil, tgID, "e2e "+f.name, now)
	if err != nil {
		log.Fatal().Err(err).Str("fixture", f.name).Msg("create user")
	}
	f.apply(u, now)
	u.UpdatedAt = now
	if err := repo.Save(ctx, nil, u); err != nil {
		log.Fatal().Err(err).Str("fixture", f.name).Msg("save user")
	}
	log.Info().Int64("tg_id", tgID).Str("fixture", f.name).Msg("seeded")
}
