// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/application"
	"telegram-movie-finder/internal/config"
	"telegram-movie-finder/internal/domain/ports/adapter"
	aiAdapters "telegram-movie-finder/internal/infra/adapters/ai"
	"telegram-movie-finder/internal/infra/adapters/catalog"
	"telegram-movie-finder/internal/infra/adapters/notifier"
	tele "telegram-movie-finder/internal/infra/adapters/telegram"
	"telegram-movie-finder/internal/infra/api"
	"telegram-movie-finder/internal/infra/api/apiv1"
	pg "telegram-movie-finder/internal/infra/db/postgres"
	"telegram-movie-finder/internal/infra/i18n"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/metrics"
	red "telegram-movie-finder/internal/infra/redis"
	"telegram-movie-finder/internal/infra/sched"
	"telegram-movie-finder/internal/infra/worker"
	"telegram-movie-finder/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted phones)")
	silent := flag.Bool("silent", false, "log trial and referral notifications instead of sending them")
	mintToken := flag.String("mint-token", "", "print an admin API token for the given subject and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	log := logger.With().Str("component", "main").Logger()
	if cfg.Runtime.Dev {
		log.Warn().Msg("developer mode enabled")
	}

	auth := api.NewAuthManager(cfg.Admin.JWTSecret, 24*time.Hour)
	if *mintToken != "" {
		tok, err := auth.Mint(*mintToken, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("mint admin token")
		}
		fmt.Println(tok)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	if cfg.Database.AutoMigrate {
		applied, err := pg.Migrate(cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
		log.Info().Bool("applied", applied).Msg("migrations checked")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)
	stateRepo := red.NewStateRepo(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepoCacheDecorator(pg.NewPostgresUserRepo(pool), redisClient, cfg.Redis.TTL, logger)

	// ---- Texts ----
	texts, err := i18n.NewBundle(i18n.LocalesFS)
	if err != nil {
		log.Fatal().Err(err).Msg("i18n")
	}

	// ---- Notification workers ----
	notifyPool := worker.NewPool(cfg.Notify.Workers, logger)
	notifyPool.Start(ctx)

	// ---- Telegram ----
	botAPI, err := tele.NewBotAPI(cfg.Bot.Token, "")
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth")
	}
	botAdapter, err := tele.NewRealTelegramBotAdapter(botAPI, &cfg.Bot, texts, rateLimiter, locker, logger, cfg.Runtime.Dev)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}
	botUsername := botAdapter.Username()
	if botUsername == "" {
		botUsername = cfg.Bot.Username
	}

	var delivery adapter.Notifier = botAdapter
	if *silent {
		delivery = notifier.NewNoopNotifier(logger)
	}
	trialNotifier, err := notifier.NewAsyncNotifier(delivery, notifyPool, "trial_warning", logger)
	if err != nil {
		log.Fatal().Err(err).Msg("trial notifier")
	}
	referralNotifier, err := notifier.NewAsyncNotifier(delivery, notifyPool, "referral", logger)
	if err != nil {
		log.Fatal().Err(err).Msg("referral notifier")
	}

	// ---- Intent analysis (Gemini -> OpenAI) ----
	analyzer := newAnalyzer(ctx, cfg.AI, &log)

	// ---- Movie catalog ----
	movies, err := catalog.NewTMDBCatalog(cfg.Catalog.TMDBKey, cfg.Catalog.BaseURL, cfg.Catalog.Language, cfg.Catalog.Timeout, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("tmdb catalog")
	}

	// ---- Use cases ----
	policy := cfg.EntitlementPolicy()
	userUC := usecase.NewUserUseCase(userRepo, tm, policy, logger)
	trialUC := usecase.NewTrialUseCase(userRepo, tm, trialNotifier, texts, policy, logger)
	referralUC := usecase.NewReferralUseCase(userRepo, tm, referralNotifier, texts, policy, logger)
	accessUC := usecase.NewAccessUseCase(userUC, trialUC, userRepo, policy, logger)
	searchUC := usecase.NewSearchUseCase(accessUC, analyzer, movies, stateRepo, cfg.Catalog.ResultLimit, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, logger)

	// ---- Facade ----
	facade := application.NewBotFacade(userUC, trialUC, referralUC, searchUC, texts, policy, botUsername, logger)

	go func() {
		log.Info().Str("bot", botUsername).Int("workers", cfg.Bot.Workers).Msg("telegram polling started")
		if err := botAdapter.StartPolling(ctx, facade); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Admin HTTP ----
	router := api.NewRouter(
		apiv1.NewServer(userUC, statsUC, policy, logger),
		auth,
		map[string]api.Pinger{"postgres": pool, "redis": redisClient},
		logger,
	)
	server := api.NewServer(cfg.Admin.Port, router, logger)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("admin server error")
		}
	}()
	if !auth.Enabled() {
		log.Warn().Msg("admin.jwt_secret not set; /api/v1 is disabled")
	}

	// ---- Stats worker ----
	statsWorker := sched.NewStatsWorker(cfg.Scheduler.StatsInterval, statsUC, func() (int32, int32, int32) {
		st := pool.Stat()
		return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
	}, logger)
	go func() { _ = statsWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	log.Info().Msg("shutdown requested")

	botAdapter.StopPolling()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("admin server shutdown")
	}
	notifyPool.Stop()
	log.Info().Msg("bye")
}

// newAnalyzer builds the configured provider chain behind a concurrency cap.
// Without keys searches use the raw text.
func newAnalyzer(ctx context.Context, cfg config.AIConfig, log *zerolog.Logger) adapter.IntentAnalyzer {
	var providers []adapter.IntentAnalyzer

	if cfg.GeminiKey != "" && (cfg.Provider == "gemini" || cfg.Provider == "multi") {
		g, err := aiAdapters.NewGeminiAnalyzer(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.DefaultModel, cfg.MaxPromptTokens)
		if err != nil {
			log.Error().Err(err).Msg("gemini analyzer disabled")
		} else {
			providers = append(providers, g)
		}
	}
	if cfg.OpenAIKey != "" && (cfg.Provider == "openai" || cfg.Provider == "multi") {
		model := cfg.DefaultModel
		if cfg.Provider == "multi" {
			model = ""
		}
		o, err := aiAdapters.NewOpenAIAnalyzer(cfg.OpenAIKey, cfg.OpenAIBaseURL, model, cfg.MaxPromptTokens)
		if err != nil {
			log.Error().Err(err).Msg("openai analyzer disabled")
		} else {
			providers = append(providers, o)
		}
	}

	switch len(providers) {
	case 0:
		log.Warn().Str("provider", cfg.Provider).Msg("no intent analyzer configured; using raw queries")
		return aiAdapters.NewNoopAnalyzer()
	case 1:
		log.Info().Str("provider", providers[0].Name()).Msg("intent analyzer ready")
		return aiAdapters.NewLimitedAnalyzer(providers[0], cfg.ConcurrentLimit)
	default:
		multi := aiAdapters.NewMultiAnalyzer(providers...)
		log.Info().Str("provider", multi.Name()).Msg("intent analyzer ready")
		return aiAdapters.NewLimitedAnalyzer(multi, cfg.ConcurrentLimit)
	}
}
