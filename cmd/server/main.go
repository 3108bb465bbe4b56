package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"learnstack/internal/cache"
	"learnstack/internal/config"
	"learnstack/internal/daily"
	"learnstack/internal/database"
	"learnstack/internal/executor"
	"learnstack/internal/handlers"
	"learnstack/internal/logger"
	"learnstack/internal/scheduler"
	"learnstack/internal/security"
	"learnstack/internal/service"
	"learnstack/migrations"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()
	log.Info("database connection established", "type", cfg.DatabaseType)

	applied, err := db.RunMigrations(ctx, migrations.Source(cfg.MigrationsPath))
	if err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}
	log.Info("migrations completed", "applied", len(applied))

	store, err := cache.New(log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("failed to connect cache", "error", err)
	}

	mailer, err := service.NewEmailService(ctx, log, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.EmailDebug)
	if err != nil {
		log.Fatal("failed to initialize email service", "error", err)
	}
	if !mailer.IsEnabled() {
		log.Warn("email delivery disabled; verification codes are only logged in debug mode")
	}

	runner, err := executor.New(log, executor.Config{
		URL:     cfg.ExecutorURL,
		APIKey:  cfg.ExecutorAPIKey,
		Timeout: cfg.ExecutorTimeout,
	})
	if err != nil {
		log.Fatal("failed to initialize code executor", "error", err)
	}

	// Initialize services
	catalogService := service.NewCatalogService(log, db, store, cfg.CatalogCacheTTL)
	leaderboardService := service.NewLeaderboardService(log, db, store, cfg.LeaderboardTTL)
	achievementService := service.NewAchievementService(log, db, store, cfg.CatalogCacheTTL)
	progressService := service.NewProgressService(log, db, catalogService, leaderboardService, achievementService)
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := service.NewAuthService(log, db, progressService, mailer, tokens, cfg.OTPTTL)
	adminService := service.NewAdminService(log, db, progressService, catalogService)
	dailyService := service.NewDailyService(log, db, daily.NewTracker(runner, cfg.ExecutorTimeout), progressService)
	doubtService := service.NewDoubtService(log, db)
	quizService := service.NewQuizService(log, db)
	backupService := service.NewBackupService(log, db, catalogService)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name: "google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"github": {
			Name: "github",
			Config: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				Endpoint:     github.Endpoint,
				Scopes:       []string{"read:user", "user:email"},
			},
			UserInfoURL: "https://api.github.com/user",
			EmailsURL:   "https://api.github.com/user/emails",
		},
	}

	// Initialize handlers
	limiter := security.NewRateLimiter(ctx, cfg.RateLimitRequests, cfg.RateLimitWindow)
	router := &handlers.Router{
		Middleware:   handlers.NewMiddleware(authService, limiter),
		Auth:         handlers.NewAuthHandler(authService, oauthProviders, cfg.OAuthRedirectBaseURL, cfg.AppBaseURL),
		Progress:     handlers.NewProgressHandler(progressService),
		Daily:        handlers.NewDailyHandler(dailyService),
		Leaderboard:  handlers.NewLeaderboardHandler(leaderboardService),
		Doubts:       handlers.NewDoubtHandler(doubtService),
		Quizzes:      handlers.NewQuizHandler(quizService),
		Achievements: handlers.NewAchievementHandler(achievementService),
		Admin:        handlers.NewAdminHandler(adminService, catalogService, backupService),
	}

	// Background jobs
	jobs := scheduler.New(log, scheduler.DefaultJobs(leaderboardService, doubtService, authService, cfg.LeaderboardTTL)...)
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("failed to start scheduler", "error", err)
	}
	defer jobs.Stop()

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
