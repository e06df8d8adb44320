package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "pollbox/docs"
	"pollbox/internal/config"
	"pollbox/internal/domain/poll"
	"pollbox/internal/domain/user"
	"pollbox/internal/domain/vote"
	api "pollbox/internal/http"
	"pollbox/internal/metrics"
	"pollbox/internal/platform/database"
	jwtpkg "pollbox/internal/platform/jwt"
	"pollbox/internal/repository/postgres"
	"pollbox/internal/worker"
)

// @title           Pollbox API
// @version         1.0
// @description     Polling backend with account and anonymous-IP voting
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg := config.Load()

	metrics.Register()

	db, err := database.NewPostgres(cfg.DB_DSN)
	if err != nil {
		slog.Error("db connect error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.CreateSchema(db); err != nil {
		slog.Error("schema bootstrap error", "err", err)
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepo(db)
	pollRepo := postgres.NewPollRepo(db)
	voteRepo := postgres.NewVoteRepo(db)

	userSvc := user.NewService(userRepo)
	pollSvc := poll.NewService(pollRepo)
	voteSvc := vote.NewService(voteRepo, pollRepo)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, "pollbox")

	voteCh := make(chan worker.VoteEvent, 100)
	voteWorker := worker.NewVoteWorker(voteCh)

	router := api.NewRouter(userSvc, pollSvc, voteSvc, jwtMgr, voteCh, db, cfg.ShareBaseURL, cfg.TokenTTL)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go voteWorker.Run(ctx)

	go func() {
		slog.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("listen error", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "err", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
