// Command server runs the zametki web application: a small notes service
// with per-user private notes addressed by unique slugs.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelkin/zametki/internal/auth"
	"github.com/avelkin/zametki/internal/config"
	"github.com/avelkin/zametki/internal/db"
	"github.com/avelkin/zametki/internal/notes"
	"github.com/avelkin/zametki/internal/obs"
	"github.com/avelkin/zametki/internal/ratelimit"
	"github.com/avelkin/zametki/internal/web"
)

const sessionCleanupInterval = time.Hour

func main() {
	addr := config.ParseFlags()
	cfg := config.MustLoadConfig(addr)
	cfg.PrintStartupSummary()

	obs.Init()
	log := obs.Pkg("main")

	database, err := db.Open(cfg.DatabasePath, cfg.DatabaseKey)
	if err != nil {
		log.Error("open database failed", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	userService := auth.NewUserService(database)
	sessionService := auth.NewSessionService(database, cfg.SessionDuration, cfg.RequireSecureCookies())
	authMW := auth.NewMiddleware(sessionService, userService)

	store := notes.NewStore(database)
	slugPolicy := notes.NewSlugPolicy(store, nil)
	noteService := notes.NewService(store, slugPolicy, notes.NewGuard())

	renderer, err := web.NewRenderer(cfg.TemplatesDir)
	if err != nil {
		log.Error("load templates failed", "error", err)
		os.Exit(1)
	}

	loginLimiter := ratelimit.NewLimiter(cfg.LoginRateLimit)
	defer loginLimiter.Stop()

	handler := web.NewHandler(renderer, noteService, userService, sessionService, loginLimiter)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authMW)

	root := obs.RequestContextMiddleware(obs.AccessLogMiddleware("web", mux))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupSessions(ctx, sessionService)

	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

// cleanupSessions periodically removes expired sessions until ctx is done.
func cleanupSessions(ctx context.Context, sessions *auth.SessionService) {
	log := obs.Pkg("main")
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.Cleanup(ctx); err != nil {
				log.Error("session cleanup failed", "error", err)
			}
		}
	}
}
