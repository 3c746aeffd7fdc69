package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/nikhil/rosters/internal/assets"
	"github.com/nikhil/rosters/internal/cache"
	"github.com/nikhil/rosters/internal/config"
	"github.com/nikhil/rosters/internal/database"
	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/handlers"
	"github.com/nikhil/rosters/internal/logger"
	"github.com/nikhil/rosters/internal/realtime"
	"github.com/nikhil/rosters/internal/routes"
	services "github.com/nikhil/rosters/internal/service/auth"
	teamService "github.com/nikhil/rosters/internal/service/team"
	profileService "github.com/nikhil/rosters/internal/service/users"
	"github.com/nikhil/rosters/internal/views"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger("rosters").Fatal("Failed to load configuration", "error", err)
	}

	log := logger.NewLogger("rosters")
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(cfg.Database, log.Named("database"))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, database.Close(db)) }()

	var rosterCache cache.CacheInterface = cache.NopCache{}
	if cfg.Cache.RedisURL != "" {
		redisCache, cacheErr := cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
		if cacheErr != nil {
			return cacheErr
		}
		defer func() { err = multierr.Append(err, redisCache.Close()) }()
		rosterCache = redisCache
		log.Info("Roster cache enabled", "ttl", cfg.Cache.RosterTTL)
	}

	store, err := assets.NewDiskStore(cfg.Media.Root)
	if err != nil {
		return err
	}

	renderer, err := views.NewRenderer(log)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(log.Named("realtime"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	validator := forms.NewValidator(cfg.Media.MaxLogoBytes)
	teams := teamService.NewTeamService(db, store, validator, log, teamService.Options{
		Cache:     rosterCache,
		Events:    hub,
		RosterTTL: cfg.Cache.RosterTTL,
	})

	h := handlers.New(handlers.Deps{
		Teams:         teams,
		Auth:          services.NewAuthService(db, validator, cfg.Session, log),
		Profiles:      profileService.NewProfileService(db, validator, rosterCache, log),
		Hub:           hub,
		Views:         renderer,
		MediaRoot:     cfg.Media.Root,
		SecureCookies: cfg.Session.SecureCookies,
		Log:           log,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           routes.RegisterAllRoutes(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server is running", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked, so the hub closes them itself
	stopHub()
	return server.Shutdown(shutdownCtx)
}
