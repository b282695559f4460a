package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request logging and panic recovery
	"github.com/labstack/gommon/log"                // Echo's leveled logger

	"github.com/iliyamo/movie-catalog/internal/config"     // Internal config loader
	"github.com/iliyamo/movie-catalog/internal/database"   // MySQL connection pool
	"github.com/iliyamo/movie-catalog/internal/handler"    // HTTP handlers
	"github.com/iliyamo/movie-catalog/internal/middleware" // rate limiting
	"github.com/iliyamo/movie-catalog/internal/repository" // data access
	"github.com/iliyamo/movie-catalog/internal/router"     // route registration
	publisher "github.com/iliyamo/movie-catalog/internal/service"
	"github.com/iliyamo/movie-catalog/internal/validation"
)

func main() {
	cfg := config.Load() // Load environment config

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)
	if cfg.Env == "dev" {
		e.Logger.SetLevel(log.DEBUG)
	}
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	db, err := database.Open(cfg)
	if err != nil {
		e.Logger.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Rate limiting degrades to a no-op when Redis is unreachable.
	rlCfg := config.LoadRateLimitConfig()
	var limiter *middleware.Limiter
	if rdb := config.NewRedisClient(config.LoadRedisConfig()); rdb != nil {
		defer rdb.Close()
		limiter = middleware.NewLimiter(rdb)
	} else {
		e.Logger.Warn("redis unavailable, rate limiting disabled")
	}

	var events handler.EventPublisher
	if cfg.EventsEnabled {
		events = publisher.New(cfg.RabbitURL)
	}

	movies := handler.NewMovieHandler(repository.NewMovieRepo(db), validation.New(), events,
		cfg.MoviesPath, cfg.PageSizeDefault, cfg.PageSizeMax)
	lookups := handler.NewLookupHandler(repository.NewLookupRepo(db))

	router.RegisterRoutes(e, db)
	router.RegisterMovies(e, cfg.MoviesPath, movies, middleware.RateLimit(rlCfg, limiter, "movies"))
	router.RegisterLookups(e, lookups, middleware.RateLimit(rlCfg, limiter, "lookups"))

	addr := ":" + cfg.Port // Address string with port
	go func() {
		e.Logger.Infof("listening on %s (env=%s, movies=%s, events=%t)", addr, cfg.Env, cfg.MoviesPath, cfg.EventsEnabled)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err) // Log and exit if server fails
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Error(err)
	}
}
