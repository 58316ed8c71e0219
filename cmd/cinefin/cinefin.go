package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Agurato/cinefin/internal/business"
	"github.com/Agurato/cinefin/internal/config"
	"github.com/Agurato/cinefin/internal/infrastructure"
	"github.com/Agurato/cinefin/internal/service/server"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

// preferenceStore is the durable backend of the visitor preferences
type preferenceStore interface {
	infrastructure.PreferenceBackend
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("cinefin stopped")
	}
	log.Info().Msg("cinefin stopped")
}

func setupLogger(cfg *config.Config) {
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func openStore(ctx context.Context, cfg *config.Config) (preferenceStore, error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		return infrastructure.NewMongoDB(ctx, cfg.DBURL, cfg.DBName)
	default:
		return infrastructure.NewSQLite(cfg.SQLitePath)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	catalog, err := infrastructure.NewCatalog(infrastructure.CatalogOptions{
		BaseURL:     cfg.TMDBBaseURL,
		BearerToken: cfg.TMDBBearerToken,
		Language:    cfg.TMDBLanguage,
		CacheTTL:    cfg.QueryCacheTTL,
		Timeout:     cfg.HTTPTimeout,
		RateLimit:   cfg.TMDBRateLimit,
		HTTPClient:  client,
		Metrics:     infrastructure.NewMetrics(registry),
	})
	if err != nil {
		return err
	}
	cache, err := infrastructure.NewCache(cfg.CachePath, client)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Could not close preference store")
		}
	}()
	favoritesPref := infrastructure.NewPreference(store, infrastructure.KeyFavorites, []int64{})
	themePref := infrastructure.NewPreference(store, infrastructure.KeyTheme, true)
	unsubscribe := favoritesPref.Subscribe(func(visitor string, ids []int64) {
		log.Debug().Str("visitor", visitor).Int("count", len(ids)).Msg("Favorites changed")
	})
	defer unsubscribe()

	var ratings business.RatingGetter
	if cfg.ExternalRatings {
		ratings = infrastructure.NewRatingScraper(client, cfg.IMDbBaseURL, cfg.LetterboxdBaseURL)
	}

	fm := business.NewFavoritesManager(favoritesPref)
	tm := business.NewThemeManager(themePref)
	mm := business.NewMovieManager(catalog, cache, ratings)
	browsers := business.NewBrowserRegistry(catalog, business.DefaultBrowserOptions())
	defer browsers.Close()

	router := server.NewServer(
		server.ServerOptions{
			CookieSecret:  cfg.CookieSecret,
			TemplatesGlob: cfg.TemplatesGlob,
			StaticPath:    cfg.StaticPath,
			Gatherer:      registry,
		},
		server.NewMainHandler(cache, tm, mm, catalog.Tracker()),
		server.NewMovieHandler(mm, fm, browsers, business.NewPaginater[int64](cfg.ItemsPerPage)),
		server.NewAPIHandler(browsers, fm, catalog),
	)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				sessions := browsers.Sweep(cfg.SessionIdleTimeout)
				queries := catalog.Cache().Sweep()
				if sessions > 0 || queries > 0 {
					log.Debug().Int("sessions", sessions).Int("queries", queries).Msg("Swept idle entries")
				}
			}
		}
	})
	return g.Wait()
}
