package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"potholytics-service/internal/config"
	"potholytics-service/internal/dashboard"
	"potholytics-service/internal/db"
	"potholytics-service/internal/detection"
	"potholytics-service/internal/geocoding"
	httpapi "potholytics-service/internal/http"
	"potholytics-service/internal/logger"
	"potholytics-service/internal/repository"
	"potholytics-service/internal/service"
	"potholytics-service/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("production", "error")
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	client := detection.NewClient(cfg.Backend, log)
	geocoder := geocoding.NewGoogleClient(cfg.Geocoding, log)
	previews := upload.NewManager(log)

	var (
		store service.DetectionStore
		feed  dashboard.Feed = client
	)
	if cfg.Database.Enabled {
		conn, err := db.Connect(cfg.Database.DSN, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(conn); err != nil {
				log.Warn().Err(err).Msg("failed to close database")
			}
		}()

		repo := repository.NewPotholeRepository(conn)
		store = repo
		if cfg.Dashboard.Source == config.DashboardSourceDatabase {
			feed = repo
		}
	}

	aggregator := dashboard.NewAggregator(feed, geocoder, dashboard.Options{
		RecentLimit: cfg.Dashboard.RecentLimit,
		Center:      dashboard.LatLng{Lat: cfg.Dashboard.CenterLat, Lng: cfg.Dashboard.CenterLng},
		Zoom:        cfg.Dashboard.Zoom,
	}, log)

	workbench := service.NewWorkbenchService(client, store, aggregator, previews, service.Options{
		DefaultModel: cfg.Detection.DefaultModel,
		Models:       cfg.Detection.Models,
		SessionTTL:   cfg.Session.TTL,
	}, log)
	go workbench.Sessions().RunCleanup(ctx, cfg.Session.CleanupInterval)

	if cfg.App.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.CORSMiddleware(cfg.HTTP.CORSOrigins))

	handler := httpapi.NewHandler(workbench, cfg, log)
	handler.Register(router, httpapi.AuthMiddleware(cfg.Auth.JWTSecret))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("backend", cfg.Backend.BaseURL).
			Str("dashboard_source", cfg.Dashboard.Source).
			Bool("database", cfg.Database.Enabled).
			Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
