package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"treeplant/api/internal/app"
	"treeplant/api/internal/email"
	"treeplant/api/internal/export"
	"treeplant/api/internal/metrics"
	"treeplant/api/internal/photostore/local"
	"treeplant/api/internal/photostore/minio"
	"treeplant/api/internal/photostore/s3"
	"treeplant/api/internal/search"
	"treeplant/api/internal/session"
	"treeplant/api/internal/store"
)

func openDatabase(ctx context.Context) (*sql.DB, error) {
	pool := store.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.DBMaxOpen
	pool.MaxIdleConns = cfg.DBMaxIdle
	db, err := store.Open(ctx, cfg.DatabaseURL, pool)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// buildDependencies connects the optional collaborators. A backend that
// cannot be reached is logged and left out.
func buildDependencies(ctx context.Context, db *sql.DB) (app.Dependencies, func()) {
	var closers []func()
	deps := app.Dependencies{
		Mailer: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}),
		Exporter: export.NewService(),
	}

	var index search.Index
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		closers = append(closers, meili.Close)
		index = meili
	}
	deps.Search = search.NewService(index, search.NewPgFTS(db), logger)

	if strings.TrimSpace(cfg.RedisURL) != "" {
		sessions, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, refresh tokens disabled", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = sessions.Close() })
			deps.Sessions = sessions
		}
	}

	photos, err := openPhotoStore(ctx)
	if err != nil {
		logger.Warn("photo storage unavailable", zap.String("backend", cfg.Photos.Backend), zap.Error(err))
	} else {
		deps.Photos = photos
	}

	return deps, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

func openPhotoStore(ctx context.Context) (app.PhotoStore, error) {
	p := cfg.Photos
	switch p.Backend {
	case "minio":
		return minio.New(ctx, minio.Config{
			Endpoint:  p.Endpoint,
			AccessKey: p.AccessKey,
			SecretKey: p.SecretKey,
			Bucket:    p.Bucket,
			Region:    p.Region,
			UseSSL:    p.UseSSL,
		})
	case "s3":
		return s3.New(ctx, s3.Config{
			Region:          p.Region,
			Bucket:          p.Bucket,
			Endpoint:        p.Endpoint,
			AccessKeyID:     p.AccessKey,
			SecretAccessKey: p.SecretKey,
		})
	default:
		return local.New(p.LocalPath, logger)
	}
}

func newService(db *sql.DB, deps app.Dependencies) *app.Service {
	return app.New(cfg, store.NewPostgresStore(db), deps, logger)
}

func runServe(ctx context.Context) error {
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}

	deps, cleanup := buildDependencies(ctx, db)
	defer cleanup()
	m := metrics.New()
	deps.Metrics = m

	service := newService(db, deps)
	if cfg.SeedOnStart {
		if err := service.Bootstrap(ctx); err != nil {
			logger.Warn("bootstrap failed, will retry on next start", zap.Error(err))
		}
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger, m.Handler())
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("tree planting API listening",
			zap.String("addr", cfg.Addr),
			zap.Bool("smtp", service.SMTPConfigured()),
			zap.Bool("refresh_tokens", deps.Sessions != nil),
			zap.Bool("photos", deps.Photos != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
