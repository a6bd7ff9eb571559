package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"legisdraft/api/internal/app"
	"legisdraft/api/internal/config"
	"legisdraft/api/internal/fetch"
	"legisdraft/api/internal/search"
	"legisdraft/api/internal/store"
	"legisdraft/api/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("tracing setup failed: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	dataStore, closeDB := openStore(ctx, cfg)
	defer closeDB()

	fetcher, closeCache, err := fetch.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("shared page cache failed: %v", err)
	}
	defer closeCache()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient)

	service := app.New(cfg, dataStore, fetcher, searchService)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Fetch.RequestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Legislation API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (*store.Store, func()) {
	dialect := store.Dialect(strings.ToLower(strings.TrimSpace(cfg.DBDriver)))
	dsn := cfg.DatabaseURL
	if dialect == store.DialectSQLite {
		dsn = cfg.SQLitePath
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			log.Fatalf("failed to create sqlite dir: %v", err)
		}
	}

	db, err := store.Open(ctx, dialect, dsn)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		db.Close()
		log.Fatalf("migrations failed: %v", err)
	}

	if dialect == store.DialectSQLite {
		return store.NewSQLiteStore(db), func() { db.Close() }
	}
	return store.NewPostgresStore(db), func() { db.Close() }
}
