// Package main is the entry point for the shgat-engine server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/auth"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/bootstrap"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/config"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/httpapi"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/store"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/telemetry"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to a shgat.yaml config file")
	manifestPath := flag.String("manifest", "", "path to a capabilities manifest to seed the engine from")
	capabilityDir := flag.String("capability-dir", "", "directory of .capability.md files to seed alongside the manifest")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.WithError(err).Warn("telemetry shutdown failed")
		}
	}()

	engine := shgat.NewEngine(shgat.Config{
		EmbeddingDim: cfg.Engine.EmbeddingDim,
		NumHeads:     cfg.Engine.NumHeads,
		HeadDim:      cfg.Engine.HeadDim,
		Seed:         cfg.Engine.Seed,
		LearningRate: cfg.Engine.LearningRate,
		L2Lambda:     cfg.Engine.L2Lambda,
	}, shgat.WithLogger(log))

	paramStore, err := newParamStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize persistence backend")
	}
	if closer, ok := paramStore.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.WithError(err).Warn("error closing persistence backend")
			}
		}()
	}

	if blob, err := paramStore.LoadParams(ctx, cfg.Persist.EngineID); err == nil {
		if err := engine.ImportParams(blob); err != nil {
			log.WithError(err).Warn("failed to import persisted parameters, starting from scratch")
		} else {
			log.Info("restored engine parameters from persistence backend")
		}
	}

	if *manifestPath != "" {
		manifest, err := bootstrap.LoadManifest(*manifestPath)
		if err != nil {
			log.WithError(err).Fatal("failed to load capabilities manifest")
		}
		if err := bootstrap.Seed(engine, manifest, *capabilityDir, cfg.Engine.EmbeddingDim); err != nil {
			log.WithError(err).Fatal("failed to seed engine from manifest")
		}
		log.WithField("manifest", *manifestPath).Info("engine seeded from manifest")
	}

	authMiddleware := auth.NewMiddleware(&cfg.OIDC)
	signatureMiddleware := auth.NewSignatureMiddleware(cfg.Webhook.Secret)

	handler := httpapi.NewHandler(engine, paramStore, cfg.Persist.EngineID, log)
	router := httpapi.NewRouter(handler, authMiddleware, signatureMiddleware)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		log.Info("server is shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Fatal("could not gracefully shut down the server")
		}
		close(done)
	}()

	log.WithField("addr", addr).Info("server is starting")
	log.WithField("backend", cfg.Persist.Backend).Info("persistence backend selected")
	if cfg.OIDC.ClientID != "" {
		log.Info("OIDC authentication enabled")
	}
	if cfg.Webhook.Secret != "" {
		log.Info("outcome webhook signature verification enabled")
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("could not listen")
	}

	<-done
	log.Info("server stopped")
}

// newParamStore selects and constructs the configured ParamStore/ExampleStore
// backend. The cos backend only implements ParamStore; bulk training
// examples stay on memory or sqlite.
func newParamStore(cfg *config.Config) (store.ParamStore, error) {
	switch cfg.Persist.Backend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Persist.SQLite.Path)
	case "cos":
		return store.NewCOSStore(&store.COSConfig{
			Bucket:    cfg.Persist.COS.Bucket,
			Region:    cfg.Persist.COS.Region,
			SecretID:  cfg.Persist.COS.SecretID,
			SecretKey: cfg.Persist.COS.SecretKey,
			Domain:    cfg.Persist.COS.Domain,
			Scheme:    cfg.Persist.COS.Scheme,
			Prefix:    cfg.Persist.COS.Prefix,
		})
	default:
		return store.NewMemoryStore(), nil
	}
}
