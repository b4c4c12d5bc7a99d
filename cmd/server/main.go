package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Brownie44l1/letters-api/internal/config"
	"github.com/Brownie44l1/letters-api/internal/handlers"
	"github.com/Brownie44l1/letters-api/internal/model"
	"github.com/Brownie44l1/letters-api/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// projectPath resolves relative paths against the repository root so the
// binary behaves the same from the root and from cmd/server.
func projectPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	if filepath.Base(wd) == "server" {
		wd = filepath.Join(wd, "../..")
	}
	return filepath.Join(wd, p)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.InitLogger("letters-api", "info", true)
		log.Fatal().Err(err).Msg("config error")
	}
	observability.InitLogger("letters-api", cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(gin.ReleaseMode)

	var loader model.Loader
	switch cfg.Backend {
	case "static":
		log.Warn().Msg("serving a uniform static model; predictions are placeholders")
		loader = func() (model.Classifier, error) { return model.Uniform(), nil }
	default:
		if err := model.InitRuntime(cfg.RuntimeLib); err != nil {
			log.Fatal().Err(err).Msg("onnx runtime")
		}
		defer model.ShutdownRuntime()

		modelPath := projectPath(cfg.ModelPath)
		metadataPath := projectPath(cfg.MetadataPath)
		loader = func() (model.Classifier, error) {
			log.Info().Str("model", modelPath).Str("metadata", metadataPath).Msg("loading model")
			return model.NewServer(modelPath, metadataPath)
		}
	}

	initial, err := loader()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize model server")
	}
	models := model.NewHolder(initial)
	defer models.Close()

	handler := handlers.NewHandler(models, loader, handlers.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		MaxImageSide:   cfg.MaxImageSide,
		BatchLimit:     cfg.BatchLimit,
		BatchWorkers:   cfg.BatchWorkers,
		AllowReload:    cfg.AllowReload,
		CorsOrigins:    cfg.CorsOrigins,
		StaticDir:      projectPath(cfg.StaticDir),
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      handlers.NewRouter(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	log.Info().
		Str("addr", cfg.ListenAddr()).
		Str("backend", cfg.Backend).
		Strs("classes", models.Classes()).
		Bool("reload", cfg.AllowReload).
		Msg("server starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server failed")
	}
}
