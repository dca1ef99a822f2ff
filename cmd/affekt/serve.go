package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	extractorffmpeg "affekt/internal/adapter/extractor/ffmpeg"
	"affekt/internal/adapter/facedetect/deepface"
	HTTPAdapter "affekt/internal/adapter/http"
	samplerffmpeg "affekt/internal/adapter/sampler/ffmpeg"
	"affekt/internal/adapter/storage/memory"
	sqlitestore "affekt/internal/adapter/storage/sqlite"
	"affekt/internal/adapter/transcriber/sensevoice"
	"affekt/internal/infrastructure/logger"
	"affekt/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Infof("starting affekt %s on port %d", version, cfg.Port)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	sources, err := sqlitestore.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open source registry: %w", err)
	}
	defer func() { _ = sources.Close() }()

	jobs := memory.NewStore()
	eventBus := service.NewEventBus()

	orch := service.NewOrchestrator(
		jobs,
		extractorffmpeg.NewExtractor(cfg.FFmpeg.FFmpegPath),
		sensevoice.NewClient(cfg.Services.ASRURL),
		deepface.NewClient(cfg.Services.FaceURL),
		samplerffmpeg.NewSampler(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath),
		eventBus,
		cfg.FrameStride,
		cfg.Workers,
	)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	orch.Start(workerCtx)

	analysisSvc := service.NewAnalysisService(sources, orch, cfg.DataDir)
	server := HTTPAdapter.NewServer(analysisSvc, eventBus, cfg.MaxUploadSizeMB, cfg.CORSOrigins, version)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Infof("received %s, shutting down", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("http shutdown error: %v", err)
		}

		// Stop workers (lets the in-flight job finish)
		workerCancel()

		logger.Infof("shutdown complete")
	}()

	logger.Infof("server listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
