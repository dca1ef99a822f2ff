package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	extractorffmpeg "affekt/internal/adapter/extractor/ffmpeg"
	"affekt/internal/adapter/facedetect/deepface"
	samplerffmpeg "affekt/internal/adapter/sampler/ffmpeg"
	"affekt/internal/adapter/storage/memory"
	"affekt/internal/adapter/transcriber/sensevoice"
	"affekt/internal/domain"
	"affekt/internal/service"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <video>",
	Short: "Analyze a local video file and print the result as JSON",
	Long: `Runs the full analysis pipeline against a local file without starting
the HTTP server. The model sidecars must still be reachable.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	videoPath := args[0]
	info, err := os.Stat(videoPath)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", videoPath, err)
	}

	jobs := memory.NewStore()
	orch := service.NewOrchestrator(
		jobs,
		extractorffmpeg.NewExtractor(cfg.FFmpeg.FFmpegPath),
		sensevoice.NewClient(cfg.Services.ASRURL),
		deepface.NewClient(cfg.Services.FaceURL),
		samplerffmpeg.NewSampler(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath),
		nil,
		cfg.FrameStride,
		1,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	orch.Start(ctx)

	src := domain.NewSource(info.Name(), videoPath, "", info.Size())
	jobID, err := orch.Submit(src)
	if err != nil {
		return err
	}

	for {
		snapshot, err := orch.Status(jobID)
		if err != nil {
			return err
		}
		if snapshot.Status == domain.AnalysisStatusCompleted || snapshot.Status == domain.AnalysisStatusFailed {
			out, err := json.MarshalIndent(snapshot, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if snapshot.Status == domain.AnalysisStatusFailed {
				return fmt.Errorf("analysis failed: %s", snapshot.Error)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
