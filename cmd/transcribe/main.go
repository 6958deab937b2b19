package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"line-work-assistant/internal/bootstrap"
	"line-work-assistant/internal/config"
	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/pkg/audio"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type options struct {
	file     string
	language string
	timeout  time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "transcribe",
		Short:         "Transcribe and summarize a local audio file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.Context(), opts)
			if err != nil {
				color.Red("❌ %v", err)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Path to the audio file.")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Transcription language (defaults to TRANSCRIPTION_LANGUAGE).")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Overall timeout (defaults to JOB_TIMEOUT).")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func run(parent context.Context, opts *options) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := config.Load()
	if opts.language != "" {
		cfg.Ai.TranscriptionLanguage = opts.language
	}
	timeout := opts.timeout
	if timeout <= 0 {
		timeout = cfg.Timeouts.Job
	}

	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}

	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	defer sysLogger.Sync()

	llmProvider, err := bootstrap.NewLLMProvider(cfg)
	if err != nil {
		return fmt.Errorf("init LLM provider: %w", err)
	}
	pipeline := bootstrap.NewAudioPipeline(cfg, llmProvider, sysLogger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	job := &audio.Job{
		ID:       uuid.NewString(),
		OwnerID:  "cli",
		Filename: filepath.Base(opts.file),
		Data:     data,
	}

	color.Cyan("🎙️ %s (%.1f MB)", job.Filename, audio.ToMB(job.SizeBytes()))

	result, err := pipeline.Process(ctx, job)
	if err != nil {
		if errors.Is(err, audio.ErrMediaTooLarge) {
			return fmt.Errorf("file exceeds %.0f MB: %w", audio.ToMB(pipeline.Policy().HardCapBytes), err)
		}
		return err
	}

	printResult(result)
	if result.Status() == audio.StatusFailed {
		return audio.ErrNoTranscript
	}
	return nil
}

func printResult(result *audio.Result) {
	header := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgYellow)

	header.Println("=== Result ===")
	fmt.Printf("Method:   %s\n", result.Method)
	fmt.Printf("Chunks:   %d (failed %d)\n", len(result.Segments), result.FailedChunks())
	fmt.Printf("Duration: %.0fs\n\n", result.Duration.Seconds())

	header.Println("=== Transcript ===")
	for _, seg := range result.Segments {
		label.Println(audio.SegmentLabel(seg.ChunkIndex))
		if seg.Failed {
			color.Red("transcription failed: %s", seg.ErrorDetail)
			continue
		}
		fmt.Println(seg.Text)
	}
	fmt.Println()

	header.Println("=== Summary ===")
	if result.SummaryErr != nil {
		color.Red("Summary failed: %v", result.SummaryErr)
		return
	}
	if result.Truncated {
		color.Yellow("(transcript truncated before summarizing)")
	}
	fmt.Println(result.Summary)
}
