package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/llm"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/ocr"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/processor"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/storage"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/transcribe"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/worker"
)

var (
	flagDB           string
	flagPollSeconds  float64
	flagMaxAttempts  int
	flagReclaimSecs  int
	flagLLMBaseURL   string
	flagLLMModel     string
)

func main() {
	root := &cobra.Command{
		Use:   "worker",
		Short: "Artifact processing worker",
		Long:  "Claims queued processing jobs and runs extraction stages (OCR, transcription, structured claim extraction) against uploaded artifacts.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context())
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&flagDB, "db", "", "database URL (overrides DB_URL)")
	root.Flags().Float64Var(&flagPollSeconds, "poll-seconds", 0, "seconds to sleep when no jobs are available")
	root.Flags().IntVar(&flagMaxAttempts, "max-attempts", 0, "max attempts per job before marking failed")
	root.Flags().IntVar(&flagReclaimSecs, "reclaim-after-seconds", 0, "reset jobs stuck in processing longer than this")
	root.PersistentFlags().StringVar(&flagLLMBaseURL, "llm-base-url", "", "OpenAI-compatible completions endpoint (overrides LLM_BASE_URL)")
	root.PersistentFlags().StringVar(&flagLLMModel, "llm-model", "", "model name (overrides LLM_MODEL)")

	reprocess := &cobra.Command{
		Use:   "reprocess",
		Short: "Enqueue extract_text for every artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReprocess(cmd.Context())
		},
		SilenceUsage: true,
	}
	reprocess.Flags().StringVar(&flagDB, "db", "", "database URL (overrides DB_URL)")
	root.AddCommand(reprocess)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges env configuration with CLI overrides; flags win.
func loadConfig() (*common.Config, error) {
	cfg := common.LoadConfig()
	if flagDB != "" {
		cfg.Database.DSN = flagDB
	}
	if flagPollSeconds > 0 {
		cfg.Worker.PollInterval = time.Duration(flagPollSeconds * float64(time.Second))
	}
	if flagMaxAttempts > 0 {
		cfg.Worker.MaxAttempts = flagMaxAttempts
	}
	if flagReclaimSecs > 0 {
		cfg.Worker.ReclaimAfter = time.Duration(flagReclaimSecs) * time.Second
	}
	if flagLLMBaseURL != "" {
		cfg.LLM.BaseURL = flagLLMBaseURL
	}
	if flagLLMModel != "" {
		cfg.LLM.Model = flagLLMModel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return log
}

func runWorker(ctx context.Context) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, pool, err := repository.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer repository.Close(pool, log)

	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, log); err != nil {
		return err
	}
	if err := repository.Migrate(db); err != nil {
		return err
	}

	jobs := repository.NewJobRepository(db, log)
	artifacts := repository.NewArtifactRepository(db, log)
	segments := repository.NewSegmentRepository(db, log)
	claims := repository.NewClaimRepository(db, log)

	runner := ocr.NewExecRunner()
	proc := processor.New(
		*cfg,
		log,
		artifacts,
		segments,
		claims,
		jobs,
		storage.NewResolver(cfg.DataDir),
		ocr.NewExtractor(cfg.OCR, runner),
		transcribe.NewWhisperTranscriber(cfg.Transcribe, runner),
		llm.NewClient(cfg.LLM, log),
	)

	w := worker.New(cfg.Worker, log, jobs, artifacts, proc)
	return w.Run(ctx)
}

func runReprocess(ctx context.Context) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, pool, err := repository.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer repository.Close(pool, log)

	artifacts := repository.NewArtifactRepository(db, log)
	jobs := repository.NewJobRepository(db, log)

	ids, err := artifacts.ListIDs(ctx)
	if err != nil {
		return err
	}
	enqueued := 0
	for _, id := range ids {
		if _, err := jobs.Enqueue(ctx, id, constants.JobTypeExtractText); err != nil {
			log.Error("reprocess.enqueue.failed", "artifact_id", id, "error", err)
			continue
		}
		enqueued++
	}
	log.Info("reprocess.done", "artifacts", len(ids), "enqueued", enqueued)
	return nil
}
