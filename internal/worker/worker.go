package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
)

// reclaimEvery rate-limits the stuck-job sweep; running it on every poll
// would hammer the database for no benefit.
const reclaimEvery = 30 * time.Second

// Executor runs one claimed job to completion.
type Executor interface {
	Run(ctx context.Context, job *entity.ProcessingJob) error
}

// Worker is the long-lived claim/execute/record loop. One loop per process,
// one job at a time; parallelism comes from running more processes against
// the same job store.
type Worker struct {
	id        uuid.UUID
	cfg       common.WorkerConfig
	log       *slog.Logger
	jobs      repository.JobRepository
	artifacts repository.ArtifactRepository
	executor  Executor
}

func New(
	cfg common.WorkerConfig,
	log *slog.Logger,
	jobs repository.JobRepository,
	artifacts repository.ArtifactRepository,
	executor Executor,
) *Worker {
	id := uuid.New()
	return &Worker{
		id:        id,
		cfg:       cfg,
		log:       log.With("worker_id", id),
		jobs:      jobs,
		artifacts: artifacts,
		executor:  executor,
	}
}

// Run polls until ctx is cancelled. Cancellation is cooperative: the current
// job finishes before the loop exits.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker.started",
		"poll_interval", w.cfg.PollInterval,
		"max_attempts", w.cfg.MaxAttempts,
		"reclaim_after", w.cfg.ReclaimAfter)

	var lastReclaim time.Time
	for {
		if ctx.Err() != nil {
			break
		}

		if time.Since(lastReclaim) > reclaimEvery {
			if n, err := w.jobs.ReclaimStuck(ctx, w.cfg.ReclaimAfter); err != nil {
				w.log.Error("worker.reclaim.failed", "error", err)
			} else if n > 0 {
				w.log.Info("worker.reclaimed", "count", n)
			}
			lastReclaim = time.Now()
		}

		job, err := w.jobs.ClaimNext(ctx, w.cfg.MaxAttempts)
		if err != nil {
			w.log.Error("worker.claim.failed", "error", err)
			if !w.sleep(ctx) {
				break
			}
			continue
		}
		if job == nil {
			if !w.sleep(ctx) {
				break
			}
			continue
		}

		w.RunOne(ctx, job)
	}

	w.log.Info("worker.stopped")
	return nil
}

// RunOne executes a claimed job and records its terminal or retryable
// outcome. Job-level bookkeeping never uses ctx directly so that a shutdown
// mid-job still records the outcome.
func (w *Worker) RunOne(ctx context.Context, job *entity.ProcessingJob) {
	w.log.Info("job.executing",
		"job_id", job.ID,
		"job_type", job.JobType,
		"artifact_id", job.ArtifactID,
		"attempt", job.Attempts)
	start := time.Now()

	err := w.executor.Run(ctx, job)
	if err == nil {
		if err := w.jobs.MarkDone(context.Background(), job.ID); err != nil {
			w.log.Error("job.mark_done.failed", "job_id", job.ID, "error", err)
			return
		}
		w.log.Info("job.done",
			"job_id", job.ID,
			"duration_ms", time.Since(start).Milliseconds())
		w.chainNext(job)
		return
	}

	terminal := common.IsFatal(err) || job.Attempts >= w.cfg.MaxAttempts
	if terminal {
		if mErr := w.jobs.MarkFailed(context.Background(), job.ID, err.Error()); mErr != nil {
			w.log.Error("job.mark_failed.failed", "job_id", job.ID, "error", mErr)
			return
		}
		w.log.Error("job.failed",
			"job_id", job.ID,
			"job_type", job.JobType,
			"attempt", job.Attempts,
			"fatal", common.IsFatal(err),
			"error", err)
		w.markArtifactError(job, err)
		return
	}

	if mErr := w.jobs.Requeue(context.Background(), job.ID, err.Error()); mErr != nil {
		w.log.Error("job.requeue.failed", "job_id", job.ID, "error", mErr)
		return
	}
	w.log.Warn("job.retrying",
		"job_id", job.ID,
		"job_type", job.JobType,
		"attempt", job.Attempts,
		"error", err)
}

// chainNext enqueues the follow-up extraction stage: any artifact whose raw
// text just landed gets a structured-extraction pass.
func (w *Worker) chainNext(job *entity.ProcessingJob) {
	if job.JobType != constants.JobTypeExtractText {
		return
	}
	next, err := w.jobs.Enqueue(context.Background(), job.ArtifactID, constants.JobTypeExtractStruct)
	if err != nil {
		w.log.Error("job.chain.failed",
			"job_id", job.ID,
			"artifact_id", job.ArtifactID,
			"error", err)
		return
	}
	w.log.Info("job.chained",
		"job_id", job.ID,
		"next_job_id", next.ID,
		"next_job_type", next.JobType)
}

// markArtifactError patches the artifact after a terminal extraction
// failure so the failure is visible outside the job table. Downstream
// claim-extraction failures do not flip an already-processed artifact.
func (w *Worker) markArtifactError(job *entity.ProcessingJob, cause error) {
	switch job.JobType {
	case constants.JobTypeExtractText, constants.JobTypeTranscribeAudio:
	default:
		return
	}
	if err := w.artifacts.MarkError(context.Background(), job.ArtifactID, cause.Error()); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			w.log.Error("artifact.mark_error.failed", "artifact_id", job.ArtifactID, "error", err)
		}
	}
}

// sleep waits one poll interval; false means ctx was cancelled.
func (w *Worker) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.cfg.PollInterval):
		return true
	}
}
