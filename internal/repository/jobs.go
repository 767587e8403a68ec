package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
)

const (
	// last_error caps: terminal/retry outcomes keep more context than reclaims.
	maxErrorChars   = 2000
	reclaimErrChars = 1000

	// How many times a single ClaimNext call re-selects after losing the
	// claim race before giving up and letting the caller sleep.
	claimRetries = 3
)

type JobRepository interface {
	// Enqueue creates a new queued job with attempts=0. No deduplication is
	// performed; enqueuing the same (artifact, type) twice yields two jobs.
	Enqueue(ctx context.Context, artifactID uuid.UUID, jobType constants.JobType) (*entity.ProcessingJob, error)

	// ClaimNext atomically transitions the oldest eligible queued job to
	// processing and returns it. Returns (nil, nil) when no job qualifies.
	ClaimNext(ctx context.Context, maxAttempts int) (*entity.ProcessingJob, error)

	// ReclaimStuck returns jobs abandoned in processing back to queued once
	// their updated_at is older than the cutoff. Returns the reclaim count.
	ReclaimStuck(ctx context.Context, olderThan time.Duration) (int64, error)

	MarkDone(ctx context.Context, jobID uuid.UUID) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, errText string) error
	Requeue(ctx context.Context, jobID uuid.UUID, errText string) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ProcessingJob, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewJobRepository(db *gorm.DB, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &jobRepo{db: db, log: log}
}

func (r *jobRepo) Enqueue(ctx context.Context, artifactID uuid.UUID, jobType constants.JobType) (*entity.ProcessingJob, error) {
	now := time.Now().UTC()
	job := &entity.ProcessingJob{
		ID:         uuid.New(),
		ArtifactID: artifactID,
		JobType:    jobType,
		Status:     constants.JobStatusQueued,
		Attempts:   0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		r.log.Error("job.enqueue.failed", "artifact_id", artifactID, "job_type", jobType, "error", err)
		return nil, common.WrapError(err, "enqueue job")
	}
	r.log.Info("job.enqueued", "job_id", job.ID, "artifact_id", artifactID, "job_type", jobType)
	return job, nil
}

func (r *jobRepo) ClaimNext(ctx context.Context, maxAttempts int) (*entity.ProcessingJob, error) {
	for i := 0; i < claimRetries; i++ {
		var candidate entity.ProcessingJob
		err := r.db.WithContext(ctx).
			Where("status = ? AND attempts < ?", constants.JobStatusQueued, maxAttempts).
			Order("created_at ASC").
			First(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, common.WrapError(err, "select queued job")
		}

		// Compare-and-swap on status: only one caller can win this update,
		// so two concurrent workers can never claim the same job.
		now := time.Now().UTC()
		res := r.db.WithContext(ctx).
			Model(&entity.ProcessingJob{}).
			Where("id = ? AND status = ?", candidate.ID, constants.JobStatusQueued).
			Updates(map[string]any{
				"status":     constants.JobStatusProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"started_at": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return nil, common.WrapError(res.Error, "claim job")
		}
		if res.RowsAffected == 0 {
			// Lost the race to another worker; re-select.
			continue
		}

		var claimed entity.ProcessingJob
		if err := r.db.WithContext(ctx).First(&claimed, "id = ?", candidate.ID).Error; err != nil {
			return nil, common.WrapError(err, "reload claimed job")
		}
		r.log.Info("job.claimed", "job_id", claimed.ID, "job_type", claimed.JobType, "attempt", claimed.Attempts)
		return &claimed, nil
	}
	return nil, nil
}

func (r *jobRepo) ReclaimStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res := r.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("status = ? AND updated_at < ?", constants.JobStatusProcessing, cutoff).
		Updates(map[string]any{
			"status":     constants.JobStatusQueued,
			"updated_at": time.Now().UTC(),
			"last_error": gorm.Expr("substr(coalesce(last_error, ''), 1, ?)", reclaimErrChars),
		})
	if res.Error != nil {
		return 0, common.WrapError(res.Error, "reclaim stuck jobs")
	}
	if res.RowsAffected > 0 {
		r.log.Warn("job.reclaimed", "count", res.RowsAffected, "older_than", olderThan)
	}
	return res.RowsAffected, nil
}

func (r *jobRepo) MarkDone(ctx context.Context, jobID uuid.UUID) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":      constants.JobStatusDone,
			"finished_at": now,
			"updated_at":  now,
			"last_error":  nil,
		}).Error
	if err != nil {
		r.log.Error("job.mark_done.failed", "job_id", jobID, "error", err)
		return common.WrapError(err, "mark job done")
	}
	return nil
}

func (r *jobRepo) MarkFailed(ctx context.Context, jobID uuid.UUID, errText string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":      constants.JobStatusFailed,
			"finished_at": now,
			"updated_at":  now,
			"last_error":  truncate(errText, maxErrorChars),
		}).Error
	if err != nil {
		r.log.Error("job.mark_failed.failed", "job_id", jobID, "error", err)
		return common.WrapError(err, "mark job failed")
	}
	return nil
}

func (r *jobRepo) Requeue(ctx context.Context, jobID uuid.UUID, errText string) error {
	err := r.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":     constants.JobStatusQueued,
			"updated_at": time.Now().UTC(),
			"last_error": truncate(errText, maxErrorChars),
		}).Error
	if err != nil {
		r.log.Error("job.requeue.failed", "job_id", jobID, "error", err)
		return common.WrapError(err, "requeue job")
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ProcessingJob, error) {
	var job entity.ProcessingJob
	err := r.db.WithContext(ctx).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "get job")
	}
	return &job, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
