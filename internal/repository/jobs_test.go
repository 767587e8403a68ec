package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestEnqueueAndClaimOldestFirst(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db, nil)
	ctx := context.Background()

	first, err := repo.Enqueue(ctx, uuid.New(), constants.JobTypeExtractText)
	require.NoError(t, err)
	// Separate the created_at timestamps so ordering is unambiguous.
	require.NoError(t, db.Model(&entity.ProcessingJob{}).
		Where("id = ?", first.ID).
		Update("created_at", time.Now().UTC().Add(-time.Minute)).Error)

	second, err := repo.Enqueue(ctx, uuid.New(), constants.JobTypeExtractText)
	require.NoError(t, err)

	claimed, err := repo.ClaimNext(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)
	assert.Equal(t, constants.JobStatusProcessing, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
	assert.NotNil(t, claimed.StartedAt)

	claimed2, err := repo.ClaimNext(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, claimed2)
	assert.Equal(t, second.ID, claimed2.ID)
}

func TestClaimIsExclusive(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db, nil)
	ctx := context.Background()

	job, err := repo.Enqueue(ctx, uuid.New(), constants.JobTypeExtractText)
	require.NoError(t, err)

	claimed, err := repo.ClaimNext(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)

	// Same job must not be claimable twice.
	again, err := repo.ClaimNext(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestClaimRespectsAttemptLimit(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db, nil)
	ctx := context.Background()

	job, err := repo.Enqueue(ctx, uuid.New(), constants.JobTypeExtractText)
	require.NoError(t, err)
	require.NoError(t, db.Model(&entity.ProcessingJob{}).
		Where("id = ?", job.ID).
		Update("attempts", 3).Error)

	claimed, err := repo.ClaimNext(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestRequeueThenTerminalFailure(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db, nil)
	ctx := context.Background()

	job, err := repo.Enqueue(ctx, uuid.New(), constants.JobTypeExtractText)
	require.NoError(t, err)

	maxAttempts := 2
	for i := 1; i <= maxAttempts; i++ {
		claimed, err := repo.ClaimNext(ctx, maxAttempts)
		require.NoError(t, err)
		require.NotNil(t, claimed, "attempt %d should be claimable", i)
		assert.Equal(t, i, claimed.Attempts)

		if claimed.Attempts >= maxAttempts {
			require.NoError(t, repo.MarkFailed(ctx, claimed.ID, "still broken"))
		} else {
			require.NoError(t, repo.Requeue(ctx, claimed.ID, "boom"))
		}
	}

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, got.Status)
	assert.Equal(t, maxAttempts, got.Attempts)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "still broken", *got.LastError)

	// Terminally failed jobs never come back.
	claimed, err := repo.ClaimNext(ctx, maxAttempts)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestMarkDoneClearsError(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db, nil)
	ctx := context.Background()

	job, err := repo.Enqueue(ctx, uuid.New(), constants.JobTypeExtractText)
	require.NoError(t, err)
	require.NoError(t, repo.Requeue(ctx, job.ID, "transient"))

	_, err = repo.ClaimNext(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, repo.MarkDone(ctx, job.ID))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, got.Status)
	assert.Nil(t, got.LastError)
	assert.NotNil(t, got.FinishedAt)
}

func TestReclaimStuckOnce(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db, nil)
	ctx := context.Background()

	job, err := repo.Enqueue(ctx, uuid.New(), constants.JobTypeExtractText)
	require.NoError(t, err)

	claimed, err := repo.ClaimNext(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// Simulate a worker that died 20 minutes ago.
	require.NoError(t, db.Model(&entity.ProcessingJob{}).
		Where("id = ?", job.ID).
		Update("updated_at", time.Now().UTC().Add(-20*time.Minute)).Error)

	n, err := repo.ReclaimStuck(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusQueued, got.Status)

	// The reclaim refreshed updated_at, so a second sweep finds nothing.
	n, err = repo.ReclaimStuck(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestReclaimIgnoresFreshProcessing(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db, nil)
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, uuid.New(), constants.JobTypeExtractText)
	require.NoError(t, err)
	_, err = repo.ClaimNext(ctx, 3)
	require.NoError(t, err)

	n, err := repo.ReclaimStuck(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestErrorTextTruncated(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db, nil)
	ctx := context.Background()

	job, err := repo.Enqueue(ctx, uuid.New(), constants.JobTypeExtractText)
	require.NoError(t, err)

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, repo.MarkFailed(ctx, job.ID, string(long)))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastError)
	assert.Len(t, *got.LastError, maxErrorChars)
}
