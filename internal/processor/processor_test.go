package processor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/ocr"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/storage"
)

// stubRunner serves canned outputs per command and records what ran.
type stubRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (r *stubRunner) Run(_ context.Context, name string, _ ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, name)
	if err, ok := r.errs[name]; ok {
		return nil, []byte(err.Error()), err
	}
	return []byte(r.outputs[name]), nil, nil
}

func (r *stubRunner) called(name string) bool {
	for _, c := range r.calls {
		if c == name {
			return true
		}
	}
	return false
}

// fakeBackend replays scripted completions.
type fakeBackend struct {
	replies []string
	calls   int
	err     error
}

func (b *fakeBackend) Complete(context.Context, string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.calls >= len(b.replies) {
		return "", errors.New("fakeBackend: out of replies")
	}
	reply := b.replies[b.calls]
	b.calls++
	return reply, nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(context.Context, string) (string, error) {
	return s.text, s.err
}

type testEnv struct {
	db        *gorm.DB
	proc      *Processor
	runner    *stubRunner
	backend   *fakeBackend
	artifacts repository.ArtifactRepository
	segments  repository.SegmentRepository
	claims    repository.ClaimRepository
	jobs      repository.JobRepository
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	dataDir := t.TempDir()
	cfg := common.Config{
		OCR: common.OCRConfig{
			Pdftotext: "pdftotext",
			Pdftoppm:  "pdftoppm",
			Tesseract: "tesseract",
			Lang:      "eng",
			DPI:       220,
		},
		Extract: common.ExtractConfig{MaxChars: 12000, MaxAttempts: 2, MaxFacts: 40},
		DataDir: dataDir,
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	runner := &stubRunner{outputs: map[string]string{}, errs: map[string]error{}}
	backend := &fakeBackend{}

	env := &testEnv{
		db:        db,
		runner:    runner,
		backend:   backend,
		artifacts: repository.NewArtifactRepository(db, log),
		segments:  repository.NewSegmentRepository(db, log),
		claims:    repository.NewClaimRepository(db, log),
		jobs:      repository.NewJobRepository(db, log),
		dataDir:   dataDir,
	}
	env.proc = New(
		cfg,
		log,
		env.artifacts,
		env.segments,
		env.claims,
		env.jobs,
		storage.NewResolver(dataDir),
		ocr.NewExtractor(cfg.OCR, runner),
		&stubTranscriber{text: "transcript text"},
		backend,
	)
	return env
}

// createArtifact inserts an artifact row with a backing file on disk.
func (e *testEnv) createArtifact(t *testing.T, kind constants.ArtifactKind, filename string) *entity.Artifact {
	t.Helper()

	a := &entity.Artifact{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    constants.ArtifactStatusUploaded,
		CreatedAt: time.Now().UTC(),
	}
	if filename != "" {
		path := filepath.Join(e.dataDir, filename)
		require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
		a.StoragePath = &filename
		a.OriginalFilename = &filename
	}
	require.NoError(t, e.db.Create(a).Error)
	return a
}

// createTextArtifact inserts a text-note artifact with inline content.
func (e *testEnv) createTextArtifact(t *testing.T, content string) *entity.Artifact {
	t.Helper()

	a := &entity.Artifact{
		ID:          uuid.New(),
		Kind:        constants.KindText,
		TextContent: &content,
		Status:      constants.ArtifactStatusUploaded,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, e.db.Create(a).Error)
	return a
}

func (e *testEnv) job(a *entity.Artifact, jobType constants.JobType) *entity.ProcessingJob {
	return &entity.ProcessingJob{
		ID:         uuid.New(),
		ArtifactID: a.ID,
		JobType:    jobType,
		Status:     constants.JobStatusProcessing,
		Attempts:   1,
	}
}

func TestRunUnknownJobTypeIsFatal(t *testing.T) {
	env := newTestEnv(t)
	a := env.createTextArtifact(t, "note")

	err := env.proc.Run(context.Background(), env.job(a, constants.JobType("compact_universe")))
	require.Error(t, err)
	require.True(t, common.IsFatal(err))
}

func TestRunMissingArtifactIsFatal(t *testing.T) {
	env := newTestEnv(t)

	job := &entity.ProcessingJob{
		ID:         uuid.New(),
		ArtifactID: uuid.New(),
		JobType:    constants.JobTypeExtractText,
	}
	err := env.proc.Run(context.Background(), job)
	require.Error(t, err)
	require.True(t, common.IsFatal(err))
}

func TestExtractTextUnsupportedKindIsNoop(t *testing.T) {
	env := newTestEnv(t)
	a := env.createArtifact(t, constants.KindFile, "data.bin")

	err := env.proc.Run(context.Background(), env.job(a, constants.JobTypeExtractText))
	require.NoError(t, err)

	segs, err := env.segments.ListByArtifact(context.Background(), a.ID)
	require.NoError(t, err)
	require.Empty(t, segs)
}

func TestExtractTextNoteNormalizesWhitespace(t *testing.T) {
	env := newTestEnv(t)
	a := env.createTextArtifact(t, "  hello   world  ")

	err := env.proc.Run(context.Background(), env.job(a, constants.JobTypeExtractText))
	require.NoError(t, err)

	segs, err := env.segments.ListByArtifact(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	require.Equal(t, "hello world", segs[0].Text)
	require.Equal(t, "text:note", segs[0].SourceRef)

	got, err := env.artifacts.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ArtifactStatusProcessed, got.Status)
}

func TestTranscribeWritesSegmentAndMirror(t *testing.T) {
	env := newTestEnv(t)
	a := env.createArtifact(t, constants.KindAudio, "meeting.mp3")

	err := env.proc.Run(context.Background(), env.job(a, constants.JobTypeTranscribeAudio))
	require.NoError(t, err)

	segs, err := env.segments.ListByArtifact(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	require.Equal(t, "transcript text", segs[0].Text)
	require.Equal(t, "transcript", segs[0].SourceRef)

	got, err := env.artifacts.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TextContent)
	require.Equal(t, "transcript text", *got.TextContent)
	require.Equal(t, constants.ArtifactStatusProcessed, got.Status)
}

func TestExtractTextPendingStorageIsFatal(t *testing.T) {
	env := newTestEnv(t)

	pending := constants.StoragePending
	name := "doc.pdf"
	a := &entity.Artifact{
		ID:               uuid.New(),
		Kind:             constants.KindPDF,
		StoragePath:      &pending,
		OriginalFilename: &name,
		Status:           constants.ArtifactStatusUploaded,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, env.db.Create(a).Error)

	err := env.proc.Run(context.Background(), env.job(a, constants.JobTypeExtractText))
	require.Error(t, err)
	require.True(t, common.IsFatal(err))
}
