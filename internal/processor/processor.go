package processor

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/llm"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/ocr"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/storage"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/transcribe"
)

// Processor routes claimed jobs to the extraction handlers. One instance is
// built at worker startup; all external handles (OCR toolchain, speech to
// text, model backend) live here instead of in globals.
type Processor struct {
	cfg common.Config
	log *slog.Logger

	artifacts repository.ArtifactRepository
	segments  repository.SegmentRepository
	claims    repository.ClaimRepository
	jobs      repository.JobRepository

	resolver    *storage.Resolver
	extractor   *ocr.Extractor
	transcriber transcribe.Transcriber
	backend     llm.Backend
}

func New(
	cfg common.Config,
	log *slog.Logger,
	artifacts repository.ArtifactRepository,
	segments repository.SegmentRepository,
	claims repository.ClaimRepository,
	jobs repository.JobRepository,
	resolver *storage.Resolver,
	extractor *ocr.Extractor,
	transcriber transcribe.Transcriber,
	backend llm.Backend,
) *Processor {
	return &Processor{
		cfg:         cfg,
		log:         log,
		artifacts:   artifacts,
		segments:    segments,
		claims:      claims,
		jobs:        jobs,
		resolver:    resolver,
		extractor:   extractor,
		transcriber: transcriber,
		backend:     backend,
	}
}

// Run executes one claimed job. An unknown job type or a missing artifact is
// a fatal error; everything else is retryable by the caller.
func (p *Processor) Run(ctx context.Context, job *entity.ProcessingJob) error {
	artifact, err := p.artifacts.GetByID(ctx, job.ArtifactID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Fatalf("artifact not found: %s", job.ArtifactID)
		}
		return err
	}

	p.log.Info("job.dispatch",
		"job_id", job.ID,
		"job_type", job.JobType,
		"artifact_id", artifact.ID,
		"kind", artifact.Kind)

	switch job.JobType {
	case constants.JobTypeExtractText:
		return p.extractText(ctx, artifact)
	case constants.JobTypeTranscribeAudio:
		return p.transcribeArtifact(ctx, artifact)
	case constants.JobTypeExtractStruct:
		return p.extractStructured(ctx, artifact)
	case constants.JobTypeExtractDiscover:
		return p.extractDiscovery(ctx, artifact)
	default:
		return common.Fatalf("unknown job type: %q", job.JobType)
	}
}

// textRoute is one row of the extract_text dispatch table. Routes are tried
// in order; the first match wins.
type textRoute struct {
	name    string
	match   func(kind constants.ArtifactKind, ext, mime string) bool
	handler func(ctx context.Context, a *entity.Artifact) error
}

func (p *Processor) textRoutes() []textRoute {
	return []textRoute{
		{"pdf", constants.IsPDF, p.extractPDF},
		{"image", constants.IsImage, p.extractImage},
		{"audio_video", constants.IsAudioVideo, p.transcribeArtifact},
		{"text_note", func(kind constants.ArtifactKind, _, _ string) bool {
			return kind == constants.KindText
		}, p.extractTextNote},
	}
}

// extractText sub-dispatches by artifact kind, extension and MIME. Declared
// kind alone is not enough: bulk-archive ingestion leaves kind as the
// generic "file".
func (p *Processor) extractText(ctx context.Context, a *entity.Artifact) error {
	ext := ""
	if a.OriginalFilename != nil {
		ext = filepath.Ext(*a.OriginalFilename)
	}
	mime := ""
	if a.MimeType != nil {
		mime = strings.ToLower(*a.MimeType)
	}

	for _, route := range p.textRoutes() {
		if route.match(a.Kind, ext, mime) {
			p.log.Debug("extract_text.route", "artifact_id", a.ID, "route", route.name)
			return route.handler(ctx, a)
		}
	}

	// Unsupported kinds are a logged no-op, not an error.
	p.log.Info("extract_text.unsupported",
		"artifact_id", a.ID,
		"kind", a.Kind,
		"ext", ext,
		"mime", mime)
	return nil
}
