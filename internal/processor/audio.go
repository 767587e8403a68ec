package processor

import (
	"context"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
)

// transcribeArtifact transcribes an audio or video artifact, stores the
// transcript as the artifact's full segment set and mirrors it into
// text_content for quick rendering and search.
func (p *Processor) transcribeArtifact(ctx context.Context, a *entity.Artifact) error {
	path, err := p.resolver.Resolve(a)
	if err != nil {
		return err
	}

	transcript, err := p.transcriber.Transcribe(ctx, path)
	if err != nil {
		return err
	}
	if transcript == "" {
		transcript = "(no transcript produced)"
	}

	p.log.Info("audio.transcribe.ok", "artifact_id", a.ID, "chars", len(transcript))

	segs := []repository.SegmentInput{{Text: transcript, SourceRef: "transcript"}}
	if err := p.segments.ReplaceAll(ctx, a.ID, segs); err != nil {
		return err
	}
	if err := p.artifacts.SetTextContent(ctx, a.ID, transcript); err != nil {
		return err
	}
	return p.artifacts.MarkProcessed(ctx, a.ID)
}
