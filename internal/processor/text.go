package processor

import (
	"context"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/ocr"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
)

// extractTextNote writes a text-kind artifact's inline note as a single
// whitespace-normalized segment. Empty notes are a no-op.
func (p *Processor) extractTextNote(ctx context.Context, a *entity.Artifact) error {
	text := ""
	if a.TextContent != nil {
		text = ocr.CollapseWhitespace(*a.TextContent)
	}
	if text == "" {
		p.log.Info("text.note.empty", "artifact_id", a.ID)
		return nil
	}

	segs := []repository.SegmentInput{{Text: text, SourceRef: "text:note"}}
	if err := p.segments.ReplaceAll(ctx, a.ID, segs); err != nil {
		return err
	}
	return p.artifacts.MarkProcessed(ctx, a.ID)
}
