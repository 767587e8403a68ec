package processor

import (
	"context"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/ocr"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
)

// extractImage OCRs a single image artifact into one text segment.
func (p *Processor) extractImage(ctx context.Context, a *entity.Artifact) error {
	path, err := p.resolver.Resolve(a)
	if err != nil {
		return err
	}

	text, err := p.extractor.ImageOCR(ctx, path)
	if err != nil {
		return err
	}
	text = ocr.NormalizeText(text)

	p.log.Info("image.ocr.ok", "artifact_id", a.ID, "chars", len(text))

	segs := []repository.SegmentInput{{Text: text, SourceRef: "image:1"}}
	if err := p.segments.ReplaceAll(ctx, a.ID, segs); err != nil {
		return err
	}
	return p.artifacts.MarkProcessed(ctx, a.ID)
}
