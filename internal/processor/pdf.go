package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/ocr"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
)

// Quality gate for PDF extraction results. Below these thresholds the
// embedded text layer is considered unusable (scanned or corrupt PDF) and
// OCR is attempted instead.
const (
	minTotalChars    = 200
	minNonEmptyPages = 1
)

// extractPDF runs the embedded-then-OCR extraction pipeline with a quality
// gate between the stages.
func (p *Processor) extractPDF(ctx context.Context, a *entity.Artifact) error {
	path, err := p.resolver.Resolve(a)
	if err != nil {
		return err
	}

	embedded, embErr := p.extractor.PDFText(ctx, path)
	if embErr != nil {
		p.log.Warn("pdf.embedded.failed", "artifact_id", a.ID, "error", embErr)
	}
	if looksGood(embedded) {
		p.log.Info("pdf.embedded.ok",
			"artifact_id", a.ID,
			"pages", nonEmptyPages(embedded),
			"chars", totalChars(embedded))
		return p.writePDFSegments(ctx, a, embedded, "pdf:embedded")
	}

	ocrPages, err := p.extractor.PDFOCR(ctx, path)
	if err != nil {
		msg := fmt.Sprintf("ocr fallback failed after weak embedded text (embedded pages=%d, chars=%d)",
			nonEmptyPages(embedded), totalChars(embedded))
		if embErr != nil {
			msg = fmt.Sprintf("%s; embedded extraction error: %v", msg, embErr)
		}
		return common.WrapError(err, msg)
	}
	if looksGood(ocrPages) {
		p.log.Info("pdf.ocr.ok",
			"artifact_id", a.ID,
			"pages", nonEmptyPages(ocrPages),
			"chars", totalChars(ocrPages))
		return p.writePDFSegments(ctx, a, ocrPages, "pdf:ocr")
	}

	// Both attempts empty-ish. Report counts from each so operators can
	// tell an encrypted PDF from a scan with unreadable OCR.
	var b strings.Builder
	b.WriteString("pdf text extraction produced too little text.")
	if embErr != nil {
		fmt.Fprintf(&b, " embedded extraction error: %v.", embErr)
	}
	fmt.Fprintf(&b, " embedded pages=%d, chars=%d.", nonEmptyPages(embedded), totalChars(embedded))
	fmt.Fprintf(&b, " ocr pages=%d, chars=%d.", nonEmptyPages(ocrPages), totalChars(ocrPages))
	return common.NewAppError("PDF_EMPTY", b.String(), common.ErrInvalidInput)
}

// writePDFSegments replaces the artifact's segments with the non-empty
// pages. Writing zero segments is an error rather than a silent success; the
// old segment set is only destroyed once there is something to replace it
// with.
func (p *Processor) writePDFSegments(ctx context.Context, a *entity.Artifact, pages []ocr.Page, sourcePrefix string) error {
	if len(pages) == 0 {
		return common.NewAppError("PDF_EMPTY", "refusing to write 0 segments", common.ErrInvalidInput)
	}

	segs := make([]repository.SegmentInput, 0, len(pages))
	for _, page := range pages {
		text := ocr.NormalizeText(page.Text)
		if text == "" {
			continue
		}
		segs = append(segs, repository.SegmentInput{
			Text:      text,
			SourceRef: fmt.Sprintf("%s:page:%d", sourcePrefix, page.Number),
		})
	}
	if len(segs) == 0 {
		return common.NewAppError("PDF_EMPTY", "all extracted segments were empty after stripping", common.ErrInvalidInput)
	}

	if err := p.segments.ReplaceAll(ctx, a.ID, segs); err != nil {
		return err
	}
	return p.artifacts.MarkProcessed(ctx, a.ID)
}

func looksGood(pages []ocr.Page) bool {
	return nonEmptyPages(pages) >= minNonEmptyPages && totalChars(pages) >= minTotalChars
}

func nonEmptyPages(pages []ocr.Page) int {
	n := 0
	for _, page := range pages {
		if strings.TrimSpace(page.Text) != "" {
			n++
		}
	}
	return n
}

func totalChars(pages []ocr.Page) int {
	n := 0
	for _, page := range pages {
		n += len(strings.TrimSpace(page.Text))
	}
	return n
}
