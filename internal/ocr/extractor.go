package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
)

// Page is the text extracted from one page of a document, 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor runs the external OCR toolchain (poppler + tesseract).
type Extractor struct {
	cfg    common.OCRConfig
	runner Runner
}

func NewExtractor(cfg common.OCRConfig, runner Runner) *Extractor {
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Extractor{cfg: cfg, runner: runner}
}

// PDFText extracts the embedded text layer of a PDF, one entry per page.
// Pages come back in order even when a page is empty.
func (e *Extractor) PDFText(ctx context.Context, pdfPath string) ([]Page, error) {
	out, stderr, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		return nil, common.WrapError(err, fmt.Sprintf("pdftotext failed: %s", firstLine(stderr)))
	}

	// pdftotext delimits pages with form feed.
	raw := strings.Split(string(out), "\f")
	// A trailing \f leaves one empty tail element.
	if n := len(raw); n > 1 && strings.TrimSpace(raw[n-1]) == "" {
		raw = raw[:n-1]
	}

	pages := make([]Page, 0, len(raw))
	for i, p := range raw {
		pages = append(pages, Page{Number: i + 1, Text: p})
	}
	return pages, nil
}

// PDFOCR rasterizes the PDF and runs tesseract over every page image.
func (e *Extractor) PDFOCR(ctx context.Context, pdfPath string) ([]Page, error) {
	tmpDir, err := os.MkdirTemp("", "pdfocr-*")
	if err != nil {
		return nil, common.WrapError(err, "create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-png", "-r", strconv.Itoa(e.cfg.DPI)}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, pdfPath, prefix)

	if _, stderr, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return nil, common.WrapError(err, fmt.Sprintf("pdftoppm failed: %s", firstLine(stderr)))
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, common.WrapError(err, "glob page images")
	}
	sort.Slice(images, func(i, j int) bool {
		return pageNumber(images[i]) < pageNumber(images[j])
	})

	pages := make([]Page, 0, len(images))
	for _, img := range images {
		text, err := e.ImageOCR(ctx, img)
		if err != nil {
			return nil, err
		}
		pages = append(pages, Page{Number: pageNumber(img), Text: text})
	}
	return pages, nil
}

// ImageOCR runs tesseract on one image and returns the recognized text.
func (e *Extractor) ImageOCR(ctx context.Context, imagePath string) (string, error) {
	out, stderr, err := e.runner.Run(ctx, e.cfg.Tesseract, imagePath, "stdout", "-l", e.cfg.Lang)
	if err != nil {
		return "", common.WrapError(err, fmt.Sprintf("tesseract failed: %s", firstLine(stderr)))
	}
	return string(out), nil
}

// pageNumber parses the N out of a pdftoppm "page-N.png" filename.
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndexByte(base, '-')
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
