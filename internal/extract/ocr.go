package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ocrImage runs tesseract on a single image and returns stdout.
func (e *Extractor) ocrImage(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout"}
	if e.opts.Language != "" {
		args = append(args, "-l", e.opts.Language)
	}

	out, err := e.runner.Run(ctx, e.opts.Tesseract, args...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ocrPDF rasterizes every page at the configured DPI and recognizes them in page order.
func (e *Extractor) ocrPDF(ctx context.Context, path string) (string, error) {
	dir, err := os.MkdirTemp("", "resume-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	if _, err := e.runner.Run(ctx, e.opts.PDFToPPM, "-r", strconv.Itoa(e.opts.DPI), "-png", path, prefix); err != nil {
		return "", err
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("%s produced no page images", e.opts.PDFToPPM)
	}
	sort.Slice(pages, func(i, j int) bool {
		return pageNumber(pages[i]) < pageNumber(pages[j])
	})

	var b strings.Builder
	for _, page := range pages {
		text, err := e.ocrImage(ctx, page)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String(), nil
}

// pageNumber parses the numeric suffix pdftoppm appends ("page-07.png" -> 7).
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndex(base, "-")
	if idx == -1 {
		return 0
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
