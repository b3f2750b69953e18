// Package extract turns downloaded resumes into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const DefaultDPI = 200

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".bmp":  {},
	".tiff": {},
	".tif":  {},
}

// Supported reports whether ext (with the leading dot) has an extraction strategy.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf", ".docx", ".txt":
		return true
	}
	_, ok := imageExtensions[ext]
	return ok
}

// Document is a resume materialized on local disk.
type Document struct {
	Path string
	URL  string
}

type Options struct {
	PDFToText string
	PDFToPPM  string
	Tesseract string
	// Language is passed to tesseract as -l when set.
	Language string
	DPI      int
}

func (o Options) withDefaults() Options {
	if o.PDFToText == "" {
		o.PDFToText = "pdftotext"
	}
	if o.PDFToPPM == "" {
		o.PDFToPPM = "pdftoppm"
	}
	if o.Tesseract == "" {
		o.Tesseract = "tesseract"
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	return o
}

type Extractor struct {
	opts    Options
	runner  CommandRunner
	readPDF func(path string) (string, error)
	logger  *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Extractor {
	return NewWithRunner(opts, execRunner{}, logger)
}

// NewWithRunner creates an extractor that shells out through runner.
func NewWithRunner(opts Options, runner CommandRunner, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		opts:    opts.withDefaults(),
		runner:  runner,
		readPDF: readPDFText,
		logger:  logger,
	}
}

// Extract returns the text of the document at path. It never panics and never
// returns an error: every failure is folded into a failed Text.
func (e *Extractor) Extract(ctx context.Context, path string) (text Text) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction panicked", zap.String("path", path), zap.Any("panic", r))
			text = processingFailed(fmt.Errorf("%v", r))
		}
	}()

	ext := strings.ToLower(filepath.Ext(path))

	var content string
	var err error
	switch {
	case ext == ".docx":
		content, err = readDocx(path)
	case ext == ".txt":
		content, err = readPlainText(path)
	case ext == ".pdf":
		content, err = e.extractPDF(ctx, path)
	case isImage(ext):
		content, err = e.extractImage(ctx, path)
	default:
		e.logger.Warn("no extraction strategy for file", zap.String("path", path), zap.String("extension", ext))
		return Failed(reasonNoText)
	}

	if err != nil {
		e.logger.Error("error processing file", zap.String("path", path), zap.Error(err))
		return processingFailed(err)
	}

	return OK(content)
}

// extractPDF tries both text-layer readers before falling back to OCR. Stage
// errors do not stop the chain; the first one is reported only when no stage
// produced text.
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	var firstErr error
	note := func(stage string, err error) {
		if errors.Is(err, exec.ErrNotFound) {
			e.logger.Debug("extraction tool not installed", zap.String("stage", stage), zap.Error(err))
			return
		}
		e.logger.Warn("pdf extraction stage failed", zap.String("stage", stage), zap.String("path", path), zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	stages := []struct {
		name string
		run  func() (string, error)
	}{
		{name: "text-layer", run: func() (string, error) { return e.readPDF(path) }},
		{name: "pdftotext", run: func() (string, error) { return e.pdfToText(ctx, path) }},
		{name: "ocr", run: func() (string, error) { return e.ocrPDF(ctx, path) }},
	}

	for _, stage := range stages {
		if stage.name == "ocr" {
			e.logger.Warn("no text layer found, attempting OCR", zap.String("path", path))
		}

		content, err := stage.run()
		if err != nil {
			note(stage.name, err)
			continue
		}
		if strings.TrimSpace(content) != "" {
			e.logger.Debug("pdf text extracted", zap.String("stage", stage.name), zap.String("path", path))
			return content, nil
		}
	}

	return "", firstErr
}

func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	content, err := e.ocrImage(ctx, path)
	if errors.Is(err, exec.ErrNotFound) {
		e.logger.Warn("ocr tool not installed", zap.String("tool", e.opts.Tesseract))
		return "", nil
	}
	return content, err
}

func readPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
}

func isImage(ext string) bool {
	_, ok := imageExtensions[ext]
	return ok
}

func processingFailed(err error) Text {
	return Failed(fmt.Sprintf("Failed to process file. Reason: %v", err))
}
