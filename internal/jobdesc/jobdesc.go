// Package jobdesc loads the job description a screening run is scored against.
package jobdesc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/extract"
)

var (
	ErrNoSource = errors.New("job description is not provided")
	ErrEmpty    = errors.New("job description is empty")
)

// Source names where the description comes from. The first non-empty field
// wins, in the order Text, File, URL.
type Source struct {
	Text string
	File string
	URL  string
}

func (s Source) kind() string {
	switch {
	case strings.TrimSpace(s.Text) != "":
		return "text"
	case strings.TrimSpace(s.File) != "":
		return "file"
	case strings.TrimSpace(s.URL) != "":
		return "url"
	}
	return ""
}

type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

type Extractor interface {
	Extract(ctx context.Context, path string) extract.Text
}

type Loader struct {
	downloader Downloader
	extractor  Extractor
	logger     *zap.Logger
}

func NewLoader(downloader Downloader, extractor Extractor, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{downloader: downloader, extractor: extractor, logger: logger}
}

func (l *Loader) Load(ctx context.Context, src Source) (string, error) {
	var (
		text string
		err  error
	)

	switch src.kind() {
	case "text":
		text = src.Text
	case "file":
		text, err = l.fromFile(ctx, strings.TrimSpace(src.File))
	case "url":
		text, err = l.fromURL(ctx, strings.TrimSpace(src.URL))
	default:
		return "", ErrNoSource
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}

	l.logger.Info("job description loaded", zap.String("source", src.kind()), zap.Int("length", len(text)))
	return text, nil
}

func (l *Loader) fromFile(ctx context.Context, p string) (string, error) {
	if isHTML(filepath.Ext(p)) {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("read job description: %w", err)
		}
		return MainText(string(data))
	}

	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("read job description: %w", err)
	}

	text := l.extractor.Extract(ctx, p)
	if !text.OK() {
		return "", fmt.Errorf("extract job description from %s: %s", p, text.Reason())
	}
	return text.Content(), nil
}

func (l *Loader) fromURL(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid job description url %q", rawURL)
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if !extract.Supported(ext) {
		ext = ".html"
	}

	dir, err := os.MkdirTemp("", "jobdesc-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	dest := filepath.Join(dir, "job_description"+ext)
	if err := l.downloader.Download(ctx, rawURL, dest); err != nil {
		return "", fmt.Errorf("download job description: %w", err)
	}
	return l.fromFile(ctx, dest)
}

func isHTML(ext string) bool {
	switch strings.ToLower(ext) {
	case ".html", ".htm":
		return true
	}
	return false
}
