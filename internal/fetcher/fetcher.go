// Package fetcher downloads remote resumes to local storage.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/utils"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Options configures the fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(o.UserAgent) == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

// Error describes a failed download.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type Fetcher struct {
	opts       Options
	logger     *zap.Logger
	HTTPClient *http.Client
}

func New(opts Options, logger *zap.Logger) *Fetcher {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		opts:   opts,
		logger: logger,
		// Redirects are followed by the default policy.
		HTTPClient: &http.Client{Timeout: opts.Timeout},
	}
}

// Fetch downloads url into dest and reports whether a non-empty file was written.
// It never returns an error; failures are logged and reported as false.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) bool {
	if err := f.Download(ctx, url, dest); err != nil {
		f.logger.Error("failed to download resume", zap.String("url", url), zap.Error(err))
		return false
	}

	f.logger.Debug("downloaded resume", zap.String("url", url), zap.String("path", dest))
	return true
}

// Download streams url into dest. A partial or empty file is removed on failure.
func (f *Fetcher) Download(ctx context.Context, url, dest string) (err error) {
	if strings.TrimSpace(url) == "" {
		return &Error{URL: url, Message: "empty url"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{URL: url, Message: "build request", Cause: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept-Encoding", utils.AcceptEncoding)

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return &Error{URL: url, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{URL: url, Message: fmt.Sprintf("bad status: %s", resp.Status)}
	}

	body, err := utils.DecodeBody(resp)
	if err != nil {
		return &Error{URL: url, Message: "decode body", Cause: err}
	}
	defer body.Close()

	file, err := os.Create(dest)
	if err != nil {
		return &Error{URL: url, Message: "create file", Cause: err}
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = &Error{URL: url, Message: "close file", Cause: cerr}
		}
		if err != nil {
			os.Remove(dest)
		}
	}()

	written, err := io.Copy(file, body)
	if err != nil {
		return &Error{URL: url, Message: "write file", Cause: err}
	}
	if written == 0 {
		return &Error{URL: url, Message: "downloaded file is empty"}
	}

	return nil
}
