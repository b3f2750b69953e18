package utils

import (
	"context"
	"regexp"
	"strings"
	"time"
)

var sleep = time.Sleep

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// MaskSecret keeps only the last four characters of a secret.
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	runes := []rune(secret)
	if len(runes) <= 4 {
		return "..." + strings.Repeat("*", len(runes))
	}
	return "..." + string(runes[len(runes)-4:])
}

var (
	bearerPattern = regexp.MustCompile(`(?i)(bearer\s+)[a-z0-9._\-]+`)
	apiKeyPattern = regexp.MustCompile(`(?i)("?api[_-]?key"?\s*[:=]\s*"?)[^"&\s,]+`)
)

// RedactSecrets hides bearer tokens and api_key values that leak into error bodies.
func RedactSecrets(s string) string {
	s = bearerPattern.ReplaceAllString(s, "${1}[REDACTED]")
	return apiKeyPattern.ReplaceAllString(s, "${1}[REDACTED]")
}
