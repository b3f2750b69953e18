package extract

import (
	"strings"
)

// FailureMarker prefixes the rendered form of a failed extraction.
const FailureMarker = "Error:"

const (
	reasonNoText   = "Could not extract any text from the document."
	reasonDownload = "Could not download resume."
)

// Text is the outcome of extracting a document: either non-empty content or a
// human-readable failure reason. Failures are data, never faults.
type Text struct {
	content string
	reason  string
}

// OK wraps extracted content. Blank content is reported as a failure.
func OK(content string) Text {
	content = strings.TrimSpace(content)
	if content == "" {
		return Failed(reasonNoText)
	}
	return Text{content: content}
}

// Failed records why extraction produced nothing usable.
func Failed(reason string) Text {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = reasonNoText
	}
	return Text{reason: reason}
}

// DownloadFailed is substituted when the document could not be fetched.
func DownloadFailed() Text {
	return Failed(reasonDownload)
}

func (t Text) OK() bool {
	return t.content != ""
}

func (t Text) Content() string {
	return t.content
}

func (t Text) Reason() string {
	if t.OK() {
		return ""
	}
	if t.reason == "" {
		return reasonNoText
	}
	return t.reason
}

// String renders content, or the failure marker followed by the reason.
func (t Text) String() string {
	if t.OK() {
		return t.content
	}
	return FailureMarker + " " + t.Reason()
}

// HasFailureMarker reports whether s is a rendered extraction failure.
func HasFailureMarker(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), FailureMarker)
}
