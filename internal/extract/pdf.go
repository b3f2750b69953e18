package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPDFText reads the text layer page by page in document order.
func readPDFText(path string) (text string, err error) {
	defer func() {
		// The parser panics on some malformed streams.
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser: %v", r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String(), nil
}

// pdfToText is the secondary text-layer reader backed by poppler.
func (e *Extractor) pdfToText(ctx context.Context, path string) (string, error) {
	out, err := e.runner.Run(ctx, e.opts.PDFToText, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
