package jobdesc

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var contentSelectors = []string{
	".job-description",
	"#job-description",
	".job-details",
	".posting-content",
	"[data-testid='job-description']",
	"main",
	"article",
	".content",
	"#content",
}

const noiseSelector = "nav, footer, header, script, style, noscript, form, .cookie-banner, .popup, .sidebar"

// MainText returns the readable text of a job posting page. It prefers the
// first known posting container and falls back to the body.
func MainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	var main *goquery.Selection
	for _, selector := range contentSelectors {
		if s := doc.Find(selector); s.Length() > 0 {
			main = s.First()
			break
		}
	}
	if main == nil {
		main = doc.Find("body")
	}

	// Block elements lose their line breaks in Text(); add them back.
	main.Find("p, li, br, h1, h2, h3, h4, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return cleanLines(main.Text()), nil
}

func cleanLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
