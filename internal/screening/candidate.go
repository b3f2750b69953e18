package screening

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/ai"
	"github.com/kellatirupathi/darwinbox/internal/candidates"
	"github.com/kellatirupathi/darwinbox/internal/extract"
	"github.com/kellatirupathi/darwinbox/internal/logger"
)

const defaultExtension = ".pdf"

// LocalFileName derives the on-disk name of a candidate's resume. Only letters,
// digits, spaces and underscores survive from the name; the extension comes
// from the URL when it is one we can read.
func LocalFileName(c candidates.Candidate) string {
	safe := strings.TrimRightFunc(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' {
			return r
		}
		return -1
	}, c.Name), unicode.IsSpace)
	if safe == "" {
		safe = "candidate"
	}

	id := strings.TrimSpace(c.ID)
	if id == "" {
		id = "no_id"
	}
	id = strings.ReplaceAll(id, string(filepath.Separator), "_")

	return safe + "_" + id + resumeExtension(c.ResumeURL)
}

// resumePath places a resume at a path owned by one batch slot, so that
// candidates sharing a name and id never touch the same file.
func resumePath(dir string, batch, pos int, c candidates.Candidate) string {
	return filepath.Join(dir, fmt.Sprintf("b%03d_%02d_%s", batch, pos, LocalFileName(c)))
}

func resumeExtension(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(path.Ext(p))
	if extract.Supported(ext) {
		return ext
	}
	return defaultExtension
}

func (p *Pipeline) processCandidate(ctx context.Context, path, credential, jobDescription string, c candidates.Candidate) Record {
	rec := Record{
		Name:       c.DisplayName(),
		ID:         c.ID,
		ResumeLink: NotAvailable,
	}
	log := p.logger.With(logger.Candidate(c.ID, rec.Name)...)

	if !c.HasResume() {
		log.Info("candidate skipped: no resume url")
		rec.Remarks = SkippedNoResume
		return rec
	}
	rec.ResumeLink = c.ResumeURL

	doc := extract.Document{Path: path, URL: c.ResumeURL}
	text := p.readResume(ctx, doc)
	if !p.opts.KeepResumes {
		if err := os.Remove(doc.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Debug("could not remove resume", zap.String("path", doc.Path), zap.Error(err))
		}
	}

	var result ai.ScoreResult
	if !text.OK() {
		log.Warn("resume text unavailable", zap.String("reason", text.Reason()))
		result = ai.Failure(text.String())
	} else {
		result = p.scorer.Score(ctx, text.Content(), jobDescription, credential)
	}

	rec.OverallScore = result.OverallScore
	rec.Remarks = result.Summary
	rec.Strengths = result.Strengths
	rec.Weaknesses = result.Weaknesses
	if strings.TrimSpace(rec.Remarks) == "" {
		rec.Remarks = "No summary generated."
	}

	log.Info("candidate scored", zap.Int("score", rec.OverallScore))
	return rec
}

func (p *Pipeline) readResume(ctx context.Context, doc extract.Document) extract.Text {
	if !p.fetcher.Fetch(ctx, doc.URL, doc.Path) {
		return extract.DownloadFailed()
	}
	return p.extractor.Extract(ctx, doc.Path)
}
