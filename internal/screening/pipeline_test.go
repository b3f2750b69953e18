package screening

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kellatirupathi/darwinbox/internal/ai"
	"github.com/kellatirupathi/darwinbox/internal/candidates"
	"github.com/kellatirupathi/darwinbox/internal/extract"
)

// fakeFetcher writes the URL itself as the file body. A hold keeps Fetch
// waiting after the write, before the extractor reads the file back.
type fakeFetcher struct {
	fail  map[string]bool
	panic map[string]bool
	hold  map[string]time.Duration
}

func (f *fakeFetcher) Fetch(_ context.Context, url, dest string) bool {
	if f.panic[url] {
		panic("fetch exploded")
	}
	if f.fail[url] {
		return false
	}
	if err := os.WriteFile(dest, []byte(url), 0o600); err != nil {
		return false
	}
	if d := f.hold[url]; d > 0 {
		time.Sleep(d)
	}
	return true
}

type fakeExtractor struct {
	failed map[string]string
}

func (f *fakeExtractor) Extract(_ context.Context, path string) extract.Text {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Failed(err.Error())
	}
	if reason, ok := f.failed[string(data)]; ok {
		return extract.Failed(reason)
	}
	return extract.OK(string(data))
}

type fakeScorer struct {
	mu          sync.Mutex
	credentials map[string]string
	result      ai.ScoreResult
	delay       time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (s *fakeScorer) Score(_ context.Context, resumeText, _ string, credential string) ai.ScoreResult {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		prev := s.maxInflight.Load()
		if n <= prev || s.maxInflight.CompareAndSwap(prev, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	if s.credentials == nil {
		s.credentials = make(map[string]string)
	}
	s.credentials[resumeText] = credential
	s.mu.Unlock()

	if s.result.Summary == "" {
		return ai.ScoreResult{OverallScore: 50, Summary: "scored " + resumeText}
	}
	return s.result
}

func (s *fakeScorer) calls() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.credentials))
	for k, v := range s.credentials {
		out[k] = v
	}
	return out
}

func newTestPipeline(t *testing.T, f *fakeFetcher, e *fakeExtractor, s *fakeScorer) *Pipeline {
	t.Helper()
	return New(f, e, s, Options{BatchSize: 3, ResumeDir: t.TempDir()}, zap.NewNop())
}

func byID(records []Record) map[string]Record {
	out := make(map[string]Record, len(records))
	for _, r := range records {
		out[r.ID] = r
	}
	return out
}

func TestRunSkipsCandidatesWithoutResume(t *testing.T) {
	scorer := &fakeScorer{result: ai.ScoreResult{OverallScore: 87, Summary: "Strong match"}}
	p := newTestPipeline(t, &fakeFetcher{}, &fakeExtractor{}, scorer)

	var progress [][2]int
	p.Progress = func(processed, total int) { progress = append(progress, [2]int{processed, total}) }

	res, err := p.Run(context.Background(), []candidates.Candidate{
		{ID: "1", Name: "Ann", ResumeURL: "http://x/a.pdf"},
		{ID: "2", Name: "Bob"},
	}, "Go developer", []string{"k1"})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Empty(t, res.BatchErrors)
	assert.Equal(t, [][2]int{{2, 2}}, progress, "one batch, one progress report")

	records := byID(res.Records)
	assert.Equal(t, Record{Name: "Bob", ID: "2", ResumeLink: NotAvailable, Remarks: SkippedNoResume}, records["2"])

	assert.Equal(t, 87, records["1"].OverallScore)
	assert.Equal(t, "Strong match", records["1"].Remarks)
	assert.Equal(t, "http://x/a.pdf", records["1"].ResumeLink)
	assert.Equal(t, map[string]string{"http://x/a.pdf": "k1"}, scorer.calls())
}

func TestRunNoCredentials(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{}, &fakeExtractor{}, &fakeScorer{})

	_, err := p.Run(context.Background(), makeCandidates(2), "jd", nil)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestRunEmptyCandidates(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{}, &fakeExtractor{}, &fakeScorer{})

	res, err := p.Run(context.Background(), nil, "jd", []string{"k1"})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestRunShortCircuitsFailedText(t *testing.T) {
	list := makeCandidates(3)
	fetcher := &fakeFetcher{fail: map[string]bool{list[0].ResumeURL: true}}
	extractor := &fakeExtractor{failed: map[string]string{list[1].ResumeURL: "No text could be extracted."}}
	scorer := &fakeScorer{}
	p := newTestPipeline(t, fetcher, extractor, scorer)

	res, err := p.Run(context.Background(), list, "jd", []string{"k1"})
	require.NoError(t, err)

	records := byID(res.Records)
	assert.Equal(t, "Error: Could not download resume.", records["1"].Remarks)
	assert.Equal(t, 0, records["1"].OverallScore)
	assert.Equal(t, "Error: No text could be extracted.", records["2"].Remarks)
	assert.Equal(t, 0, records["2"].OverallScore)
	assert.Equal(t, "scored "+list[2].ResumeURL, records["3"].Remarks)

	assert.Equal(t, map[string]string{list[2].ResumeURL: "k1"}, scorer.calls(), "failed text never reaches the scorer")
}

func TestRunRotatesCredentialsPerBatch(t *testing.T) {
	list := makeCandidates(10)
	credentials := []string{"k1", "k2", "k3"}
	scorer := &fakeScorer{delay: 5 * time.Millisecond}
	p := newTestPipeline(t, &fakeFetcher{}, &fakeExtractor{}, scorer)

	res, err := p.Run(context.Background(), list, "jd", credentials)
	require.NoError(t, err)
	require.Len(t, res.Records, len(list))

	calls := scorer.calls()
	for i, c := range list {
		batch := i / 3
		assert.Equal(t, credentials[batch%len(credentials)], calls[c.ResumeURL], "candidate %s", c.ID)
	}
}

func TestRunConcurrencyMatchesCredentials(t *testing.T) {
	scorer := &fakeScorer{delay: 10 * time.Millisecond}
	p := New(&fakeFetcher{}, &fakeExtractor{}, scorer, Options{BatchSize: 1, ResumeDir: t.TempDir()}, zap.NewNop())

	res, err := p.Run(context.Background(), makeCandidates(8), "jd", []string{"k1", "k2"})
	require.NoError(t, err)
	assert.Len(t, res.Records, 8)
	assert.LessOrEqual(t, scorer.maxInflight.Load(), int32(2))
}

func TestRunReportsProgress(t *testing.T) {
	p := newTestPipeline(t, &fakeFetcher{}, &fakeExtractor{}, &fakeScorer{})

	var mu sync.Mutex
	var seen []int
	p.Progress = func(processed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 7, total)
		seen = append(seen, processed)
	}

	_, err := p.Run(context.Background(), makeCandidates(7), "jd", []string{"k1", "k2"})
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.IsIncreasing(t, seen)
	assert.Equal(t, 7, seen[len(seen)-1])
}

func TestRunRecoversBatchPanic(t *testing.T) {
	list := makeCandidates(4)
	fetcher := &fakeFetcher{panic: map[string]bool{list[1].ResumeURL: true}}
	core, logs := observer.New(zap.ErrorLevel)
	p := New(fetcher, &fakeExtractor{}, &fakeScorer{}, Options{BatchSize: 3, ResumeDir: t.TempDir()}, zap.New(core))

	res, err := p.Run(context.Background(), list, "jd", []string{"k1"})
	require.NoError(t, err)
	require.Len(t, res.Records, 4)
	require.Len(t, res.BatchErrors, 1)
	assert.Equal(t, 0, res.BatchErrors[0].Batch)

	records := byID(res.Records)
	assert.Equal(t, "scored "+list[0].ResumeURL, records["1"].Remarks)
	for _, id := range []string{"2", "3"} {
		assert.True(t, strings.HasPrefix(records[id].Remarks, "Error: batch aborted: fetch exploded"), records[id].Remarks)
		assert.True(t, records[id].Failed())
	}
	assert.Equal(t, "scored "+list[3].ResumeURL, records["4"].Remarks, "other batches are unaffected")
	assert.Equal(t, 1, logs.FilterMessage("batch panicked").Len())
}

func TestRunStopsStartingBatchesWhenCancelled(t *testing.T) {
	list := makeCandidates(9)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newTestPipeline(t, &fakeFetcher{}, &fakeExtractor{}, &fakeScorer{})
	p.Progress = func(processed, _ int) {
		if processed >= 3 {
			cancel()
		}
	}

	res, err := p.Run(ctx, list, "jd", []string{"k1"})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Records, len(list))

	records := byID(res.Records)
	for _, id := range []string{"1", "2", "3"} {
		assert.True(t, strings.HasPrefix(records[id].Remarks, "scored "), records[id].Remarks)
	}
	for _, id := range []string{"7", "8", "9"} {
		assert.Equal(t, "Error: batch not started: context canceled", records[id].Remarks)
	}
	assert.NotEmpty(t, res.BatchErrors)
}

func TestRunRemovesDownloadedResumes(t *testing.T) {
	dir := t.TempDir()
	p := New(&fakeFetcher{}, &fakeExtractor{}, &fakeScorer{}, Options{ResumeDir: dir}, zap.NewNop())

	_, err := p.Run(context.Background(), makeCandidates(2), "jd", []string{"k1"})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunKeepsResumesWhenAsked(t *testing.T) {
	dir := t.TempDir()
	p := New(&fakeFetcher{}, &fakeExtractor{}, &fakeScorer{}, Options{ResumeDir: dir, KeepResumes: true}, zap.NewNop())

	_, err := p.Run(context.Background(), makeCandidates(2), "jd", []string{"k1"})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLocalFileName(t *testing.T) {
	tests := []struct {
		name string
		in   candidates.Candidate
		want string
	}{
		{"sanitised", candidates.Candidate{ID: "42", Name: "Jane O'Neil-Smith ", ResumeURL: "http://x/cv.DOCX?sig=1"}, "Jane ONeilSmith_42.docx"},
		{"unknown extension", candidates.Candidate{ID: "7", Name: "Raj_K", ResumeURL: "http://x/download"}, "Raj_K_7.pdf"},
		{"missing id and name", candidates.Candidate{ResumeURL: "http://x/a.png"}, "candidate_no_id.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalFileName(tt.in))
		})
	}
}

func TestRunKeepsSameNamedResumesApart(t *testing.T) {
	list := candidates.Candidates{
		{Name: "Jane Doe", ResumeURL: "http://x/a.pdf"},
		{Name: "Jane Doe", ResumeURL: "http://x/b.pdf"},
	}
	fetcher := &fakeFetcher{hold: map[string]time.Duration{"http://x/a.pdf": 50 * time.Millisecond}}
	p := New(fetcher, &fakeExtractor{}, &fakeScorer{}, Options{BatchSize: 1, ResumeDir: t.TempDir()}, zap.NewNop())

	res, err := p.Run(context.Background(), list, "jd", []string{"k1", "k2"})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	for _, r := range res.Records {
		assert.Equal(t, "scored "+r.ResumeLink, r.Remarks)
	}
}

func TestResumePathIsUniquePerSlot(t *testing.T) {
	c := candidates.Candidate{Name: "Jane Doe", ResumeURL: "http://x/cv.pdf"}

	assert.Equal(t, "/tmp/r/b002_01_Jane Doe_no_id.pdf", resumePath("/tmp/r", 2, 1, c))
	assert.NotEqual(t, resumePath("/tmp/r", 0, 0, c), resumePath("/tmp/r", 1, 0, c))
	assert.NotEqual(t, resumePath("/tmp/r", 0, 0, c), resumePath("/tmp/r", 0, 1, c))
}
