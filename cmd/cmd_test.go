package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kellatirupathi/darwinbox/internal/darwinbox"
	"github.com/kellatirupathi/darwinbox/internal/screening"
)

func intPtr(v int) *int { return &v }

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	config, err := decodeConfig(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, 3, config.BatchSize)
	assert.Equal(t, "mistral", config.AI.Provider)
	assert.Equal(t, "MISTRAL_API_KEY_", config.AI.APIKeyEnvPrefix)
	assert.Equal(t, "run_archive", config.Archive.Dir)
	assert.Equal(t, "AI Analysis Results", config.Archive.Sheets.Worksheet)
	assert.False(t, config.Darwinbox.Configured())
}

func TestDecodeConfigOverrides(t *testing.T) {
	v := newTestViper()
	v.Set("ai.provider", " Gemini ")
	v.Set("ai.timeout", "90s")
	v.Set("darwinbox.subdomain", "acme")
	v.Set("darwinbox.window", "720h")

	config, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "gemini", config.AI.Provider)
	assert.Equal(t, 90*time.Second, config.AI.Timeout)
	assert.Equal(t, 720*time.Hour, config.Darwinbox.Window)
	assert.True(t, config.Darwinbox.Configured())
}

func TestDecodeConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"unknown provider", "ai.provider", "openai"},
		{"zero batch size", "batch-size", 0},
		{"too many attempts", "ai.max-attempts", 50},
		{"sftp host without user", "archive.sftp.host", "files.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestViper()
			v.Set(tt.key, tt.val)

			_, err := decodeConfig(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func sampleRecords() []screening.Record {
	return []screening.Record{
		{Name: "Ann Lee", ID: "DB-101", OverallScore: 91, Remarks: "Strong Go background"},
		{Name: "Bob Stone", ID: "DB-102", OverallScore: 64, Remarks: "Solid, lacks Kubernetes"},
		{Name: "Dan Wu", ID: "DB-204", OverallScore: 35, Remarks: "Junior profile"},
		{Name: "Cara Annis", ID: "X-7", OverallScore: 0, Remarks: "Error: Could not download resume."},
		{Name: "Eve Park", ID: "X-8", OverallScore: 0, ResumeLink: screening.NotAvailable, Remarks: screening.SkippedNoResume},
	}
}

func TestThresholdDecisions(t *testing.T) {
	decisions := thresholdDecisions(sampleRecords(), intPtr(80), intPtr(40))

	require.Len(t, decisions, 2)
	assert.Equal(t, "DB-101", decisions[0].CandidateID)
	assert.Equal(t, darwinbox.Selected, decisions[0].Verdict)
	assert.Equal(t, "DB-204", decisions[1].CandidateID)
	assert.Equal(t, darwinbox.Rejected, decisions[1].Verdict)
	assert.Equal(t, "Junior profile", decisions[1].Remarks)
}

func TestThresholdDecisionsNeverDecidesFailedOrSkipped(t *testing.T) {
	decisions := thresholdDecisions(sampleRecords(), nil, intPtr(100))

	ids := make([]string, 0, len(decisions))
	for _, d := range decisions {
		ids = append(ids, d.CandidateID)
		assert.Equal(t, darwinbox.Rejected, d.Verdict)
	}
	assert.Equal(t, []string{"DB-101", "DB-102", "DB-204"}, ids)
}

func TestThresholdDecisionsWithoutThresholds(t *testing.T) {
	assert.Empty(t, thresholdDecisions(sampleRecords(), nil, nil))
}

func TestCollectDecisions(t *testing.T) {
	verdicts := map[string]darwinbox.Verdict{
		"DB-101": darwinbox.Selected,
		"DB-102": darwinbox.Pending,
		"X-7":    darwinbox.Rejected,
	}

	decisions := collectDecisions(sampleRecords(), verdicts)

	require.Len(t, decisions, 2)
	assert.Equal(t, "Ann Lee", decisions[0].CandidateName)
	assert.Equal(t, darwinbox.Selected, decisions[0].Verdict)
	assert.Equal(t, "X-7", decisions[1].CandidateID)
	assert.Equal(t, darwinbox.Rejected, decisions[1].Verdict)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a  b\n c", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "привет...", truncate("приветствую всех", 9))
}

func TestRenderResults(t *testing.T) {
	var buf bytes.Buffer
	renderResults(&buf, sampleRecords())

	out := buf.String()
	for _, want := range []string{"Candidate Name", "Score (%)", "Ann Lee", "DB-204", "91", "Skipped: No resume URL found."} {
		assert.Contains(t, out, want)
	}
}

func TestRenderJobs(t *testing.T) {
	var buf bytes.Buffer
	renderJobs(&buf, []*darwinbox.Job{
		{ID: "a1b2", Code: "ENG-42", Title: "Backend Engineer", Department: "Platform"},
	})

	out := buf.String()
	assert.Contains(t, out, "Job Code")
	assert.Contains(t, out, "ENG-42")
	assert.Contains(t, out, "Backend Engineer")
}
