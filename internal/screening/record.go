package screening

import (
	"sort"
	"strconv"
	"strings"
)

const (
	SkippedNoResume = "Skipped: No resume URL found."
	NotAvailable    = "N/A"
)

// Record is the flattened outcome for one candidate.
type Record struct {
	Name         string   `json:"candidate_name"`
	ID           string   `json:"candidate_id"`
	OverallScore int      `json:"score"`
	ResumeLink   string   `json:"resume_link"`
	Remarks      string   `json:"remarks"`
	Strengths    []string `json:"key_strengths,omitempty"`
	Weaknesses   []string `json:"key_weaknesses,omitempty"`
}

// Columns are the tabular headers used by sinks and tables.
var Columns = []string{"Candidate Name", "Candidate ID", "Score (%)", "Resume Link", "AI Remarks"}

// Row renders the record in Columns order.
func (r Record) Row() []string {
	return []string{r.Name, r.ID, strconv.Itoa(r.OverallScore), r.ResumeLink, r.Remarks}
}

// Failed reports whether the remarks describe a failure.
func (r Record) Failed() bool {
	return IsFailure(r.Remarks)
}

// IsFailure classifies remarks that contain "failed" (any case) or start with "Error".
// The classification is for reporting only.
func IsFailure(remarks string) bool {
	return strings.Contains(strings.ToLower(remarks), "failed") || strings.HasPrefix(remarks, "Error")
}

// Finalize returns a copy of records sorted by score, highest first. Equal
// scores keep their arrival order.
func Finalize(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OverallScore > sorted[j].OverallScore
	})
	return sorted
}

// Summary counts outcomes of a run. Skipped records count as succeeded.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if r.Remarks == SkippedNoResume {
			s.Skipped++
		}
		if r.Failed() {
			s.Failed++
		}
	}
	s.Succeeded = s.Total - s.Failed
	return s
}
