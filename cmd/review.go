package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/kellatirupathi/darwinbox/internal/darwinbox"
	"github.com/kellatirupathi/darwinbox/internal/screening"
)

const (
	PromptSubmit = "Submit decisions"
	PromptExit   = "Exit without submitting"
	PromptBack   = "back"

	remarksWidth = 60
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failedStyle = cellStyle.Foreground(lipgloss.Color("203"))
	strongStyle = cellStyle.Foreground(lipgloss.Color("42"))
)

// renderResults prints the ranked records as a table.
func renderResults(w io.Writer, records []screening.Record) {
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Name,
			r.ID,
			strconv.Itoa(r.OverallScore),
			truncate(r.Remarks, remarksWidth),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("#", "Candidate Name", "Candidate ID", "Score (%)", "AI Remarks").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row < 0 || row >= len(records):
				return cellStyle
			case records[row].Failed():
				return failedStyle
			case records[row].OverallScore >= 75:
				return strongStyle
			default:
				return cellStyle
			}
		})

	fmt.Fprintln(w, t.Render())
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// thresholdDecisions turns scores into verdicts. Failed and skipped records
// are never decided automatically. Nil thresholds are ignored.
func thresholdDecisions(records []screening.Record, shortlistAbove, rejectBelow *int) []darwinbox.Decision {
	var decisions []darwinbox.Decision
	for _, r := range records {
		if r.Failed() || r.Remarks == screening.SkippedNoResume {
			continue
		}

		verdict := darwinbox.Pending
		switch {
		case shortlistAbove != nil && r.OverallScore >= *shortlistAbove:
			verdict = darwinbox.Selected
		case rejectBelow != nil && r.OverallScore < *rejectBelow:
			verdict = darwinbox.Rejected
		}
		if verdict == darwinbox.Pending {
			continue
		}

		decisions = append(decisions, darwinbox.Decision{
			CandidateID:   r.ID,
			CandidateName: r.Name,
			Verdict:       verdict,
			Remarks:       r.Remarks,
		})
	}
	return decisions
}

// reviewLoop lets the operator mark candidates until they submit or exit.
// It returns nil decisions on exit.
func reviewLoop(records []screening.Record, initial []darwinbox.Decision) ([]darwinbox.Decision, error) {
	verdicts := make(map[string]darwinbox.Verdict, len(records))
	for _, d := range initial {
		verdicts[d.CandidateID] = d.Verdict
	}

	for {
		items := make([]string, 0, len(records)+2)
		for _, r := range records {
			v, ok := verdicts[r.ID]
			if !ok {
				v = darwinbox.Pending
			}
			items = append(items, fmt.Sprintf("%s | %s | %d%% | %s", r.ID, r.Name, r.OverallScore, v))
		}
		items = append(items, PromptSubmit, PromptExit)

		candidatePrompt := promptui.Select{
			Label: "Choose a candidate and press ENTER",
			Items: items,
			Size:  15,
		}

		idx, selected, err := candidatePrompt.Run()
		if err != nil {
			return nil, err
		}

		switch selected {
		case PromptExit:
			return nil, nil
		case PromptSubmit:
			return collectDecisions(records, verdicts), nil
		}

		verdictPrompt := promptui.Select{
			Label: fmt.Sprintf("Decision for %s", records[idx].Name),
			Items: []string{string(darwinbox.Selected), string(darwinbox.Rejected), string(darwinbox.Pending), PromptBack},
		}
		_, choice, err := verdictPrompt.Run()
		if err != nil {
			return nil, err
		}
		if choice == PromptBack {
			continue
		}
		verdicts[records[idx].ID] = darwinbox.Verdict(choice)
	}
}

func collectDecisions(records []screening.Record, verdicts map[string]darwinbox.Verdict) []darwinbox.Decision {
	var decisions []darwinbox.Decision
	for _, r := range records {
		v := verdicts[r.ID]
		if v != darwinbox.Selected && v != darwinbox.Rejected {
			continue
		}
		decisions = append(decisions, darwinbox.Decision{
			CandidateID:   r.ID,
			CandidateName: r.Name,
			Verdict:       v,
			Remarks:       r.Remarks,
		})
	}
	return decisions
}

func confirm(label string) (bool, error) {
	p := promptui.Select{Label: label, Items: []string{PromptYes, PromptNo}}
	_, answer, err := p.Run()
	if err != nil {
		return false, err
	}
	return answer == PromptYes, nil
}
