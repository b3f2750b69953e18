package ai

import (
	_ "embed"
	"strings"
)

//go:embed prompt.md
var promptTemplate string

// BuildPrompt renders the evaluation prompt for one resume.
func BuildPrompt(jobDescription, resumeText string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job description:\n{{JOB_DESCRIPTION}}\n\nResume:\n{{RESUME_TEXT}}\n\nJSON Response:"
	}
	// One pass: placeholders inside the inserted texts are left as they are.
	return strings.NewReplacer(
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(jobDescription),
		"{{RESUME_TEXT}}", strings.TrimSpace(resumeText),
	).Replace(template)
}
