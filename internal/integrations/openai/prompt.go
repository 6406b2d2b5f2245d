package openai

import (
	"fmt"
	"strings"

	"onboarding-agent/internal/domain"
)

const paraphrasePrompt = `Role:
You rewrite one validated onboarding answer into its canonical display form.

Behavior Rules:
1) Rewrite only the value in this request; never answer the question yourself.
2) Dates become "2 January 2006" style.
3) Option values become their human labels (e.g. "male" -> "Male").
4) Numbers keep their unit when the question names one (e.g. "180" -> "180 cm").
5) Free text is tidied (casing, whitespace) but its meaning never changes.
6) If no better form exists, return the value unchanged.

Output Contract:
Return JSON only with the single key paraphrase (string).`

// buildParaphraseMessages frames the step context and the value for the
// model. The value is the validator's normalized output, never raw client
// input.
func buildParaphraseMessages(prompt string, step domain.Step, value string) []chatMessage {
	context := fmt.Sprintf(
		"Step: %s\nQuestion: %s\nAnswer kind: %s",
		step.Title, step.Question, step.Template.Kind,
	)
	if len(step.Template.Options) > 0 {
		labels := make([]string, 0, len(step.Template.Options))
		for _, opt := range step.Template.Options {
			labels = append(labels, fmt.Sprintf("%s=%s", opt.Value, opt.Label))
		}
		context += "\nOptions: " + strings.Join(labels, ", ")
	}
	return []chatMessage{
		{Role: "system", Content: prompt},
		{Role: "system", Content: context},
		{Role: "user", Content: value},
	}
}
