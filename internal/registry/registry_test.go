package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"onboarding-agent/internal/domain"
)

func textStep(id string) domain.Step {
	return domain.Step{
		ID:       id,
		Title:    id,
		Question: "Question for " + id,
		Template: domain.Payload{
			Kind:     domain.KindText,
			ID:       id,
			Prompt:   "Question for " + id,
			Required: true,
			MinLen:   1,
			MaxLen:   10,
		},
	}
}

func TestDefault_ValidAndOrdered(t *testing.T) {
	r := Default()
	steps := r.Steps()
	require.Equal(t, 10, len(steps))
	require.Equal(t, "display_name", steps[0].ID)
	require.Equal(t, "birthday", steps[1].ID)
	require.Equal(t, "sex", steps[2].ID)
	require.Equal(t, "review", steps[len(steps)-1].ID)
}

func TestTemplateFor_HappyPath(t *testing.T) {
	r := Default()
	tmpl, err := r.TemplateFor("display_name")
	require.NoError(t, err)
	require.Equal(t, domain.KindText, tmpl.Kind)
	require.Equal(t, 2, tmpl.MinLen)
	require.Equal(t, 40, tmpl.MaxLen)
	require.True(t, tmpl.Required)
}

func TestTemplateFor_Unknown(t *testing.T) {
	r := Default()
	_, err := r.TemplateFor("nope")
	require.ErrorIs(t, err, ErrStepNotFound)
}

func TestNew_RejectsEmptyCatalog(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	_, err := New([]domain.Step{textStep("a"), textStep("a")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestNew_RejectsTemplateIDMismatch(t *testing.T) {
	step := textStep("a")
	step.Template.ID = "b"
	_, err := New([]domain.Step{step})
	require.Error(t, err)
}

func TestNew_RejectsInvertedLengthBounds(t *testing.T) {
	step := textStep("a")
	step.Template.MinLen = 5
	step.Template.MaxLen = 2
	_, err := New([]domain.Step{step})
	require.Error(t, err)
	require.Contains(t, err.Error(), "minLen")
}

func TestNew_RejectsInvertedNumericBounds(t *testing.T) {
	step := textStep("a")
	step.Template = domain.Payload{Kind: domain.KindNumeric, ID: "a", Prompt: "p", Min: f64(10), Max: f64(1)}
	_, err := New([]domain.Step{step})
	require.Error(t, err)
}

func TestNew_RejectsEmptyOptions(t *testing.T) {
	step := textStep("a")
	step.Template = domain.Payload{Kind: domain.KindRadio, ID: "a", Prompt: "p"}
	_, err := New([]domain.Step{step})
	require.Error(t, err)
	require.Contains(t, err.Error(), "options")
}

func TestNew_RejectsUnknownKind(t *testing.T) {
	step := textStep("a")
	step.Template.Kind = "slider"
	_, err := New([]domain.Step{step})
	require.Error(t, err)
}

func TestSteps_ReturnsCopy(t *testing.T) {
	r := Default()
	steps := r.Steps()
	steps[0].ID = "mutated"
	again := r.Steps()
	require.Equal(t, "display_name", again[0].ID)
}

func TestLoadFile_HappyPath(t *testing.T) {
	catalog := `steps:
  - id: name
    title: Name
    question: What is your name?
    payload:
      kind: text
      id: name
      prompt: What is your name?
      required: true
      minLen: 2
      maxLen: 40
  - id: sex
    title: Sex
    question: Sex?
    payload:
      kind: radio
      id: sex
      prompt: Sex?
      required: true
      options:
        - value: male
          label: Male
        - value: female
          label: Female
`
	path := filepath.Join(t.TempDir(), "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o600))

	r, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	tmpl, err := r.TemplateFor("sex")
	require.NoError(t, err)
	require.Equal(t, domain.KindRadio, tmpl.Kind)
	require.Len(t, tmpl.Options, 2)
}

func TestLoadFile_InvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - id: \"\"\n"), 0o600))
	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
