package onboarding

import (
	"fmt"
	"strings"

	"onboarding-agent/internal/domain"
	"onboarding-agent/internal/validate"
)

// StepView is the per-step line of the wire snapshot. Answer carries the
// paraphrased value (the original UI renders the normalized form).
type StepView struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Question string            `json:"question"`
	Answer   *string           `json:"answer"`
	Status   domain.StepStatus `json:"status"`
}

// Rejection reports why the last submission was refused. It never changes
// the session status; the client re-renders the same payload with the
// reason code.
type Rejection struct {
	StepID string          `json:"stepId"`
	Reason validate.Reason `json:"reason"`
}

// Snapshot is the full serialized session state returned after every turn.
type Snapshot struct {
	SessionID          string               `json:"sessionId"`
	Status             domain.SessionStatus `json:"status"`
	CurrentStepID      *string              `json:"currentStepId"`
	Steps              []StepView           `json:"steps"`
	Payload            *domain.Payload      `json:"payload"`
	ParaphrasedAnswers map[string]string    `json:"paraphrasedAnswers"`
	Rejection          *Rejection           `json:"rejection,omitempty"`
}

// snapshot derives the wire view of sess. Paraphrased values are read from
// the recorded answers; the adapter is never consulted here, so fetches are
// idempotent.
func (s *Service) snapshot(sess *domain.Session, rej *Rejection) (*Snapshot, error) {
	views := make([]StepView, 0, len(sess.Steps))
	paraphrased := make(map[string]string, len(sess.Answers))
	for _, sp := range sess.Steps {
		step, err := s.registry.Step(sp.StepID)
		if err != nil {
			return nil, newError(ErrorInternal, "catalog_mismatch", err)
		}
		view := StepView{
			ID:       step.ID,
			Title:    step.Title,
			Question: step.Question,
			Status:   sp.Status,
		}
		if ans, ok := sess.Answers[sp.StepID]; ok {
			v := ans.Paraphrased
			view.Answer = &v
			paraphrased[sp.StepID] = ans.Paraphrased
		}
		views = append(views, view)
	}

	snap := &Snapshot{
		SessionID:          sess.ID,
		Status:             sess.Status,
		Steps:              views,
		ParaphrasedAnswers: paraphrased,
		Rejection:          rej,
	}
	if sess.Status == domain.StatusQuestion {
		id := sess.CurrentStepID
		snap.CurrentStepID = &id
		step, err := s.registry.Step(id)
		if err != nil {
			return nil, newError(ErrorInternal, "catalog_mismatch", err)
		}
		payload := step.Template
		if payload.Kind == domain.KindReview {
			payload.Summary = reviewSummary(snap.Steps)
		}
		snap.Payload = &payload
	}
	return snap, nil
}

// reviewSummary renders the answers recorded so far as short human lines
// for the review card.
func reviewSummary(steps []StepView) string {
	lines := make([]string, 0, len(steps))
	for _, sv := range steps {
		if sv.Answer == nil || *sv.Answer == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", sv.Title, *sv.Answer))
	}
	return strings.Join(lines, "\n")
}
