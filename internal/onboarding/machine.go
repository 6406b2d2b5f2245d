package onboarding

import (
	"errors"
	"fmt"
	"time"

	"onboarding-agent/internal/domain"
)

// ErrNoQuestionPending is returned by Advance when the session is not
// awaiting an answer.
var ErrNoQuestionPending = errors.New("onboarding: no question pending")

// NewSession builds a fresh session in state question. The step order is
// cloned from the catalog; the first step becomes current, the rest
// upcoming.
func NewSession(id, identity string, steps []domain.Step, now time.Time) *domain.Session {
	progress := make([]domain.StepProgress, len(steps))
	for i, step := range steps {
		status := domain.StepUpcoming
		if i == 0 {
			status = domain.StepCurrent
		}
		progress[i] = domain.StepProgress{StepID: step.ID, Status: status}
	}
	return &domain.Session{
		ID:            id,
		Identity:      identity,
		Status:        domain.StatusQuestion,
		CurrentStepID: steps[0].ID,
		Steps:         progress,
		Answers:       make(map[string]domain.Answer, len(steps)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Advance records ans for the current step, marks it done, and moves the
// cursor to the first remaining upcoming step in registry order. When none
// remains the session transitions to complete. Advance mutates sess and is
// all-or-nothing: it returns an error without touching anything if the
// session is not awaiting this answer.
func Advance(sess *domain.Session, ans domain.Answer, now time.Time) error {
	if sess.Status != domain.StatusQuestion {
		return ErrNoQuestionPending
	}
	if ans.StepID != sess.CurrentStepID {
		return fmt.Errorf("onboarding: answer is for step %q but %q is current", ans.StepID, sess.CurrentStepID)
	}
	cur := sess.Progress(ans.StepID)
	if cur == nil || cur.Status != domain.StepCurrent {
		return fmt.Errorf("onboarding: step %q is not current", ans.StepID)
	}

	sess.Answers[ans.StepID] = ans
	cur.Status = domain.StepDone
	sess.UpdatedAt = now

	for i := range sess.Steps {
		if sess.Steps[i].Status == domain.StepUpcoming {
			sess.Steps[i].Status = domain.StepCurrent
			sess.CurrentStepID = sess.Steps[i].StepID
			return nil
		}
	}
	sess.Status = domain.StatusComplete
	sess.CurrentStepID = ""
	return nil
}

// CheckInvariants verifies the single-current and strict-ordering rules.
// It exists for tests and for the endpoints' own sanity checks; a violation
// always indicates a bug in a transition function.
func CheckInvariants(sess *domain.Session) error {
	currents := 0
	seenNotDone := false
	for _, sp := range sess.Steps {
		switch sp.Status {
		case domain.StepCurrent:
			currents++
			if seenNotDone {
				return fmt.Errorf("onboarding: step %q is current after an unfinished step", sp.StepID)
			}
			seenNotDone = true
		case domain.StepDone:
			if seenNotDone {
				return fmt.Errorf("onboarding: step %q is done after an unfinished step", sp.StepID)
			}
		case domain.StepUpcoming:
			seenNotDone = true
		default:
			return fmt.Errorf("onboarding: step %q has unknown status %q", sp.StepID, sp.Status)
		}
	}
	if sess.Status == domain.StatusQuestion && currents != 1 {
		return fmt.Errorf("onboarding: %d current steps while awaiting an answer", currents)
	}
	if sess.Status != domain.StatusQuestion && currents != 0 {
		return fmt.Errorf("onboarding: %d current steps in state %q", currents, sess.Status)
	}
	return nil
}
