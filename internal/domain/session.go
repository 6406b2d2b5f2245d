package domain

import "time"

// SessionStatus is the lifecycle state of an onboarding session.
type SessionStatus string

const (
	// StatusQuestion means a question is pending for CurrentStepID.
	StatusQuestion SessionStatus = "question"
	// StatusComplete means every step is done and nothing is pending.
	StatusComplete SessionStatus = "complete"
	// StatusError marks an unrecoverable session (catalog mismatch).
	StatusError SessionStatus = "error"
)

// StepStatus tracks one step's position relative to the cursor.
type StepStatus string

const (
	StepUpcoming StepStatus = "upcoming"
	StepCurrent  StepStatus = "current"
	StepDone     StepStatus = "done"
)

// Step is one question slot in the fixed onboarding sequence. Steps are
// owned by the registry; sessions reference them by id only.
type Step struct {
	ID       string  `json:"id" yaml:"id"`
	Title    string  `json:"title" yaml:"title"`
	Question string  `json:"question" yaml:"question"`
	Template Payload `json:"payload" yaml:"payload"`
}

// Answer is the validated value recorded for a step. Immutable once
// recorded; resubmitting a step supersedes the previous Answer wholesale.
type Answer struct {
	StepID      string    `json:"stepId"`
	Raw         string    `json:"rawValue"`
	Paraphrased string    `json:"paraphrasedValue"`
	Fallback    bool      `json:"fallback,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// StepProgress pairs a registry step id with its session-local status.
type StepProgress struct {
	StepID string     `json:"stepId"`
	Status StepStatus `json:"status"`
}

// Session is the aggregate root for one user's progression through the
// onboarding sequence. The step order is cloned from the registry at
// creation and never reordered; only statuses, answers, and the cursor
// change, and only through the state machine's transition functions.
//
// Revision is the optimistic-concurrency stamp: stores set it on read and
// reject a Save whose Revision no longer matches the persisted value.
type Session struct {
	ID            string            `json:"id"`
	Identity      string            `json:"identity"`
	Status        SessionStatus     `json:"status"`
	CurrentStepID string            `json:"currentStepId,omitempty"`
	Steps         []StepProgress    `json:"steps"`
	Answers       map[string]Answer `json:"answers"`
	Revision      int64             `json:"revision"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy so stores and transitions never alias the
// caller's maps and slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Steps = make([]StepProgress, len(s.Steps))
	copy(out.Steps, s.Steps)
	out.Answers = make(map[string]Answer, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	return &out
}

// Progress returns the StepProgress for id, or nil if the session does not
// track that step.
func (s *Session) Progress(id string) *StepProgress {
	for i := range s.Steps {
		if s.Steps[i].StepID == id {
			return &s.Steps[i]
		}
	}
	return nil
}
