package agent

import "encoding/json"

// Evaluation is the agent's scoring of a single answer. Immutable once
// attached to a question/answer pair.
type Evaluation struct {
	Score      float64  `json:"score"`
	Feedback   string   `json:"feedback"`
	Strengths  []string `json:"strengths"`
	WeakAreas  []string `json:"weak_areas"`
	Confidence float64  `json:"confidence"`
}

// PlaceholderEvaluation is the neutral stand-in used when the per-answer
// evaluation call fails; a single agent failure must never block the session.
func PlaceholderEvaluation() Evaluation {
	return Evaluation{
		Score:      5,
		Feedback:   "Evaluation unavailable",
		Strengths:  []string{},
		WeakAreas:  []string{},
		Confidence: 0.5,
	}
}

// Hire signal values emitted by the final verdict
const (
	SignalHire       = "Hire"
	SignalBorderline = "Borderline"
	SignalNoHire     = "No Hire"
)

// Verdict is the agent's final assessment of a whole interview
type Verdict struct {
	ReadinessScore float64  `json:"interview_readiness_score"`
	HireSignal     string   `json:"hire_signal"`
	Summary        string   `json:"summary"`
	Strengths      []string `json:"strengths"`
	KeyGaps        []string `json:"key_gaps"`
}

// UnmarshalJSON defaults a missing readiness score to the neutral 50; an
// explicit 0 is kept as 0.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	type verdictAlias Verdict
	aux := struct {
		ReadinessScore *float64 `json:"interview_readiness_score"`
		*verdictAlias
	}{verdictAlias: (*verdictAlias)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ReadinessScore != nil {
		v.ReadinessScore = *aux.ReadinessScore
	} else {
		v.ReadinessScore = 50
	}
	return nil
}

// SessionEntry is one question/answer pair in the context sent to the
// verdict endpoint, in original interview order
type SessionEntry struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Score     *float64 `json:"score"`
	Feedback  *string  `json:"feedback"`
	Strengths []string `json:"strengths"`
	WeakAreas []string `json:"weak_areas"`
}

type questionsRequest struct {
	ResumeContext string `json:"resume_context"`
	Role          string `json:"role"`
}

type questionsResponse struct {
	Questions []string `json:"questions"`
}

type evaluateRequest struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	ResumeContext string `json:"resume_context"`
}

type verdictRequest struct {
	SessionContext []SessionEntry `json:"session_context"`
	Role           string         `json:"role"`
}

type resumeContextResponse struct {
	ResumeContext string `json:"resume_context"`
	Length        int    `json:"length"`
}

type healthResponse struct {
	Status string `json:"status"`
}
