package recruiter

import "encoding/json"

// envelope is the backend's standard response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Job is the subset of the job posting the gateway needs
type Job struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

// Application is a candidate's job application as stored by the backend
type Application struct {
	ID          string `json:"_id"`
	CandidateID string `json:"candidate"`
	HRID        string `json:"hr"`
	Job         *Job   `json:"job"`
	ResumeURL   string `json:"resumeUrl"`
	Status      string `json:"status"`
}

// Role returns the job title for the application, falling back to a generic
// role when the job reference was not populated
func (a *Application) Role() string {
	if a.Job != nil && a.Job.Title != "" {
		return a.Job.Title
	}
	return "Software Engineer"
}

type startInterviewRequest struct {
	CandidateID string `json:"candidateId"`
	JobID       string `json:"jobId"`
}

type startInterviewData struct {
	InterviewID string `json:"interviewId"`
	CandidateID string `json:"candidateId"`
	JobID       string `json:"jobId"`
	Status      string `json:"status"`
}

// TranscriptEntry is one question/answer pair in the persisted transcript
type TranscriptEntry struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Answer  string `json:"answer"`
}

// EvaluationRecord is the final interview evaluation persisted to the backend
type EvaluationRecord struct {
	CandidateID    string            `json:"candidateId"`
	JobID          string            `json:"jobId"`
	HRID           string            `json:"hrId"`
	Rating         int               `json:"rating"`
	Summary        string            `json:"summary"`
	Interpretation string            `json:"interpretation"`
	ShouldHire     bool              `json:"shouldHire"`
	Transcript     []TranscriptEntry `json:"transcript"`
}
