package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hirestream/interview-gateway/internal/config"
)

func testClient(agentURL string) *Client {
	cfg := &config.Config{
		AgentURL:                   agentURL,
		AgentTimeout:               5,
		CircuitBreakerMaxFailures:  10,
		CircuitBreakerResetTimeout: 30,
		RetryMaxAttempts:           1,
		RetryInitialBackoff:        1,
	}
	return NewClient(cfg, zerolog.Nop())
}

func TestGenerateQuestions(t *testing.T) {
	var gotBody questionsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/qgen" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(questionsResponse{
			Questions: []string{"Tell me about yourself.", "Why this role?"},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	questions, err := c.GenerateQuestions(context.Background(), "ten years of Go", "Backend Engineer")
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if gotBody.ResumeContext != "ten years of Go" || gotBody.Role != "Backend Engineer" {
		t.Errorf("request body = %+v", gotBody)
	}
}

func TestEvaluateAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/evaluate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Evaluation{
			Score:      8,
			Feedback:   "Clear and structured.",
			Strengths:  []string{"communication"},
			WeakAreas:  []string{"depth"},
			Confidence: 0.9,
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	eval, err := c.EvaluateAnswer(context.Background(), "Q1", "my answer", "ctx")
	if err != nil {
		t.Fatalf("EvaluateAnswer: %v", err)
	}
	if eval.Score != 8 {
		t.Errorf("Score = %v, want 8", eval.Score)
	}
	if eval.Feedback != "Clear and structured." {
		t.Errorf("Feedback = %q", eval.Feedback)
	}
}

func TestEvaluateAnswerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if _, err := c.EvaluateAnswer(context.Background(), "Q1", "answer", "ctx"); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestFinalVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/verdict" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req verdictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.SessionContext) != 1 {
			t.Errorf("session context length = %d, want 1", len(req.SessionContext))
		}
		json.NewEncoder(w).Encode(Verdict{
			ReadinessScore: 74,
			HireSignal:     SignalHire,
			Summary:        "Solid candidate.",
			Strengths:      []string{"systems"},
			KeyGaps:        []string{"distributed tracing"},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	verdict, err := c.FinalVerdict(context.Background(), []SessionEntry{{Question: "Q1", Answer: "A1"}}, "SRE")
	if err != nil {
		t.Fatalf("FinalVerdict: %v", err)
	}
	if verdict.ReadinessScore != 74 {
		t.Errorf("ReadinessScore = %v, want 74", verdict.ReadinessScore)
	}
	if verdict.HireSignal != SignalHire {
		t.Errorf("HireSignal = %q, want %q", verdict.HireSignal, SignalHire)
	}
}

func TestFinalVerdictMissingScoreDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hire_signal":"Borderline","summary":"Mixed signals.","strengths":[],"key_gaps":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	verdict, err := c.FinalVerdict(context.Background(), []SessionEntry{{Question: "Q1", Answer: "A1"}}, "SRE")
	if err != nil {
		t.Fatalf("FinalVerdict: %v", err)
	}
	if verdict.ReadinessScore != 50 {
		t.Errorf("ReadinessScore = %v, want 50 when omitted", verdict.ReadinessScore)
	}
}

func TestFinalVerdictZeroScoreKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"interview_readiness_score":0,"hire_signal":"No Hire","summary":"","strengths":[],"key_gaps":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	verdict, err := c.FinalVerdict(context.Background(), []SessionEntry{{Question: "Q1", Answer: "A1"}}, "SRE")
	if err != nil {
		t.Fatalf("FinalVerdict: %v", err)
	}
	if verdict.ReadinessScore != 0 {
		t.Errorf("ReadinessScore = %v, want 0 when explicit", verdict.ReadinessScore)
	}
}

func TestExtractResumeFromURL(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 fake resume bytes"))
	}))
	defer files.Close()

	var gotFilename string
	agent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/resume/context" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		file.Close()
		gotFilename = header.Filename
		json.NewEncoder(w).Encode(resumeContextResponse{ResumeContext: "Extracted resume text", Length: 21})
	}))
	defer agent.Close()

	c := testClient(agent.URL)
	got, err := c.ExtractResumeFromURL(context.Background(), files.URL+"/uploads/jane-doe.pdf")
	if err != nil {
		t.Fatalf("ExtractResumeFromURL: %v", err)
	}
	if got != "Extracted resume text" {
		t.Errorf("resume context = %q", got)
	}
	if gotFilename != "jane-doe.pdf" {
		t.Errorf("filename = %q, want jane-doe.pdf", gotFilename)
	}
}

func TestExtractResumeDownloadFailure(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer files.Close()

	c := testClient("http://localhost:1")
	if _, err := c.ExtractResumeFromURL(context.Background(), files.URL+"/missing.pdf"); err == nil {
		t.Fatal("expected error when resume download fails")
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(healthResponse{Status: "ok"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	healthy, err := c.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if !healthy {
		t.Error("expected healthy = true")
	}
}

func TestResumeFilename(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/uploads/resume-final.pdf", "resume-final.pdf"},
		{"https://cdn.example.com/uploads/cv.docx", "cv.docx"},
		{"https://storage.example.com/v1/b/o?alt=media", "resume.pdf"},
		{"https://cdn.example.com/uploads/photo.png", "resume.pdf"},
	}
	for _, tt := range tests {
		if got := resumeFilename(tt.url); got != tt.want {
			t.Errorf("resumeFilename(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestPlaceholderEvaluation(t *testing.T) {
	p := PlaceholderEvaluation()
	if p.Score != 5 || p.Confidence != 0.5 {
		t.Errorf("placeholder = %+v", p)
	}
	if !strings.Contains(p.Feedback, "unavailable") {
		t.Errorf("Feedback = %q", p.Feedback)
	}
	if p.Strengths == nil || p.WeakAreas == nil {
		t.Error("placeholder lists should be non-nil")
	}
}
