package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirestream/interview-gateway/internal/config"
	"github.com/hirestream/interview-gateway/internal/observability"
	"github.com/hirestream/interview-gateway/internal/resilience"
)

// Client talks to the AI agent service over HTTP/JSON. Every call carries a
// bounded timeout; non-2xx and timeouts surface as errors so callers can
// apply their documented fallbacks.
type Client struct {
	baseURL    string
	agentRoot  string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	retryCfg   *resilience.RetryConfig
	logger     zerolog.Logger
}

// NewClient creates an agent client from configuration
func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.AgentURL, "/") + "/api/v1",
		agentRoot: strings.TrimRight(cfg.AgentURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.AgentTimeout) * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(
			"agent",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		retryCfg: &resilience.RetryConfig{
			MaxAttempts:    cfg.RetryMaxAttempts,
			InitialBackoff: time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			Multiplier:     2.0,
			Jitter:         true,
		},
		logger: logger.With().Str("component", "agent").Logger(),
	}
}

// GenerateQuestions asks the agent for interview questions tailored to the
// resume and role
func (c *Client) GenerateQuestions(ctx context.Context, resumeContext, role string) ([]string, error) {
	var resp questionsResponse
	err := c.post(ctx, "generate_questions", "/qgen", questionsRequest{
		ResumeContext: resumeContext,
		Role:          role,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// EvaluateAnswer scores a single answer against the question and resume context
func (c *Client) EvaluateAnswer(ctx context.Context, question, answer, resumeContext string) (*Evaluation, error) {
	var resp Evaluation
	err := c.post(ctx, "evaluate_answer", "/evaluate", evaluateRequest{
		Question:      question,
		Answer:        answer,
		ResumeContext: resumeContext,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FinalVerdict asks the agent for the whole-interview verdict
func (c *Client) FinalVerdict(ctx context.Context, entries []SessionEntry, role string) (*Verdict, error) {
	var resp Verdict
	err := c.post(ctx, "final_verdict", "/verdict", verdictRequest{
		SessionContext: entries,
		Role:           role,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExtractResumeFromURL downloads the resume file and sends it to the agent
// for text extraction, returning the extracted context
func (c *Client) ExtractResumeFromURL(ctx context.Context, resumeURL string) (string, error) {
	start := time.Now()

	body, filename, err := c.downloadResume(ctx, resumeURL)
	if err != nil {
		observability.RecordAgentRequest("extract_resume", err, time.Since(start))
		return "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(body); err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/resume/context", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp resumeContextResponse
	err = c.breaker.Call(func() error {
		return c.doJSON(req, &resp)
	})
	c.publishBreakerState(err)
	observability.RecordAgentRequest("extract_resume", err, time.Since(start))
	if err != nil {
		return "", err
	}
	return resp.ResumeContext, nil
}

// HealthCheck probes the agent's health endpoint
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.agentRoot+"/health", nil)
	if err != nil {
		return false, err
	}

	var resp healthResponse
	if err := c.doJSON(req, &resp); err != nil {
		return false, err
	}
	return resp.Status == "ok", nil
}

func (c *Client) post(ctx context.Context, op, endpoint string, reqBody, respBody interface{}) error {
	start := time.Now()

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	err = c.breaker.Call(func() error {
		return resilience.Retry(func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
			if reqErr != nil {
				return reqErr
			}
			req.Header.Set("Content-Type", "application/json")
			return c.doJSON(req, respBody)
		}, c.retryCfg, resilience.IsRetryableNetworkError)
	})

	c.publishBreakerState(err)
	observability.RecordAgentRequest(op, err, time.Since(start))
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", op).Msg("Agent request failed")
	}
	return err
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("agent returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode agent response: %w", err)
	}
	return nil
}

func (c *Client) downloadResume(ctx context.Context, resumeURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resumeURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download resume: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("resume download returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read resume: %w", err)
	}

	return body, resumeFilename(resumeURL), nil
}

// resumeFilename derives a sensible filename for the extraction upload from
// the resume URL, defaulting to resume.pdf for opaque storage URLs
func resumeFilename(resumeURL string) string {
	filename := "resume.pdf"
	if u, err := url.Parse(resumeURL); err == nil {
		base := path.Base(u.Path)
		if strings.HasSuffix(base, ".pdf") || strings.HasSuffix(base, ".docx") {
			filename = base
		}
	}
	return filename
}

func (c *Client) publishBreakerState(err error) {
	observability.UpdateCircuitBreakerState(c.breaker.Name(), int(c.breaker.State()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures(c.breaker.Name())
	}
}
