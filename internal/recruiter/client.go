package recruiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirestream/interview-gateway/internal/config"
	"github.com/hirestream/interview-gateway/internal/observability"
)

// Client talks to the recruiting backend (applications, interview records).
// Backend requests are authenticated with the candidate's bearer token, so a
// per-session copy is obtained via WithToken.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	logger     zerolog.Logger
}

// NewClient creates a backend client from configuration
func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BackendURL, "/") + "/api",
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.BackendTimeout) * time.Second,
		},
		logger: logger.With().Str("component", "recruiter").Logger(),
	}
}

// WithToken returns a copy of the client that authenticates with the given
// bearer token. The underlying HTTP client is shared.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// FetchApplication loads the candidate's applications and returns the one
// with the given ID
func (c *Client) FetchApplication(ctx context.Context, applicationID string) (*Application, error) {
	var apps []Application
	err := c.do(ctx, http.MethodGet, "/candidates/applications", nil, &apps)
	observability.RecordBackendRequest("fetch_application", err)
	if err != nil {
		return nil, err
	}

	for i := range apps {
		if apps[i].ID == applicationID {
			return &apps[i], nil
		}
	}
	return nil, fmt.Errorf("application %s not found", applicationID)
}

// StartInterview registers a new interview session and returns its ID
func (c *Client) StartInterview(ctx context.Context, candidateID, jobID string) (string, error) {
	var data startInterviewData
	err := c.do(ctx, http.MethodPost, "/interviews/start", startInterviewRequest{
		CandidateID: candidateID,
		JobID:       jobID,
	}, &data)
	observability.RecordBackendRequest("start_interview", err)
	if err != nil {
		return "", err
	}
	if data.InterviewID == "" {
		return "", fmt.Errorf("backend returned empty interview id")
	}
	return data.InterviewID, nil
}

// SaveEvaluation persists the final interview evaluation
func (c *Client) SaveEvaluation(ctx context.Context, interviewID string, record *EvaluationRecord) error {
	err := c.do(ctx, http.MethodPost, "/interviews/"+interviewID+"/evaluate", record, nil)
	observability.RecordBackendRequest("save_evaluation", err)
	if err != nil {
		c.logger.Warn().Err(err).Str("interview_id", interviewID).Msg("Failed to save evaluation")
	}
	return err
}

// HealthCheck probes backend reachability
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode < 500, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, reqBody, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("backend returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to decode backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, msg)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
