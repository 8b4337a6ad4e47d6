// Package session drives a single mock interview from loading through the
// final verdict: it sequences questions, collects spoken answers, scores them
// through the evaluation agent, and persists the outcome to the recruiting
// backend.
package session

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hirestream/interview-gateway/internal/agent"
	"github.com/hirestream/interview-gateway/internal/media"
	"github.com/hirestream/interview-gateway/internal/observability"
	"github.com/hirestream/interview-gateway/internal/recruiter"
	"github.com/hirestream/interview-gateway/internal/speech"
	"github.com/hirestream/interview-gateway/internal/transcript"
)

// Evaluator is the AI agent surface the session needs
type Evaluator interface {
	ExtractResumeFromURL(ctx context.Context, resumeURL string) (string, error)
	GenerateQuestions(ctx context.Context, resumeContext, role string) ([]string, error)
	EvaluateAnswer(ctx context.Context, question, answer, resumeContext string) (*agent.Evaluation, error)
	FinalVerdict(ctx context.Context, entries []agent.SessionEntry, role string) (*agent.Verdict, error)
}

// Recorder is the recruiting backend surface the session needs
type Recorder interface {
	FetchApplication(ctx context.Context, applicationID string) (*recruiter.Application, error)
	StartInterview(ctx context.Context, candidateID, jobID string) (string, error)
	SaveEvaluation(ctx context.Context, interviewID string, record *recruiter.EvaluationRecord) error
}

// Notifier delivers session events to the connected client
type Notifier interface {
	NotifyState(state State)
	NotifyLoading(message string)
	NotifyCountdown(remaining int)
	NotifyQuestion(index, total int, text string)
	NotifyElapsed(seconds int)
	NotifyVerdict(v *agent.Verdict)
	NotifyError(message string)
}

// Params identify the interview the candidate is joining
type Params struct {
	ApplicationID string
	JobID         string
	Token         string // backend bearer token, reused for persistence calls
}

// Deps are the collaborators a session runs against
type Deps struct {
	Logger   zerolog.Logger
	Agent    Evaluator
	Backend  Recorder
	Speaker  *speech.Speaker
	Listener *speech.Listener
	Script   *transcript.Accumulator
	Media    *media.Stream
	Notifier Notifier

	CountdownSeconds int
}

type qaPair struct {
	question   string
	answer     string
	evaluation agent.Evaluation
}

// Session is one candidate's interview from connect to verdict
type Session struct {
	ID     string
	logger zerolog.Logger

	params  Params
	deps    Deps
	metrics *observability.SessionMetrics

	mu            sync.Mutex
	state         State
	questions     []string
	index         int
	pairs         []qaPair
	role          string
	resumeContext string
	candidateID   string
	hrID          string
	interviewID   string

	ctx       context.Context
	cancelCtx context.CancelFunc
	done      chan struct{}
	tick      time.Duration // countdown/elapsed tick interval, shortened in tests
}

// New creates a session. Run must be called to start it.
func New(params Params, deps Deps) *Session {
	id := uuid.New().String()
	if deps.CountdownSeconds <= 0 {
		deps.CountdownSeconds = 3
	}
	return &Session{
		ID:      id,
		logger:  deps.Logger.With().Str("session_id", id).Logger(),
		params:  params,
		deps:    deps,
		metrics: observability.NewSessionMetrics(id),
		state:   StateLoading,
		done:    make(chan struct{}),
		tick:    time.Second,
	}
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session reaches a terminal state
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run executes the loading flow and, if it succeeds, the countdown and the
// first question. It returns once the interview is underway (or failed);
// subsequent progress is driven by SubmitAnswer and engine events.
func (s *Session) Run(ctx context.Context) error {
	s.ctx, s.cancelCtx = context.WithCancel(ctx)
	s.metrics.RecordSessionStart()
	s.logger.Info().Str("application_id", s.params.ApplicationID).Msg("Session starting")

	if s.params.ApplicationID == "" || s.params.JobID == "" {
		return s.abort("missing interview parameters")
	}

	s.deps.Notifier.NotifyLoading("Fetching application details...")
	app, err := s.deps.Backend.FetchApplication(s.ctx, s.params.ApplicationID)
	if err != nil {
		return s.abort(fmt.Sprintf("failed to fetch application: %v", err))
	}

	s.mu.Lock()
	s.role = app.Role()
	s.candidateID = app.CandidateID
	s.hrID = app.HRID
	s.mu.Unlock()

	s.deps.Notifier.NotifyLoading("Starting interview session...")
	interviewID, err := s.deps.Backend.StartInterview(s.ctx, app.CandidateID, s.params.JobID)
	if err != nil {
		return s.abort(fmt.Sprintf("failed to start interview: %v", err))
	}
	s.mu.Lock()
	s.interviewID = interviewID
	s.mu.Unlock()

	s.deps.Notifier.NotifyLoading("Reading your resume...")
	s.mu.Lock()
	role := s.role
	s.mu.Unlock()
	resumeContext := s.extractResumeContext(app.ResumeURL, role)
	s.mu.Lock()
	s.resumeContext = resumeContext
	s.mu.Unlock()

	s.deps.Notifier.NotifyLoading("AI is generating questions tailored to your resume...")
	questions, err := s.deps.Agent.GenerateQuestions(s.ctx, resumeContext, role)
	if err != nil {
		return s.abort(fmt.Sprintf("failed to generate questions: %v", err))
	}
	if len(questions) == 0 {
		return s.abort("no questions generated")
	}
	s.mu.Lock()
	s.questions = questions
	s.mu.Unlock()

	if err := s.transition(StateCountdown); err != nil {
		return err
	}
	s.runCountdown()

	if s.State() != StateCountdown {
		// Cancelled during the countdown
		return nil
	}

	s.deps.Media.Acquire()
	go s.runElapsedTicker()
	s.beginQuestion(0)
	return nil
}

// extractResumeContext pulls text from the candidate's resume, degrading to a
// role-only context when the resume is missing or extraction fails
func (s *Session) extractResumeContext(resumeURL, role string) string {
	fallback := fmt.Sprintf("Candidate applying for %s position.", role)
	if resumeURL == "" {
		return fallback
	}
	resumeContext, err := s.deps.Agent.ExtractResumeFromURL(s.ctx, resumeURL)
	if err != nil || resumeContext == "" {
		s.logger.Warn().Err(err).Msg("Resume extraction failed, proceeding without context")
		return fallback
	}
	return resumeContext
}

func (s *Session) runCountdown() {
	for remaining := s.deps.CountdownSeconds; remaining > 0; remaining-- {
		if s.State() != StateCountdown {
			return
		}
		s.deps.Notifier.NotifyCountdown(remaining)
		time.Sleep(s.tick)
	}
	s.deps.Notifier.NotifyCountdown(0)
}

// runElapsedTicker reports interview elapsed time to the client once per tick
func (s *Session) runElapsedTicker() {
	start := time.Now()
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.deps.Notifier.NotifyElapsed(int(time.Since(start) / s.tick))
		}
	}
}

// beginQuestion asks question i, or finalizes the interview when the list is
// exhausted
func (s *Session) beginQuestion(i int) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	if i >= len(s.questions) {
		s.mu.Unlock()
		s.finalize()
		return
	}
	s.index = i
	question := s.questions[i]
	total := len(s.questions)
	s.mu.Unlock()

	if err := s.transition(StateAwaitingAnswer); err != nil {
		return
	}

	s.deps.Script.Reset()
	s.metrics.RecordQuestion()
	s.deps.Notifier.NotifyQuestion(i, total, question)
	s.logger.Info().Int("question", i+1).Int("total", total).Msg("Asking question")

	s.deps.Speaker.Speak(question, func() {
		// Only open the microphone if the question is still the active one
		s.mu.Lock()
		stale := s.state != StateAwaitingAnswer || s.index != i
		s.mu.Unlock()
		if stale {
			return
		}
		if err := s.deps.Listener.Listen(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to start listening")
		}
	})
}

// SubmitAnswer closes the current answer and starts its evaluation. Only
// legal while a question is awaiting an answer; a second submit while the
// previous evaluation is in flight is rejected.
func (s *Session) SubmitAnswer() error {
	s.mu.Lock()
	if s.state != StateAwaitingAnswer {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot submit answer in state %s", state)
	}
	i := s.index
	question := s.questions[i]
	s.mu.Unlock()

	// Leave AwaitingAnswer before touching the engines: cancelling the
	// speaker completes its utterance, and that completion must not reopen
	// the listening window for a question that is already closed.
	if err := s.transition(StateEvaluating); err != nil {
		return err
	}

	s.deps.Speaker.Cancel()
	s.deps.Listener.Stop()

	answer := strings.TrimSpace(s.deps.Script.Text())
	if answer == "" {
		answer = "(no answer provided)"
	}

	go s.evaluate(i, question, answer)
	return nil
}

func (s *Session) evaluate(i int, question, answer string) {
	s.mu.Lock()
	resumeContext := s.resumeContext
	s.mu.Unlock()

	evaluation, err := s.deps.Agent.EvaluateAnswer(s.ctx, question, answer, resumeContext)
	if err != nil {
		s.logger.Warn().Err(err).Int("question", i+1).Msg("Evaluation failed, continuing")
		s.metrics.RecordError("evaluation_failed", "agent")
		placeholder := agent.PlaceholderEvaluation()
		evaluation = &placeholder
	}

	s.mu.Lock()
	if s.state != StateEvaluating {
		// Cancelled while the evaluation was in flight; drop the result
		s.mu.Unlock()
		return
	}
	s.pairs = append(s.pairs, qaPair{question: question, answer: answer, evaluation: *evaluation})
	next := i + 1
	s.mu.Unlock()

	s.beginQuestion(next)
}

// finalize builds the whole-interview context, obtains the verdict, and
// persists the evaluation. Verdict or persistence failures are logged but the
// session still completes; the candidate is never left stuck.
func (s *Session) finalize() {
	s.deps.Notifier.NotifyLoading("AI is generating your final evaluation...")
	s.deps.Listener.Stop()
	s.deps.Speaker.Cancel()
	s.deps.Media.Release()

	s.mu.Lock()
	pairs := make([]qaPair, len(s.pairs))
	copy(pairs, s.pairs)
	role := s.role
	interviewID := s.interviewID
	candidateID := s.candidateID
	hrID := s.hrID
	s.mu.Unlock()

	entries := make([]agent.SessionEntry, 0, len(pairs))
	for _, p := range pairs {
		score := p.evaluation.Score
		feedback := p.evaluation.Feedback
		entries = append(entries, agent.SessionEntry{
			Question:  p.question,
			Answer:    p.answer,
			Score:     &score,
			Feedback:  &feedback,
			Strengths: p.evaluation.Strengths,
			WeakAreas: p.evaluation.WeakAreas,
		})
	}

	verdict, err := s.deps.Agent.FinalVerdict(s.ctx, entries, role)

	// A cancel can land while the verdict call is in flight; a cancelled
	// session delivers and persists nothing.
	if s.State() != StateEvaluating {
		return
	}

	if err != nil {
		s.logger.Error().Err(err).Msg("Final verdict failed")
		s.metrics.RecordError("verdict_failed", "agent")
	} else {
		s.deps.Notifier.NotifyVerdict(verdict)

		record := &recruiter.EvaluationRecord{
			CandidateID:    candidateID,
			JobID:          s.params.JobID,
			HRID:           hrID,
			Rating:         int(math.Round(verdict.ReadinessScore / 10)),
			Summary:        verdict.Summary,
			Interpretation: interpretationLines(verdict),
			ShouldHire:     verdict.HireSignal == agent.SignalHire,
			Transcript:     transcriptEntries(pairs),
		}
		if err := s.deps.Backend.SaveEvaluation(s.ctx, interviewID, record); err != nil {
			s.logger.Error().Err(err).Msg("Failed to persist evaluation")
			s.metrics.RecordError("persist_failed", "backend")
		}
	}

	if err := s.transition(StateCompleted); err == nil {
		s.finish("completed")
		s.logger.Info().Int("questions", len(pairs)).Msg("Session completed")
	}
}

// Cancel ends the interview at the candidate's request. No partial evaluation
// is recorded; media is released exactly once.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.transition(StateCancelled); err != nil {
		return
	}

	s.deps.Listener.Stop()
	s.deps.Speaker.Cancel()
	s.deps.Media.Release()
	s.finish("cancelled")
	s.logger.Info().Msg("Session cancelled by candidate")
}

// SetAudio toggles the candidate's microphone track
func (s *Session) SetAudio(enabled bool) bool {
	return s.deps.Media.SetAudio(enabled)
}

// SetVideo toggles the candidate's camera track
func (s *Session) SetVideo(enabled bool) bool {
	return s.deps.Media.SetVideo(enabled)
}

func (s *Session) abort(reason string) error {
	s.logger.Error().Str("reason", reason).Msg("Session aborted")
	s.metrics.RecordError("session_aborted", "session")
	s.deps.Notifier.NotifyError(reason)

	if err := s.transition(StateAborted); err != nil {
		return err
	}
	s.deps.Listener.Stop()
	s.deps.Speaker.Cancel()
	s.deps.Media.Release()
	s.finish("aborted")
	return fmt.Errorf("session aborted: %s", reason)
}

// transition moves the session to a new state, rejecting illegal moves
func (s *Session) transition(to State) error {
	s.mu.Lock()
	from := s.state
	if !CanTransition(from, to) {
		s.mu.Unlock()
		return fmt.Errorf("illegal state transition %s -> %s", from, to)
	}
	s.state = to
	s.mu.Unlock()

	s.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("State transition")
	s.deps.Notifier.NotifyState(to)
	return nil
}

// finish records the terminal outcome and unblocks Done waiters
func (s *Session) finish(outcome string) {
	s.metrics.RecordSessionEnd(outcome)
	if s.cancelCtx != nil {
		s.cancelCtx()
	}
	close(s.done)
}

func interpretationLines(v *agent.Verdict) string {
	lines := make([]string, 0, len(v.Strengths)+len(v.KeyGaps))
	for _, st := range v.Strengths {
		lines = append(lines, "✅ "+st)
	}
	for _, g := range v.KeyGaps {
		lines = append(lines, "⚠️ "+g)
	}
	return strings.Join(lines, "\n")
}

func transcriptEntries(pairs []qaPair) []recruiter.TranscriptEntry {
	entries := make([]recruiter.TranscriptEntry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, recruiter.TranscriptEntry{
			Speaker: "Question",
			Text:    p.question,
			Answer:  p.answer,
		})
	}
	return entries
}
