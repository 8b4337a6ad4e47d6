package speech

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirestream/interview-gateway/internal/transcript"
)

// stubRecognition lets tests drive recognition events manually
type stubRecognition struct {
	mu       sync.Mutex
	starts   int
	stops    int
	events   RecognitionEvents
	startErr error
}

func (s *stubRecognition) Start(events RecognitionEvents) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.starts++
	s.events = events
	return nil
}

func (s *stubRecognition) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *stubRecognition) startCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func (s *stubRecognition) fireResult(r transcript.Result) {
	s.mu.Lock()
	ev := s.events
	s.mu.Unlock()
	if ev.OnResult != nil {
		ev.OnResult(r)
	}
}

func (s *stubRecognition) fireEnd() {
	s.mu.Lock()
	ev := s.events
	s.mu.Unlock()
	if ev.OnEnd != nil {
		ev.OnEnd()
	}
}

func (s *stubRecognition) fireError(err error) {
	s.mu.Lock()
	ev := s.events
	s.mu.Unlock()
	if ev.OnError != nil {
		ev.OnError(err)
	}
}

func TestListener_ResultsFeedAccumulator(t *testing.T) {
	engine := &stubRecognition{}
	acc := transcript.NewAccumulator()

	var gotText string
	var mu sync.Mutex
	l := NewListener(engine, acc, ListenerOptions{
		OnTranscript: func(text string) {
			mu.Lock()
			gotText = text
			mu.Unlock()
		},
	}, zerolog.Nop())

	if err := l.Listen(); err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}

	engine.fireResult(transcript.Result{Text: "I have five", IsFinal: false})
	engine.fireResult(transcript.Result{Text: "I have five years", IsFinal: true})

	if got := acc.Confirmed(); got != "I have five years" {
		t.Errorf("Expected confirmed text, got %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotText != "I have five years" {
		t.Errorf("Expected transcript callback %q, got %q", "I have five years", gotText)
	}
}

func TestListener_RestartsOnSpontaneousEnd(t *testing.T) {
	engine := &stubRecognition{}
	acc := transcript.NewAccumulator()
	l := NewListener(engine, acc, ListenerOptions{}, zerolog.Nop())

	l.Listen()
	engine.fireResult(transcript.Result{Text: "first part", IsFinal: true})

	// Engine dies on its own; listener must restart and keep the transcript
	engine.fireEnd()

	if engine.startCount() != 2 {
		t.Errorf("Expected restart after spontaneous end, got %d starts", engine.startCount())
	}
	if !l.Listening() {
		t.Error("Expected still listening after restart")
	}

	engine.fireResult(transcript.Result{Text: "second part", IsFinal: true})
	if got := acc.Confirmed(); got != "first part second part" {
		t.Errorf("Expected transcript to survive restart, got %q", got)
	}
}

func TestListener_StopPreventsRestart(t *testing.T) {
	engine := &stubRecognition{}
	l := NewListener(engine, transcript.NewAccumulator(), ListenerOptions{}, zerolog.Nop())

	l.Listen()
	l.Stop()

	// End event caused by the deliberate stop must not restart
	engine.fireEnd()

	if engine.startCount() != 1 {
		t.Errorf("Expected no restart after Stop, got %d starts", engine.startCount())
	}
	if l.Listening() {
		t.Error("Expected not listening after Stop")
	}
}

func TestListener_StopIdempotent(t *testing.T) {
	engine := &stubRecognition{}
	l := NewListener(engine, transcript.NewAccumulator(), ListenerOptions{}, zerolog.Nop())

	l.Listen()
	l.Stop()
	l.Stop()

	engine.mu.Lock()
	stops := engine.stops
	engine.mu.Unlock()
	if stops != 1 {
		t.Errorf("Expected 1 engine stop, got %d", stops)
	}
}

func TestListener_ResultsAfterStopDropped(t *testing.T) {
	engine := &stubRecognition{}
	acc := transcript.NewAccumulator()
	l := NewListener(engine, acc, ListenerOptions{}, zerolog.Nop())

	l.Listen()
	engine.fireResult(transcript.Result{Text: "the answer", IsFinal: true})
	l.Stop()

	// A straggler result racing the stop must not grow the snapshot
	engine.fireResult(transcript.Result{Text: "straggler", IsFinal: true})

	if got := acc.Confirmed(); got != "the answer" {
		t.Errorf("Expected straggler dropped, got %q", got)
	}
}

func TestListener_PermissionDeniedIsFatalNoRestart(t *testing.T) {
	engine := &stubRecognition{}

	var fatalErr error
	var mu sync.Mutex
	l := NewListener(engine, transcript.NewAccumulator(), ListenerOptions{
		OnFatal: func(err error) {
			mu.Lock()
			fatalErr = err
			mu.Unlock()
		},
	}, zerolog.Nop())

	l.Listen()
	engine.fireError(NewRecognitionError("not-allowed"))

	mu.Lock()
	got := fatalErr
	mu.Unlock()
	if got == nil || !IsPermissionDenied(got) {
		t.Errorf("Expected permission-denied fatal callback, got %v", got)
	}
	if l.Listening() {
		t.Error("Expected not listening after permission denial")
	}

	engine.fireEnd()
	if engine.startCount() != 1 {
		t.Errorf("Expected no restart after permission denial, got %d starts", engine.startCount())
	}
}

func TestListener_TransientErrorRetriesOnceAfterDelay(t *testing.T) {
	engine := &stubRecognition{}
	l := NewListener(engine, transcript.NewAccumulator(), ListenerOptions{
		RetryDelay: 10 * time.Millisecond,
	}, zerolog.Nop())

	l.Listen()
	engine.fireError(NewRecognitionError("network"))

	if engine.startCount() != 1 {
		t.Error("Expected retry to be delayed, not immediate")
	}

	deadline := time.Now().Add(time.Second)
	for engine.startCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if engine.startCount() != 2 {
		t.Errorf("Expected retry after delay, got %d starts", engine.startCount())
	}
}

func TestListener_TransientRetrySkippedWhenStopped(t *testing.T) {
	engine := &stubRecognition{}
	l := NewListener(engine, transcript.NewAccumulator(), ListenerOptions{
		RetryDelay: 10 * time.Millisecond,
	}, zerolog.Nop())

	l.Listen()
	engine.fireError(NewRecognitionError("audio-capture"))
	l.Stop()

	time.Sleep(50 * time.Millisecond)
	if engine.startCount() != 1 {
		t.Errorf("Expected no retry after Stop, got %d starts", engine.startCount())
	}
}

func TestListener_NilEngineIsFatal(t *testing.T) {
	var fatalErr error
	l := NewListener(nil, transcript.NewAccumulator(), ListenerOptions{
		OnFatal: func(err error) { fatalErr = err },
	}, zerolog.Nop())

	if err := l.Listen(); err != ErrRecognitionUnavailable {
		t.Errorf("Expected ErrRecognitionUnavailable, got %v", err)
	}
	if fatalErr != ErrRecognitionUnavailable {
		t.Errorf("Expected fatal callback with ErrRecognitionUnavailable, got %v", fatalErr)
	}
}

func TestRecognitionErrorClassification(t *testing.T) {
	if !IsPermissionDenied(NewRecognitionError("service-not-allowed")) {
		t.Error("Expected service-not-allowed to be permission denial")
	}
	if IsPermissionDenied(NewRecognitionError("network")) {
		t.Error("Expected network not to be permission denial")
	}
	if !IsTransientRecognitionError(NewRecognitionError("audio-capture")) {
		t.Error("Expected audio-capture to be transient")
	}
	if IsTransientRecognitionError(ErrRecognitionUnavailable) {
		t.Error("Expected ErrRecognitionUnavailable not to be transient")
	}
}
