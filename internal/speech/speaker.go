package speech

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// Assumed speaking rate for the fallback timer
	speakWordsPerMinute = 130

	// Lower bound on how long we wait for an utterance to complete
	speakMinWait = 3 * time.Second

	// Buffer added on top of the word-count estimate
	speakExtraWait = 1 * time.Second
)

// EstimateWait returns how long playback of text can reasonably take before
// the engine must be considered stalled: word count at 130 wpm plus a one
// second buffer, never less than three seconds.
func EstimateWait(text string) time.Duration {
	words := len(strings.Fields(text))
	wait := time.Duration(float64(words)/speakWordsPerMinute*float64(time.Minute)) + speakExtraWait
	if wait < speakMinWait {
		wait = speakMinWait
	}
	return wait
}

// Speaker wraps a SynthesisEngine with a deterministic completion contract:
// the done callback of every Speak call fires exactly once, whichever of
// natural end, engine error, fallback timer, or cancellation happens first.
// Starting a new utterance cancels the previous one, so audio never overlaps.
type Speaker struct {
	engine SynthesisEngine
	logger zerolog.Logger

	mu      sync.Mutex
	current *utterance
}

type utterance struct {
	once  sync.Once
	timer *time.Timer
	done  func()
}

// NewSpeaker creates a Speaker. A nil engine means synthesis is unsupported:
// Speak completes immediately so sessions degrade to listening only.
func NewSpeaker(engine SynthesisEngine, logger zerolog.Logger) *Speaker {
	return &Speaker{engine: engine, logger: logger}
}

// Speak starts playback of text and invokes done exactly once when the
// utterance is over, however it ends.
func (s *Speaker) Speak(text string, done func()) {
	// No overlapping audio: whatever is still playing loses.
	s.Cancel()

	if s.engine == nil {
		if done != nil {
			done()
		}
		return
	}

	u := &utterance{done: done}
	wait := EstimateWait(text)
	u.timer = time.AfterFunc(wait, func() {
		// Browser synthesis engines can stall and never fire their end
		// event; the timer keeps the session moving regardless.
		s.logger.Warn().Dur("waited", wait).Msg("Synthesis did not report completion, forcing it")
		s.finish(u)
	})

	s.mu.Lock()
	s.current = u
	s.mu.Unlock()

	err := s.engine.Speak(text, SynthesisEvents{
		OnEnd: func() { s.finish(u) },
		OnError: func(err error) {
			s.logger.Warn().Err(err).Msg("Synthesis error")
			s.finish(u)
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to start synthesis")
		s.finish(u)
	}
}

// Cancel stops the in-flight utterance, if any. Cancellation counts as
// completion: the utterance's done callback still fires (once).
func (s *Speaker) Cancel() {
	s.mu.Lock()
	u := s.current
	s.current = nil
	s.mu.Unlock()

	if u == nil {
		return
	}
	if s.engine != nil {
		s.engine.Cancel()
	}
	s.finish(u)
}

// Speaking reports whether an utterance is currently in flight
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *Speaker) finish(u *utterance) {
	u.once.Do(func() {
		u.timer.Stop()

		s.mu.Lock()
		if s.current == u {
			s.current = nil
		}
		s.mu.Unlock()

		if u.done != nil {
			u.done()
		}
	})
}
