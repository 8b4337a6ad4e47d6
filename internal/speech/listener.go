package speech

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirestream/interview-gateway/internal/transcript"
)

// Listener wraps a RecognitionEngine with the restart policy a continuous
// listening window needs: spontaneous engine ends restart recognition
// silently (the Accumulator outlives engine instances, so no text is lost),
// transient errors get a single delayed retry, and permission denials are
// surfaced as fatal without any restart.
type Listener struct {
	engine       RecognitionEngine
	acc          *transcript.Accumulator
	retryDelay   time.Duration
	logger       zerolog.Logger
	onTranscript func(text string)
	onFatal      func(err error)

	mu        sync.Mutex
	listening bool
}

// ListenerOptions configures a Listener
type ListenerOptions struct {
	// RetryDelay is how long to wait before retrying after a transient
	// recognition error. Defaults to one second.
	RetryDelay time.Duration

	// OnTranscript is invoked with the full accumulated text after every
	// recognition result
	OnTranscript func(text string)

	// OnFatal is invoked when recognition becomes impossible (permission
	// denied, engine missing)
	OnFatal func(err error)
}

// NewListener creates a Listener feeding results into acc
func NewListener(engine RecognitionEngine, acc *transcript.Accumulator, opts ListenerOptions, logger zerolog.Logger) *Listener {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Listener{
		engine:       engine,
		acc:          acc,
		retryDelay:   opts.RetryDelay,
		logger:       logger,
		onTranscript: opts.OnTranscript,
		onFatal:      opts.OnFatal,
	}
}

// Listen starts continuous recognition. It keeps listening, across engine
// restarts, until Stop is called. Returns ErrRecognitionUnavailable when no
// engine exists; voice interaction is not possible without one.
func (l *Listener) Listen() error {
	if l.engine == nil {
		if l.onFatal != nil {
			l.onFatal(ErrRecognitionUnavailable)
		}
		return ErrRecognitionUnavailable
	}

	l.mu.Lock()
	if l.listening {
		l.mu.Unlock()
		return nil
	}
	l.listening = true
	l.mu.Unlock()

	if err := l.start(); err != nil {
		l.mu.Lock()
		l.listening = false
		l.mu.Unlock()
		return err
	}
	return nil
}

// Stop ends the listening window. Idempotent. The listening flag is cleared
// before the engine is stopped so the engine's end event cannot trigger the
// auto-restart path.
func (l *Listener) Stop() {
	l.mu.Lock()
	wasListening := l.listening
	l.listening = false
	l.mu.Unlock()

	if wasListening && l.engine != nil {
		l.engine.Stop()
	}
}

// Listening reports whether a listening window is open
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

func (l *Listener) start() error {
	return l.engine.Start(RecognitionEvents{
		OnResult: l.handleResult,
		OnEnd:    l.handleEnd,
		OnError:  l.handleError,
	})
}

func (l *Listener) handleResult(r transcript.Result) {
	// Results that race a deliberate Stop are dropped: the answer snapshot
	// taken after Stop must not grow underneath the caller.
	if !l.Listening() {
		return
	}

	l.acc.Apply(r)
	if l.onTranscript != nil {
		l.onTranscript(l.acc.Text())
	}
}

func (l *Listener) handleEnd() {
	// Browser recognition engines end spontaneously after silence or
	// internal timeouts. Restart immediately while the window is open;
	// accumulated text carries over.
	if !l.Listening() {
		return
	}

	l.logger.Debug().Msg("Recognition engine ended, restarting")
	if err := l.start(); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to restart recognition")
	}
}

func (l *Listener) handleError(err error) {
	switch {
	case IsPermissionDenied(err):
		l.logger.Error().Err(err).Msg("Microphone permission denied")
		l.mu.Lock()
		l.listening = false
		l.mu.Unlock()
		if l.onFatal != nil {
			l.onFatal(err)
		}

	case IsTransientRecognitionError(err):
		l.logger.Warn().Err(err).Dur("retry_in", l.retryDelay).Msg("Transient recognition error")
		time.AfterFunc(l.retryDelay, func() {
			if !l.Listening() {
				return
			}
			if startErr := l.start(); startErr != nil {
				l.logger.Warn().Err(startErr).Msg("Recognition retry failed")
			}
		})

	default:
		l.logger.Warn().Err(err).Msg("Recognition error")
	}
}
