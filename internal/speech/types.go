package speech

import (
	"errors"

	"github.com/hirestream/interview-gateway/internal/transcript"
)

// SynthesisEvents are the callbacks a synthesis engine fires for one utterance
type SynthesisEvents struct {
	// OnEnd fires when playback finishes naturally
	OnEnd func()

	// OnError fires when playback fails or is cut short
	OnError func(err error)
}

// SynthesisEngine is a text-to-speech playback engine. The concrete engine is
// external (the candidate's browser, relayed over the live connection) and may
// stall without ever reporting completion; the Speaker compensates.
type SynthesisEngine interface {
	// Speak starts playback of text and reports completion via events
	Speak(text string, events SynthesisEvents) error

	// Cancel stops any in-flight playback
	Cancel()
}

// RecognitionEvents are the callbacks a recognition engine fires while listening
type RecognitionEvents struct {
	// OnResult fires for every final or interim recognition result
	OnResult func(r transcript.Result)

	// OnEnd fires when the engine stops, solicited or not. Browser engines
	// commonly end spontaneously after silence or internal timeouts.
	OnEnd func()

	// OnError fires on engine errors
	OnError func(err error)
}

// RecognitionEngine is a continuous, interim-enabled speech-to-text engine
type RecognitionEngine interface {
	// Start begins a recognition session and reports results via events
	Start(events RecognitionEvents) error

	// Stop ends the recognition session. Stopping still fires OnEnd on
	// engines that report it; callers must tolerate both.
	Stop()
}

// ErrRecognitionUnavailable indicates no recognition engine exists; voice
// interaction is not possible for the session.
var ErrRecognitionUnavailable = errors.New("speech recognition is not available")

// RecognitionError is an engine error tagged with a Web Speech API error
// code as relayed by the client ("not-allowed", "network", ...).
type RecognitionError struct {
	Code string
}

func (e *RecognitionError) Error() string {
	return "speech recognition error: " + e.Code
}

// NewRecognitionError creates a RecognitionError for the given code
func NewRecognitionError(code string) *RecognitionError {
	return &RecognitionError{Code: code}
}

// IsPermissionDenied reports whether err is a microphone permission denial,
// which is fatal to the voice capability and must not trigger a restart
func IsPermissionDenied(err error) bool {
	var re *RecognitionError
	if !errors.As(err, &re) {
		return false
	}
	return re.Code == "not-allowed" || re.Code == "service-not-allowed"
}

// IsTransientRecognitionError reports whether err is worth a single delayed
// retry (network blips, audio capture hiccups)
func IsTransientRecognitionError(err error) bool {
	var re *RecognitionError
	if !errors.As(err, &re) {
		return false
	}
	return re.Code == "network" || re.Code == "audio-capture"
}
