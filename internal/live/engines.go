package live

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hirestream/interview-gateway/internal/speech"
	"github.com/hirestream/interview-gateway/internal/transcript"
)

// sender delivers a server message to the connected client
type sender interface {
	send(msg *ServerMessage) error
}

// remoteSynthesis is a speech.SynthesisEngine whose playback happens in the
// candidate's browser. Speak sends the text over the connection with a fresh
// utterance id; the browser echoes that id in its speech_end / speech_error
// events. Browsers fire end for cancelled utterances too, so events that do
// not name the current utterance are dropped.
type remoteSynthesis struct {
	out sender

	mu      sync.Mutex
	current string
	events  speech.SynthesisEvents
}

func newRemoteSynthesis(out sender) *remoteSynthesis {
	return &remoteSynthesis{out: out}
}

func (r *remoteSynthesis) Speak(text string, events speech.SynthesisEvents) error {
	id := uuid.New().String()
	r.mu.Lock()
	r.current = id
	r.events = events
	r.mu.Unlock()
	return r.out.send(&ServerMessage{Event: ServerEventSpeak, Text: text, Utterance: id})
}

func (r *remoteSynthesis) Cancel() {
	r.mu.Lock()
	r.current = ""
	r.events = speech.SynthesisEvents{}
	r.mu.Unlock()
	_ = r.out.send(&ServerMessage{Event: ServerEventSpeakCancel})
}

// handleEnd dispatches the browser's end-of-utterance event
func (r *remoteSynthesis) handleEnd(id string) {
	r.mu.Lock()
	onEnd := r.events.OnEnd
	if r.current == "" || id != r.current {
		onEnd = nil
	}
	r.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}

// handleError dispatches a browser synthesis error
func (r *remoteSynthesis) handleError(id string, err error) {
	r.mu.Lock()
	onError := r.events.OnError
	if r.current == "" || id != r.current {
		onError = nil
	}
	r.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

// remoteRecognition is a speech.RecognitionEngine running in the candidate's
// browser. Start/Stop control the browser's SpeechRecognition instance;
// result, end and error events flow back on the connection.
type remoteRecognition struct {
	out sender

	mu     sync.Mutex
	events speech.RecognitionEvents
}

func newRemoteRecognition(out sender) *remoteRecognition {
	return &remoteRecognition{out: out}
}

func (r *remoteRecognition) Start(events speech.RecognitionEvents) error {
	r.mu.Lock()
	r.events = events
	r.mu.Unlock()
	return r.out.send(&ServerMessage{Event: ServerEventListenStart})
}

func (r *remoteRecognition) Stop() {
	_ = r.out.send(&ServerMessage{Event: ServerEventListenStop})
}

func (r *remoteRecognition) handleResult(res transcript.Result) {
	r.mu.Lock()
	onResult := r.events.OnResult
	r.mu.Unlock()
	if onResult != nil {
		onResult(res)
	}
}

func (r *remoteRecognition) handleEnd() {
	r.mu.Lock()
	onEnd := r.events.OnEnd
	r.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}

func (r *remoteRecognition) handleError(err error) {
	r.mu.Lock()
	onError := r.events.OnError
	r.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}
