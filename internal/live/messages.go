package live

import (
	"github.com/hirestream/interview-gateway/internal/agent"
)

// Client event names. The browser relays its Web Speech API activity and the
// candidate's controls as these events.
const (
	ClientEventStart             = "start"
	ClientEventSpeechEnd         = "speech_end"
	ClientEventSpeechError       = "speech_error"
	ClientEventRecognitionResult = "recognition_result"
	ClientEventRecognitionEnd    = "recognition_end"
	ClientEventRecognitionError  = "recognition_error"
	ClientEventSubmitAnswer      = "submit_answer"
	ClientEventEndInterview      = "end_interview"
	ClientEventToggleAudio       = "toggle_audio"
	ClientEventToggleVideo       = "toggle_video"
	ClientEventAudio             = "audio"
)

// Server event names
const (
	ServerEventState        = "state"
	ServerEventLoading      = "loading"
	ServerEventCountdown    = "countdown"
	ServerEventQuestion     = "question"
	ServerEventSpeak        = "speak"
	ServerEventSpeakCancel  = "speak_cancel"
	ServerEventListenStart  = "listen_start"
	ServerEventListenStop   = "listen_stop"
	ServerEventTranscript   = "transcript"
	ServerEventElapsed      = "elapsed"
	ServerEventVerdict      = "verdict"
	ServerEventMediaRelease = "media_release"
	ServerEventError        = "error"
)

// ClientMessage is a message from the browser
type ClientMessage struct {
	Event string `json:"event" validate:"required"`
	// Utterance echoes the id from the speak message on speech_end and
	// speech_error events
	Utterance string             `json:"utterance,omitempty"`
	Start     *StartPayload      `json:"start,omitempty"`
	Result    *ResultPayload     `json:"result,omitempty"`
	Error     *SpeechErrorInfo   `json:"error,omitempty"`
	Toggle    *TogglePayload     `json:"toggle,omitempty"`
	Media     *AudioMediaPayload `json:"media,omitempty"`
}

// StartPayload opens a session; it must be the first message on the connection
type StartPayload struct {
	ApplicationID string       `json:"applicationId" validate:"required"`
	JobID         string       `json:"jobId" validate:"required"`
	Capabilities  Capabilities `json:"capabilities"`
}

// Capabilities describe which speech engines the browser can provide
type Capabilities struct {
	Synthesis   bool `json:"synthesis"`
	Recognition bool `json:"recognition"`
}

// ResultPayload carries one recognition result from the browser engine
type ResultPayload struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"isFinal"`
	Confidence float64 `json:"confidence"`
}

// SpeechErrorInfo carries a Web Speech API error code
type SpeechErrorInfo struct {
	Code string `json:"code" validate:"required"`
}

// TogglePayload carries a media track toggle
type TogglePayload struct {
	Enabled bool `json:"enabled"`
}

// AudioMediaPayload carries base64-encoded microphone audio for server-side
// recognition
type AudioMediaPayload struct {
	Payload string `json:"payload" validate:"required,base64"`
}

// ServerMessage is a message to the browser
type ServerMessage struct {
	Event      string           `json:"event"`
	Utterance  string           `json:"utterance,omitempty"`
	State      string           `json:"state,omitempty"`
	Message    string           `json:"message,omitempty"`
	Countdown  *int             `json:"countdown,omitempty"`
	Elapsed    *int             `json:"elapsed,omitempty"`
	Question   *QuestionPayload `json:"question,omitempty"`
	Text       string           `json:"text,omitempty"`
	Transcript string           `json:"transcript,omitempty"`
	Verdict    *agent.Verdict   `json:"verdict,omitempty"`
}

// QuestionPayload announces the active question
type QuestionPayload struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text"`
}
