// Package live is the WebSocket surface of the gateway. Each connection
// carries one interview session: the browser relays its speech engine events
// and candidate controls up, and the session streams questions, state changes
// and the final verdict back down.
package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hirestream/interview-gateway/internal/auth"
	"github.com/hirestream/interview-gateway/internal/config"
	"github.com/hirestream/interview-gateway/internal/media"
	"github.com/hirestream/interview-gateway/internal/observability"
	"github.com/hirestream/interview-gateway/internal/recruiter"
	"github.com/hirestream/interview-gateway/internal/session"
	"github.com/hirestream/interview-gateway/internal/speech"
	"github.com/hirestream/interview-gateway/internal/stt"
	"github.com/hirestream/interview-gateway/internal/transcript"
)

// startTimeout bounds how long a connection may sit idle before sending its
// start message
const startTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Browsers connect from the recruiting frontend, which may live on a
		// different origin than the gateway. Token auth gates the session.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Server owns the /streams/interview endpoint
type Server struct {
	cfg      *config.Config
	logger   zerolog.Logger
	verifier *auth.Verifier
	agent    session.Evaluator
	backend  *recruiter.Client
	validate *validator.Validate
}

// NewServer creates the live connection server
func NewServer(cfg *config.Config, agentClient session.Evaluator, backendClient *recruiter.Client, logger zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger.With().Str("component", "live").Logger(),
		verifier: auth.NewVerifier(cfg.JWTSecret),
		agent:    agentClient,
		backend:  backendClient,
		validate: validator.New(),
	}
}

// HandleInterviewWS upgrades the connection and runs the interview session
// over it
func (s *Server) HandleInterviewWS(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	claims, err := s.verifier.ValidateToken(token)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Rejected connection: invalid token")
		observability.RecordError("auth_failed", "live")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if claims.Role != auth.RoleCandidate {
		s.logger.Warn().Str("role", claims.Role).Msg("Rejected connection: not a candidate")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	defer conn.Close()

	correlationID := observability.NewCorrelationID()
	logger := observability.WithCorrelationID(correlationID).
		With().
		Str("candidate_id", claims.UserID).
		Logger()

	c := newConn(conn)

	start, err := s.awaitStart(c)
	if err != nil {
		logger.Warn().Err(err).Msg("Connection closed before a valid start message")
		_ = c.send(&ServerMessage{Event: ServerEventError, Message: "expected a start message"})
		return
	}

	s.runSession(r.Context(), c, token, start, logger)
}

// awaitStart reads and validates the opening message of the connection
func (s *Server) awaitStart(c *conn) (*StartPayload, error) {
	_ = c.ws.SetReadDeadline(time.Now().Add(startTimeout))
	defer c.ws.SetReadDeadline(time.Time{})

	var msg ClientMessage
	if err := c.ws.ReadJSON(&msg); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&msg); err != nil {
		return nil, err
	}
	if msg.Event != ClientEventStart || msg.Start == nil {
		return nil, errUnexpectedEvent(msg.Event)
	}
	if err := s.validate.Struct(msg.Start); err != nil {
		return nil, err
	}
	return msg.Start, nil
}

func (s *Server) runSession(ctx context.Context, c *conn, token string, start *StartPayload, logger zerolog.Logger) {
	var synth *remoteSynthesis
	if start.Capabilities.Synthesis {
		synth = newRemoteSynthesis(c)
	}

	// Prefer the browser's recognition engine; fall back to server-side
	// Deepgram when the browser lacks one and a key is configured.
	var (
		recog    *remoteRecognition
		dgEngine *stt.DeepgramEngine
		engine   speech.RecognitionEngine
	)
	if start.Capabilities.Recognition {
		recog = newRemoteRecognition(c)
		engine = recog
	} else if dgEngine = stt.NewDeepgramEngine(s.cfg, logger); dgEngine != nil {
		engine = dgEngine
		defer dgEngine.Close()
	}

	script := transcript.NewAccumulator()
	listener := speech.NewListener(engine, script, speech.ListenerOptions{
		RetryDelay: time.Duration(s.cfg.ListenerRetryDelay) * time.Millisecond,
		OnTranscript: func(text string) {
			_ = c.send(&ServerMessage{Event: ServerEventTranscript, Transcript: text})
		},
		OnFatal: func(err error) {
			logger.Warn().Err(err).Msg("Voice capture unavailable for this session")
			_ = c.send(&ServerMessage{Event: ServerEventError, Message: "speech recognition unavailable; answers can still be submitted"})
		},
	}, logger)

	var speaker *speech.Speaker
	if synth != nil {
		speaker = speech.NewSpeaker(synth, logger)
	} else {
		speaker = speech.NewSpeaker(nil, logger)
	}

	stream := media.NewStream(func() {
		_ = c.send(&ServerMessage{Event: ServerEventMediaRelease})
	})

	sess := session.New(session.Params{
		ApplicationID: start.ApplicationID,
		JobID:         start.JobID,
		Token:         token,
	}, session.Deps{
		Logger:           logger,
		Agent:            s.agent,
		Backend:          s.backend.WithToken(token),
		Speaker:          speaker,
		Listener:         listener,
		Script:           script,
		Media:            stream,
		Notifier:         &connNotifier{c: c},
		CountdownSeconds: s.cfg.CountdownSeconds,
	})

	logger.Info().
		Str("session_id", sess.ID).
		Str("application_id", start.ApplicationID).
		Bool("browser_synthesis", synth != nil).
		Bool("browser_recognition", recog != nil).
		Msg("Interview connection established")

	go func() {
		if err := sess.Run(ctx); err != nil {
			logger.Warn().Err(err).Msg("Session ended during setup")
		}
	}()

	s.readLoop(c, sess, synth, recog, dgEngine, logger)

	// The connection is gone; a session that has not finished is cancelled so
	// nothing is persisted half-done.
	sess.Cancel()

	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timed out waiting for session teardown")
	}
}

func (s *Server) readLoop(c *conn, sess *session.Session, synth *remoteSynthesis, recog *remoteRecognition, dgEngine *stt.DeepgramEngine, logger zerolog.Logger) {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warn().Err(err).Msg("Failed to parse client message")
			continue
		}
		if err := s.validate.Struct(&msg); err != nil {
			logger.Warn().Err(err).Msg("Invalid client message")
			continue
		}

		switch msg.Event {
		case ClientEventSpeechEnd:
			if synth != nil {
				synth.handleEnd(msg.Utterance)
			}

		case ClientEventSpeechError:
			if synth != nil && msg.Error != nil {
				synth.handleError(msg.Utterance, errSynthesis(msg.Error.Code))
			}

		case ClientEventRecognitionResult:
			if recog != nil && msg.Result != nil {
				recog.handleResult(transcript.Result{
					Text:       msg.Result.Text,
					IsFinal:    msg.Result.IsFinal,
					Confidence: msg.Result.Confidence,
				})
			}

		case ClientEventRecognitionEnd:
			if recog != nil {
				recog.handleEnd()
			}

		case ClientEventRecognitionError:
			if recog != nil && msg.Error != nil {
				recog.handleError(speech.NewRecognitionError(msg.Error.Code))
			}

		case ClientEventSubmitAnswer:
			if err := sess.SubmitAnswer(); err != nil {
				logger.Debug().Err(err).Msg("Submit rejected")
			}

		case ClientEventEndInterview:
			sess.Cancel()

		case ClientEventToggleAudio:
			if msg.Toggle != nil {
				sess.SetAudio(msg.Toggle.Enabled)
			}

		case ClientEventToggleVideo:
			if msg.Toggle != nil {
				sess.SetVideo(msg.Toggle.Enabled)
			}

		case ClientEventAudio:
			if dgEngine != nil && msg.Media != nil {
				audioData, decErr := base64.StdEncoding.DecodeString(msg.Media.Payload)
				if decErr != nil {
					logger.Warn().Err(decErr).Msg("Failed to decode audio payload")
					continue
				}
				if err := dgEngine.WriteAudio(audioData); err != nil {
					logger.Warn().Err(err).Msg("Failed to forward audio")
				}
			}

		default:
			logger.Debug().Str("event", msg.Event).Msg("Unknown client event")
		}

		if sess.State().Terminal() && sess.State() != session.StateCompleted {
			return
		}
	}
}
