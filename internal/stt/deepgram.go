// Package stt provides a server-side recognition engine backed by Deepgram's
// streaming API. It is the degraded-capability path for browsers without a
// native SpeechRecognition implementation: the client relays raw microphone
// audio and the gateway produces the transcript.
package stt

import (
	"fmt"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/hirestream/interview-gateway/internal/config"
	"github.com/hirestream/interview-gateway/internal/observability"
	"github.com/hirestream/interview-gateway/internal/resilience"
	"github.com/hirestream/interview-gateway/internal/speech"
	"github.com/hirestream/interview-gateway/internal/transcript"

	"context"
)

// messageCallbackHandler implements the LiveMessageCallback interface. It
// embeds the default handler and overrides only Message and Error.
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	handler      func(*msginterfaces.MessageResponse)
	errorHandler func(*msginterfaces.ErrorResponse) error
}

func (m *messageCallbackHandler) Message(message *msginterfaces.MessageResponse) error {
	m.handler(message)
	return nil
}

func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	if m.errorHandler != nil {
		return m.errorHandler(errorResponse)
	}
	return m.DefaultCallbackHandler.Error(errorResponse)
}

// DeepgramEngine is a speech.RecognitionEngine streaming candidate audio to
// Deepgram. The session's Listener owns the listening window; the engine only
// manages its own transport, reconnecting on connection loss.
type DeepgramEngine struct {
	cfg    *config.Config
	logger zerolog.Logger

	mu       sync.RWMutex
	client   *listenClient.WSCallback
	events   speech.RecognitionEvents
	isActive bool

	ctx     context.Context
	cancel  context.CancelFunc
	breaker *resilience.CircuitBreaker
}

// NewDeepgramEngine creates a Deepgram recognition engine, or nil when no API
// key is configured so sessions fall back to browser recognition.
func NewDeepgramEngine(cfg *config.Config, logger zerolog.Logger) *DeepgramEngine {
	if cfg.DeepgramAPIKey == "" {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DeepgramEngine{
		cfg:    cfg,
		logger: logger.With().Str("component", "deepgram").Logger(),
		ctx:    ctx,
		cancel: cancel,
		breaker: resilience.NewCircuitBreaker(
			"deepgram",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}
}

// Start opens a streaming transcription session and begins delivering results
// through events
func (d *DeepgramEngine) Start(events speech.RecognitionEvents) error {
	d.mu.Lock()
	d.events = events
	d.mu.Unlock()
	return d.connect()
}

func (d *DeepgramEngine) connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isActive {
		return nil
	}

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.cfg.DeepgramModel,
		Language:       d.cfg.DeepgramLanguage,
		Punctuate:      true,
		InterimResults: true,
		Encoding:       d.cfg.DeepgramEncoding,
		Channels:       1,
		SampleRate:     d.cfg.DeepgramSampleRate,
	}

	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		handler:                d.handleMessage,
		errorHandler: func(errorResponse *msginterfaces.ErrorResponse) error {
			d.logger.Error().Interface("response", errorResponse).Msg("Deepgram error")

			d.breaker.RecordResult(false)
			observability.UpdateCircuitBreakerState(d.breaker.Name(), int(d.breaker.State()))
			observability.IncrementCircuitBreakerFailures(d.breaker.Name())

			select {
			case <-d.ctx.Done():
				return nil
			default:
				d.mu.Lock()
				d.isActive = false
				events := d.events
				d.mu.Unlock()

				go d.attemptReconnect()

				if events.OnError != nil {
					events.OnError(&speech.RecognitionError{Code: "network"})
				}
			}
			return nil
		},
	}

	client, err := listenClient.NewWSUsingCallback(
		d.ctx,
		d.cfg.DeepgramAPIKey,
		nil,
		tOptions,
		callback,
	)
	if err != nil {
		return fmt.Errorf("failed to create Deepgram client: %w", err)
	}

	d.client = client
	d.isActive = true

	d.breaker.RecordResult(true)
	observability.UpdateCircuitBreakerState(d.breaker.Name(), int(d.breaker.State()))

	d.logger.Info().Str("model", d.cfg.DeepgramModel).Str("language", d.cfg.DeepgramLanguage).Msg("Deepgram streaming started")
	return nil
}

func (d *DeepgramEngine) handleMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil {
		return
	}

	switch msg.Type {
	case "Metadata":
		d.logger.Debug().Msg("Deepgram metadata received")

	case "SpeechStarted", "UtteranceEnd":
		// Silence boundaries are irrelevant here: the candidate decides when
		// the answer ends, not the audio.

	case "Results", "Message":
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			return
		}

		d.mu.RLock()
		onResult := d.events.OnResult
		d.mu.RUnlock()
		if onResult == nil {
			return
		}

		onResult(transcript.Result{
			Text:       alt.Transcript,
			IsFinal:    msg.IsFinal,
			Confidence: alt.Confidence,
		})

	default:
		d.logger.Debug().Str("type", msg.Type).Msg("Unhandled Deepgram message type")
	}
}

// WriteAudio forwards an audio chunk from the client to Deepgram
func (d *DeepgramEngine) WriteAudio(audioData []byte) error {
	err := d.breaker.Call(func() error {
		d.mu.RLock()
		active := d.isActive
		client := d.client
		d.mu.RUnlock()

		if !active || client == nil {
			return fmt.Errorf("deepgram engine is not active")
		}

		if _, err := client.Write(audioData); err != nil {
			go d.attemptReconnect()
			return fmt.Errorf("failed to send audio to Deepgram: %w", err)
		}
		return nil
	})

	observability.UpdateCircuitBreakerState(d.breaker.Name(), int(d.breaker.State()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures(d.breaker.Name())
	}
	return err
}

func (d *DeepgramEngine) attemptReconnect() {
	select {
	case <-d.ctx.Done():
		return
	default:
	}

	d.mu.RLock()
	alreadyActive := d.isActive
	d.mu.RUnlock()
	if alreadyActive {
		return
	}

	err := resilience.Reconnect(d.ctx, d.connect, &resilience.ReconnectConfig{
		MaxAttempts: d.cfg.ReconnectMaxAttempts,
		Backoff:     time.Duration(d.cfg.ReconnectBackoff) * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	})
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to reconnect Deepgram engine")
		d.mu.RLock()
		onError := d.events.OnError
		d.mu.RUnlock()
		if onError != nil {
			onError(&speech.RecognitionError{Code: "service-not-allowed"})
		}
		return
	}
	d.logger.Info().Msg("Reconnected Deepgram engine")
}

// Stop ends the streaming session. Idempotent.
func (d *DeepgramEngine) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isActive {
		return
	}
	d.client.Finish()
	d.isActive = false
	d.logger.Info().Msg("Deepgram streaming stopped")
}

// Close releases the engine and stops any reconnection attempts
func (d *DeepgramEngine) Close() {
	d.cancel()
	d.Stop()
}
