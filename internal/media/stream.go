// Package media tracks the candidate's camera/microphone stream for the
// duration of a session. The browser owns the underlying device handles; the
// gateway mirrors their state and tells the client when to release them.
package media

import (
	"sync"
)

// ReleaseFunc tells the client to stop all media tracks. It is invoked at
// most once per stream.
type ReleaseFunc func()

// Stream is the per-session media handle. Mute toggles only affect what the
// client transmits; they never stop the stream or the recognition pipeline.
type Stream struct {
	mu           sync.Mutex
	audioEnabled bool
	videoEnabled bool
	acquired     bool
	released     bool

	releaseOnce sync.Once
	onRelease   ReleaseFunc
}

// NewStream creates a stream handle. onRelease may be nil.
func NewStream(onRelease ReleaseFunc) *Stream {
	return &Stream{
		audioEnabled: true,
		videoEnabled: true,
		onRelease:    onRelease,
	}
}

// Acquire marks the client's media stream as active
func (s *Stream) Acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.released {
		s.acquired = true
	}
}

// Acquired reports whether the client has an active media stream
func (s *Stream) Acquired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

// SetAudio toggles the microphone track and reports the new state
func (s *Stream) SetAudio(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioEnabled = enabled
	return s.audioEnabled
}

// SetVideo toggles the camera track and reports the new state
func (s *Stream) SetVideo(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoEnabled = enabled
	return s.videoEnabled
}

// AudioEnabled reports whether the microphone track is live
func (s *Stream) AudioEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioEnabled
}

// VideoEnabled reports whether the camera track is live
func (s *Stream) VideoEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoEnabled
}

// Release stops all tracks exactly once. Safe to call from any session
// teardown path.
func (s *Stream) Release() {
	s.mu.Lock()
	s.released = true
	s.acquired = false
	s.mu.Unlock()

	s.releaseOnce.Do(func() {
		if s.onRelease != nil {
			s.onRelease()
		}
	})
}

// Released reports whether the stream has been released
func (s *Stream) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
