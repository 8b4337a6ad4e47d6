package transcript

import (
	"strings"
	"sync"
)

// Result represents a single speech recognition result
type Result struct {
	// Text is the transcribed text
	Text string

	// IsFinal indicates if this is a final result (true) or interim (false).
	// Final results are stable and will not be revised by the engine.
	IsFinal bool

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64
}

// Accumulator merges a stream of final and interim recognition results into
// a stable answer string. Final text is append-only: once confirmed it is
// never rewritten by later interim results, so the accumulated answer
// survives recognition engine restarts.
type Accumulator struct {
	mu        sync.Mutex
	confirmed strings.Builder
	interim   string
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Apply folds one recognition result into the transcript. A final result is
// appended permanently (with a separating space); an interim result replaces
// the previous interim text wholesale.
func (a *Accumulator) Apply(r Result) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r.IsFinal {
		a.confirmed.WriteString(r.Text)
		a.confirmed.WriteString(" ")
		// The interim text was the provisional version of what just
		// finalized; drop it so it is not double-counted.
		a.interim = ""
		return
	}
	a.interim = r.Text
}

// Text returns the current best-guess answer: confirmed text plus whatever
// is still being spoken right now.
func (a *Accumulator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.TrimSpace(a.confirmed.String() + a.interim)
}

// Confirmed returns only the permanent portion of the transcript
func (a *Accumulator) Confirmed() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.TrimSpace(a.confirmed.String())
}

// Reset clears both the confirmed and interim text. Called once per
// question, before listening (re)starts.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.confirmed.Reset()
	a.interim = ""
}
