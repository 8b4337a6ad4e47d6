package live

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hirestream/interview-gateway/internal/agent"
	"github.com/hirestream/interview-gateway/internal/session"
)

// conn wraps a websocket connection with a write mutex. gorilla/websocket
// allows only one concurrent writer; session goroutines and the engines all
// write through here.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws}
}

func (c *conn) send(msg *ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(msg)
}

// connNotifier delivers session events over the connection
type connNotifier struct {
	c *conn
}

func (n *connNotifier) NotifyState(state session.State) {
	_ = n.c.send(&ServerMessage{Event: ServerEventState, State: state.String()})
}

func (n *connNotifier) NotifyLoading(message string) {
	_ = n.c.send(&ServerMessage{Event: ServerEventLoading, Message: message})
}

func (n *connNotifier) NotifyCountdown(remaining int) {
	_ = n.c.send(&ServerMessage{Event: ServerEventCountdown, Countdown: &remaining})
}

func (n *connNotifier) NotifyQuestion(index, total int, text string) {
	_ = n.c.send(&ServerMessage{Event: ServerEventQuestion, Question: &QuestionPayload{
		Index: index,
		Total: total,
		Text:  text,
	}})
}

func (n *connNotifier) NotifyElapsed(seconds int) {
	_ = n.c.send(&ServerMessage{Event: ServerEventElapsed, Elapsed: &seconds})
}

func (n *connNotifier) NotifyVerdict(v *agent.Verdict) {
	_ = n.c.send(&ServerMessage{Event: ServerEventVerdict, Verdict: v})
}

func (n *connNotifier) NotifyError(message string) {
	_ = n.c.send(&ServerMessage{Event: ServerEventError, Message: message})
}

func errUnexpectedEvent(event string) error {
	return fmt.Errorf("unexpected event %q before start", event)
}

func errSynthesis(code string) error {
	return fmt.Errorf("speech synthesis error: %s", code)
}
