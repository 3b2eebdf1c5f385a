// Package ws wraps a gorilla WebSocket connection for use as a session
// attachment. The relay writes to a socket from several goroutines (peer
// forwards, sweeper closes, relay notifications), so every write goes
// through one mutex per peer.
package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var errClosed = errors.New("ws: connection closed")

type Peer struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func NewPeer(conn *websocket.Conn) *Peer {
	return &Peer{conn: conn}
}

// Send writes a single text frame. Frames from one sender reach the wire in
// call order because the mutex serializes them.
func (p *Peer) Send(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(frame)
}

// Attach runs register while the write mutex is held and, on success,
// writes greeting before releasing it. register is what publishes the peer
// to forwarding goroutines, so the greeting always reaches the wire ahead
// of any frame they forward here.
func (p *Peer) Attach(register func() bool, greeting []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !register() {
		return false
	}
	p.write(greeting)
	return true
}

func (p *Peer) write(frame []byte) error {
	if p.closed {
		return errClosed
	}
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close sends a close frame with the given code and reason, then tears the
// connection down. Safe to call more than once and from any goroutine.
func (p *Peer) Close(code int, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	msg := websocket.FormatCloseMessage(code, reason)
	p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	p.conn.Close()
}

// ReadFrame blocks for the next inbound frame. Binary frames are passed
// through like text; the relay does not care about the opcode of opaque
// payloads.
func (p *Peer) ReadFrame() ([]byte, error) {
	_, data, err := p.conn.ReadMessage()
	return data, err
}
