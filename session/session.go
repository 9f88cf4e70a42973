// Package session turns the authoritative world into per-client traffic:
// interest-managed views, delta compression, adaptive update rates and
// backpressure.
package session

import (
	"golang.org/x/time/rate"

	"github.com/4cecoder/snakearena/models"
)

// State is the lifecycle stage of a session.
type State int

const (
	Created State = iota
	Active
	Closing
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Active:
		return "active"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Conn is the transport a session writes to. Send must not block; Buffered
// reports the bytes accepted by Send but not yet written out.
type Conn interface {
	Send(data []byte) error
	Buffered() int
	Close() error
}

// Session is the synchronization bookkeeping of one connected client. It
// outlives the snakes it controls: SnakeID is rebound every respawn.
type Session struct {
	ID      string
	Name    string
	Color   int
	SnakeID string
	Conn    Conn

	state    State
	last     *models.Snapshot // last view actually sent
	lastTick uint64
	hasSent  bool
	divisor  int
	limiter  *rate.Limiter
}

// State returns the lifecycle stage.
func (s *Session) State() State { return s.state }

// Divisor returns the current broadcast divisor.
func (s *Session) Divisor() int { return s.divisor }

// Baseline returns the last view sent to the client, or nil before the first.
func (s *Session) Baseline() *models.Snapshot { return s.last }

// LastTick returns the tick of the last update sent.
func (s *Session) LastTick() uint64 { return s.lastTick }

// resetBaseline forces the next update to be a full state.
func (s *Session) resetBaseline() {
	s.last = nil
	s.hasSent = false
}
