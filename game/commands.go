package game

import (
	"time"

	"github.com/4cecoder/snakearena/session"
)

// Commands sent from network goroutines to the tick goroutine.

type Join struct {
	SessionID string
	Conn      session.Conn
	Name      string
	Reply     chan JoinResult
}

type JoinResult struct {
	SnakeID string
}

type Input struct {
	SessionID string
	Angle     float64
	Boost     bool
	At        time.Time
}

type Respawn struct {
	SessionID string
}

type Leave struct {
	SessionID string
}
