// Package game runs the authoritative arena: one goroutine owns the world,
// the session table and the bots, and everything else talks to it through
// an inbox drained at the start of every tick.
package game

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/4cecoder/snakearena/bots"
	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/loop"
	"github.com/4cecoder/snakearena/session"
	"github.com/4cecoder/snakearena/world"
)

// ErrServerStopped is returned by commands sent after Run has returned.
var ErrServerStopped = errors.New("game server stopped")

const inboxSize = 1024

// Stats is a point-in-time summary published after every tick.
type Stats struct {
	Tick       uint64  `json:"tick"`
	Snakes     int     `json:"snakes"`
	Food       int     `json:"food"`
	Sessions   int     `json:"sessions"`
	TickMillis float64 `json:"tickMillis"`
}

type Server struct {
	cfg      config.Config
	log      *log.Logger
	world    *world.World
	sessions *session.Manager
	bots     *bots.Manager
	rng      *rand.Rand

	inbox chan any
	done  chan struct{}
	stats atomic.Pointer[Stats]
}

// NewServer builds a world from cfg, spawns the configured bots and returns
// a server ready to Run.
func NewServer(cfg config.Config, enc session.Encoder, logger *log.Logger, opts ...world.Option) *Server {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	w := world.New(cfg, opts...)
	s := &Server{
		cfg:      cfg,
		log:      logger,
		world:    w,
		sessions: session.NewManager(w, cfg.Network, enc, logger.WithPrefix("session")),
		bots:     bots.NewManager(rng),
		rng:      rng,
		inbox:    make(chan any, inboxSize),
		done:     make(chan struct{}),
	}
	s.bots.Spawn(w, cfg.BotCount, time.Now())
	s.stats.Store(&Stats{Snakes: w.SnakeCount(), Food: w.FoodCount()})
	return s
}

// Run drives the tick loop until ctx is done, then closes every session.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)
	s.log.Info("game loop started", "tick", s.cfg.TickPeriod, "bots", s.bots.Len())
	err := loop.Run(ctx, s.cfg.TickPeriod, s.cfg.MaxCatchupTicks, s.log.WithPrefix("loop"), s.Step)
	s.sessions.CloseAll()
	s.log.Info("game loop stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Step runs one tick: pending commands, bots, simulation, broadcast.
func (s *Server) Step(dt float64, now time.Time, tick uint64) {
	start := time.Now()
	s.drainInbox()
	s.bots.Update(s.world, now)
	s.world.Update(dt)
	s.sessions.Broadcast(tick, now)
	s.stats.Store(&Stats{
		Tick:       tick,
		Snakes:     s.world.SnakeCount(),
		Food:       s.world.FoodCount(),
		Sessions:   s.sessions.Len(),
		TickMillis: float64(time.Since(start).Microseconds()) / 1000,
	})
}

// Stats returns the summary of the last completed tick.
func (s *Server) Stats() Stats {
	return *s.stats.Load()
}

// Join registers a session and waits for the tick goroutine to bind its
// first snake.
func (s *Server) Join(ctx context.Context, sessionID string, conn session.Conn, name string) (string, error) {
	reply := make(chan JoinResult, 1)
	if err := s.send(ctx, Join{SessionID: sessionID, Conn: conn, Name: name, Reply: reply}); err != nil {
		return "", err
	}
	select {
	case res := <-reply:
		return res.SnakeID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", ErrServerStopped
	}
}

// Input queues a steering input. It never blocks: when the inbox is full the
// input is dropped, as a newer one will follow.
func (s *Server) Input(sessionID string, angle float64, boost bool) {
	select {
	case s.inbox <- Input{SessionID: sessionID, Angle: angle, Boost: boost, At: time.Now()}:
	default:
		s.log.Debug("inbox full, input dropped", "session", sessionID)
	}
}

// Respawn asks for a fresh snake for the session.
func (s *Server) Respawn(ctx context.Context, sessionID string) error {
	return s.send(ctx, Respawn{SessionID: sessionID})
}

// Leave closes the session and releases its snake.
func (s *Server) Leave(ctx context.Context, sessionID string) error {
	return s.send(ctx, Leave{SessionID: sessionID})
}

func (s *Server) send(ctx context.Context, cmd any) error {
	select {
	case <-s.done:
		return ErrServerStopped
	default:
	}
	select {
	case s.inbox <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrServerStopped
	}
}

func (s *Server) drainInbox() {
	for {
		select {
		case cmd := <-s.inbox:
			s.handleCommand(cmd)
		default:
			return
		}
	}
}

func (s *Server) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case Join:
		sess := s.sessions.Open(c.SessionID, c.Conn, c.Name, s.rng.Intn(0xffffff))
		c.Reply <- JoinResult{SnakeID: sess.SnakeID}
	case Input:
		s.sessions.ApplyInput(c.SessionID, c.Angle, c.Boost, c.At)
	case Respawn:
		s.sessions.Respawn(c.SessionID)
	case Leave:
		s.sessions.Close(c.SessionID)
	default:
		s.log.Warn("unknown command", "type", c)
	}
}
