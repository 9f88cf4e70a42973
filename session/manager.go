package session

import (
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/models"
)

// World is the part of the simulation a Manager reads from and binds snakes in.
type World interface {
	Spawn(name string, color int) string
	Respawn(oldID, name string, color int) string
	Remove(id string)
	Has(id string) bool
	Snake(id string) (*models.Snake, bool)
	ApplyInput(id string, desiredAngle float64, boosting bool)
	NearestHeadDistance(id string) float64
	View(tick uint64, now time.Time, cx, cy, radius float64) models.Snapshot
	Bounds() models.WorldBounds
}

// Encoder serializes outbound messages.
type Encoder interface {
	Encode(msg models.Message) ([]byte, error)
}

// Outbound is one planned write: a single message, possibly a batch, for one
// session.
type Outbound struct {
	SessionID string
	Conn      Conn
	Message   models.Message
}

// Manager owns the session table. Like the world, it is driven from the tick
// goroutine only.
type Manager struct {
	world    World
	cfg      config.NetworkConfig
	enc      Encoder
	log      *log.Logger
	sessions map[string]*Session
	queue    *MessageQueue
}

func NewManager(w World, cfg config.NetworkConfig, enc Encoder, logger *log.Logger) *Manager {
	return &Manager{
		world:    w,
		cfg:      cfg,
		enc:      enc,
		log:      logger,
		sessions: make(map[string]*Session),
		queue:    NewMessageQueue(),
	}
}

// Open creates a session for a client that completed its handshake, binds a
// fresh snake to it and queues the welcome.
func (m *Manager) Open(id string, conn Conn, name string, color int) *Session {
	burst := int(m.cfg.InputRateLimit)
	if burst < 1 {
		burst = 1
	}
	s := &Session{
		ID:      id,
		Name:    name,
		Color:   color,
		Conn:    conn,
		state:   Created,
		divisor: 1,
		limiter: rate.NewLimiter(rate.Limit(m.cfg.InputRateLimit), burst),
	}
	s.SnakeID = m.world.Spawn(name, color)
	m.sessions[id] = s
	m.queue.Enqueue(id, models.NewWelcome(s.SnakeID, m.world.Bounds()))
	s.state = Active
	m.log.Info("session opened", "session", id, "snake", s.SnakeID, "name", name)
	return s
}

// Close ends a session, releases its snake and closes the connection.
// Unknown ids are ignored.
func (m *Manager) Close(id string) {
	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.state = Closing
	m.world.Remove(s.SnakeID)
	m.queue.ClearQueue(id)
	delete(m.sessions, id)
	if err := s.Conn.Close(); err != nil {
		m.log.Debug("close connection", "session", id, "err", err)
	}
	m.log.Info("session closed", "session", id, "snake", s.SnakeID)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	for id := range m.sessions {
		m.Close(id)
	}
}

// Respawn replaces the session's snake with a fresh one and queues a new
// welcome.
func (m *Manager) Respawn(id string) {
	s, ok := m.sessions[id]
	if !ok || s.state != Active {
		return
	}
	s.SnakeID = m.world.Respawn(s.SnakeID, s.Name, s.Color)
	m.rebind(s)
}

// ApplyInput steers the session's current snake. Inputs beyond the session's
// rate limit are dropped; the return value reports whether the input was
// accepted.
func (m *Manager) ApplyInput(id string, angle float64, boost bool, at time.Time) bool {
	s, ok := m.sessions[id]
	if !ok || s.state != Active {
		return false
	}
	if !s.limiter.AllowN(at, 1) {
		return false
	}
	m.world.ApplyInput(s.SnakeID, angle, boost)
	return true
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	s, ok := m.sessions[id]
	return s, ok
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	return len(m.sessions)
}

// Broadcast plans and delivers this tick's updates.
func (m *Manager) Broadcast(tick uint64, now time.Time) {
	m.Deliver(m.Plan(tick, now))
}

// Plan decides what every session is sent this tick and advances the
// session bookkeeping accordingly. It performs no I/O. A fault in one session
// is logged and skips only that session.
func (m *Manager) Plan(tick uint64, now time.Time) []Outbound {
	out := make([]Outbound, 0, len(m.sessions))
	for _, s := range m.sessions {
		if msg, ok := m.planSession(s, tick, now); ok {
			out = append(out, Outbound{SessionID: s.ID, Conn: s.Conn, Message: msg})
		}
	}
	return out
}

func (m *Manager) planSession(s *Session, tick uint64, now time.Time) (msg models.Message, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("session plan failed", "session", s.ID, "tick", tick, "err", r)
			msg, ok = nil, false
		}
	}()

	if s.state != Active {
		return nil, false
	}
	if !m.world.Has(s.SnakeID) {
		s.SnakeID = m.world.Respawn(s.SnakeID, s.Name, s.Color)
		m.rebind(s)
	}
	if m.overloaded(s.Conn) {
		return nil, false
	}

	s.divisor = RateFor(m.world.NearestHeadDistance(s.SnakeID), m.cfg.UpdateRates, m.cfg.Distances)
	if s.hasSent && tick-s.lastTick < uint64(s.divisor) {
		return nil, false
	}

	snake, found := m.world.Snake(s.SnakeID)
	if !found {
		return nil, false
	}
	head := snake.Head()
	view := m.world.View(tick, now, head.X, head.Y, m.cfg.ViewRadius)
	update := Choose(s.last, view, m.cfg.DeltaEpsilon)

	s.last = &view
	s.lastTick = tick
	s.hasSent = true

	m.queue.Enqueue(s.ID, update)
	pending := m.queue.Drain(s.ID)
	if len(pending) == 1 {
		return pending[0], true
	}
	return models.NewBatch(pending), true
}

// Deliver encodes and sends planned messages. Failures are logged and
// dropped; a client that falls behind is caught by backpressure next tick.
func (m *Manager) Deliver(out []Outbound) {
	for _, o := range out {
		m.deliver(o)
	}
}

func (m *Manager) deliver(o Outbound) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("session send failed", "session", o.SessionID, "err", r)
		}
	}()

	data, err := m.enc.Encode(o.Message)
	if err != nil {
		m.log.Debug("encode message", "session", o.SessionID, "type", o.Message.MessageType(), "err", err)
		return
	}
	if err := o.Conn.Send(data); err != nil {
		m.log.Debug("send message", "session", o.SessionID, "err", err)
	}
}

func (m *Manager) rebind(s *Session) {
	s.resetBaseline()
	m.queue.Enqueue(s.ID, models.NewWelcome(s.SnakeID, m.world.Bounds()))
	m.log.Debug("session rebound", "session", s.ID, "snake", s.SnakeID)
}

func (m *Manager) overloaded(c Conn) bool {
	limit := float64(m.cfg.BackpressureBytes) * m.cfg.BackpressureThreshold
	return float64(c.Buffered()) > limit
}
