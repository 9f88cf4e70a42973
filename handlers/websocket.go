package handlers

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/game"
	"github.com/4cecoder/snakearena/models"
	"github.com/4cecoder/snakearena/session"
)

// Game is the part of the game server the transport talks to.
type Game interface {
	Join(ctx context.Context, sessionID string, conn session.Conn, name string) (string, error)
	Input(sessionID string, angle float64, boost bool)
	Respawn(ctx context.Context, sessionID string) error
	Leave(ctx context.Context, sessionID string) error
	Stats() game.Stats
}

// Handler serves the WebSocket endpoint and the status page.
type Handler struct {
	game     Game
	cfg      config.NetworkConfig
	binary   bool
	log      *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler returns a handler. binary selects binary frames for outbound
// messages; inbound frames are accepted in either form.
func NewHandler(g Game, cfg config.NetworkConfig, binary bool, logger *log.Logger) *Handler {
	return &Handler{
		game:   g,
		cfg:    cfg,
		binary: binary,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    1024,
			WriteBufferSize:   1024,
			CheckOrigin:       func(r *http.Request) bool { return true },
			EnableCompression: false,
		},
	}
}

// HandleWebSocket upgrades the request, waits for the hello handshake, joins
// the game and pumps messages until the connection ends.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := NewClient(uuid.NewString(), conn, h.cfg, h.binary, h.log)

	name, err := c.AwaitHello()
	if err != nil {
		h.log.Debug("handshake failed", "client", c.ID, "err", err)
		c.Close()
		return
	}

	ctx := context.Background()
	go c.WritePump()
	snakeID, err := h.game.Join(ctx, c.ID, c, name)
	if err != nil {
		h.log.Warn("join failed", "client", c.ID, "err", err)
		c.Close()
		return
	}
	h.log.Debug("joined", "client", c.ID, "snake", snakeID)

	c.ReadPump(func(msg models.ClientMessage) {
		switch msg.Type {
		case models.MsgInput:
			h.game.Input(c.ID, msg.Angle, msg.Boost)
		case models.MsgRespawn:
			if err := h.game.Respawn(ctx, c.ID); err != nil {
				h.log.Debug("respawn failed", "client", c.ID, "err", err)
			}
		}
	})

	if err := h.game.Leave(ctx, c.ID); err != nil {
		h.log.Debug("leave failed", "client", c.ID, "err", err)
	}
}
