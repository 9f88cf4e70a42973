package models

// Message kinds. Outbound kinds are sent by the server; inbound kinds arrive
// from clients.
const (
	MsgWelcome    = "welcome"
	MsgState      = "state"
	MsgStateDelta = "state_delta"
	MsgBatch      = "batch"

	MsgHello   = "hello"
	MsgInput   = "input"
	MsgRespawn = "respawn"
)

// Message is any outbound message.
type Message interface {
	MessageType() string
}

// Welcome tells a client which snake it controls and how big the world is.
// It is re-sent every time the session is rebound to a new snake.
type Welcome struct {
	Type  string      `json:"type" msgpack:"type"`
	ID    string      `json:"id" msgpack:"id"`
	World WorldBounds `json:"world" msgpack:"world"`
}

func NewWelcome(id string, world WorldBounds) Welcome {
	return Welcome{Type: MsgWelcome, ID: id, World: world}
}

func (Welcome) MessageType() string { return MsgWelcome }

// State carries a full snapshot that replaces all client-side state.
type State struct {
	Type     string   `json:"type" msgpack:"type"`
	Snapshot Snapshot `json:"snapshot" msgpack:"snapshot"`
}

func NewState(snapshot Snapshot) State {
	return State{Type: MsgState, Snapshot: snapshot}
}

func (State) MessageType() string { return MsgState }

// StateDelta carries only the snakes that changed since the last snapshot
// sent to this client, the ids that left the view, and the full visible food list.
type StateDelta struct {
	Type    string       `json:"type" msgpack:"type"`
	Tick    uint64       `json:"tick" msgpack:"tick"`
	Now     int64        `json:"now" msgpack:"now"`
	World   WorldBounds  `json:"world" msgpack:"world"`
	Snakes  []SnakeState `json:"snakes" msgpack:"snakes"`
	Removed []string     `json:"removed,omitempty" msgpack:"removed,omitempty"`
	Food    []FoodState  `json:"food" msgpack:"food"`
}

func (StateDelta) MessageType() string { return MsgStateDelta }

// Batch groups several messages queued for one client within a tick into a
// single write.
type Batch struct {
	Type     string    `json:"type" msgpack:"type"`
	Messages []Message `json:"messages" msgpack:"messages"`
}

func NewBatch(messages []Message) Batch {
	return Batch{Type: MsgBatch, Messages: messages}
}

func (Batch) MessageType() string { return MsgBatch }

// ClientMessage is an inbound message after decoding. Which fields are
// meaningful depends on Type.
type ClientMessage struct {
	Type  string  `json:"type" msgpack:"type"`
	Name  string  `json:"name,omitempty" msgpack:"name,omitempty"`
	Angle float64 `json:"angle" msgpack:"angle"`
	Boost bool    `json:"boost,omitempty" msgpack:"boost,omitempty"`
}
