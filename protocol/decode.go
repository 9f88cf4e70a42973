package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/4cecoder/snakearena/models"
)

var (
	// ErrInvalidMessage is returned for frames that do not decode or fail validation.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrUnknownMessage is returned for well-formed frames of an unknown type.
	ErrUnknownMessage = errors.New("unknown message type")
)

const (
	MaxNameLength = 24
	DefaultName   = "Player"
)

// wireMessage distinguishes absent fields from zero values.
type wireMessage struct {
	Type  string   `json:"type" msgpack:"type"`
	Name  *string  `json:"name" msgpack:"name"`
	Angle *float64 `json:"angle" msgpack:"angle"`
	Boost *bool    `json:"boost" msgpack:"boost"`
}

// Decode parses and validates one inbound frame. Binary frames are
// MessagePack, text frames are JSON.
func Decode(binary bool, data []byte) (models.ClientMessage, error) {
	if len(data) == 0 {
		return models.ClientMessage{}, fmt.Errorf("%w: empty frame", ErrInvalidMessage)
	}

	var w wireMessage
	var err error
	if binary {
		err = msgpack.Unmarshal(data, &w)
	} else {
		err = json.Unmarshal(data, &w)
	}
	if err != nil {
		return models.ClientMessage{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch w.Type {
	case models.MsgHello:
		return decodeHello(w)
	case models.MsgInput:
		return decodeInput(w)
	case models.MsgRespawn:
		return models.ClientMessage{Type: models.MsgRespawn}, nil
	case "":
		return models.ClientMessage{}, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	default:
		return models.ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownMessage, w.Type)
	}
}

func decodeHello(w wireMessage) (models.ClientMessage, error) {
	name := DefaultName
	if w.Name != nil {
		if trimmed := strings.TrimSpace(*w.Name); trimmed != "" {
			name = trimmed
		}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return models.ClientMessage{}, fmt.Errorf("%w: name longer than %d characters", ErrInvalidMessage, MaxNameLength)
	}
	return models.ClientMessage{Type: models.MsgHello, Name: name}, nil
}

func decodeInput(w wireMessage) (models.ClientMessage, error) {
	if w.Angle == nil {
		return models.ClientMessage{}, fmt.Errorf("%w: input without angle", ErrInvalidMessage)
	}
	angle := *w.Angle
	if math.IsNaN(angle) || math.IsInf(angle, 0) || angle < -math.Pi || angle > math.Pi {
		return models.ClientMessage{}, fmt.Errorf("%w: angle %v out of range", ErrInvalidMessage, angle)
	}
	msg := models.ClientMessage{Type: models.MsgInput, Angle: angle}
	if w.Boost != nil {
		msg.Boost = *w.Boost
	}
	return msg, nil
}
