// Package protocol is the wire boundary: outbound message codecs and the
// decoding and validation of everything clients send.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/4cecoder/snakearena/models"
)

// Codec serializes outbound messages. Binary reports whether frames should be
// sent as binary rather than text.
type Codec interface {
	Encode(msg models.Message) ([]byte, error)
	Binary() bool
}

// MsgpackCodec encodes messages as MessagePack.
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(msg models.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("trying to encode nil message")
	}
	return msgpack.Marshal(msg)
}

func (MsgpackCodec) Binary() bool { return true }

// JSONCodec encodes messages as JSON text.
type JSONCodec struct{}

func (JSONCodec) Encode(msg models.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("trying to encode nil message")
	}
	return json.Marshal(msg)
}

func (JSONCodec) Binary() bool { return false }

// NewCodec returns the codec registered under name ("msgpack" or "json").
func NewCodec(name string) (Codec, error) {
	switch name {
	case "msgpack", "":
		return MsgpackCodec{}, nil
	case "json":
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
