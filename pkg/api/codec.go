package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes downstream frames. A connection picks one at upgrade time.
type Codec interface {
	Name() string
	// Binary reports whether frames must travel as binary websocket messages.
	Binary() bool
	Encode(msg ServerMessage) ([]byte, error)
	Decode(data []byte, msg *ServerMessage) error
}

type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(msg ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Decode(data []byte, msg *ServerMessage) error {
	return json.Unmarshal(data, msg)
}

// MsgpackCodec trades readability for smaller frames.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(msg ServerMessage) ([]byte, error) {
	return msgpack.Marshal(&msg)
}

func (MsgpackCodec) Decode(data []byte, msg *ServerMessage) error {
	return msgpack.Unmarshal(data, msg)
}

// CodecByName resolves the ?codec= query value. Empty means JSON.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}
