package com

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/network/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns packets into websocket frames and back.
type Codec interface {
	Name() string
	FrameType() int
	Encode(out api.Out) ([]byte, error)
	Decode(data []byte) (api.In, error)
	// Unwrap decodes a packet payload into v.
	Unwrap(payload []byte, v any) error
}

const (
	CodecJson    = "json"
	CodecMsgpack = "msgpack"
)

// CodecByName returns a codec or JSON for the empty name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJson:
		return JsonCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// Unwrap decodes a payload with the codec into a new T.
func Unwrap[T any](c Codec, payload []byte) (*T, error) {
	out := new(T)
	if len(payload) == 0 {
		return out, nil
	}
	if err := c.Unwrap(payload, out); err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrMalformed, err)
	}
	return out, nil
}

type JsonCodec struct{}

type jsonIn struct {
	Id      string          `json:"id,omitempty"`
	T       api.PT          `json:"t"`
	Payload json.RawMessage `json:"p,omitempty"`
}

func (JsonCodec) Name() string                       { return CodecJson }
func (JsonCodec) FrameType() int                     { return websocket.TextMessage }
func (JsonCodec) Encode(out api.Out) ([]byte, error) { return json.Marshal(out) }
func (JsonCodec) Unwrap(payload []byte, v any) error { return json.Unmarshal(payload, v) }

func (JsonCodec) Decode(data []byte) (api.In, error) {
	var in jsonIn
	if err := json.Unmarshal(data, &in); err != nil {
		return api.In{}, err
	}
	return api.In{Id: in.Id, T: in.T, Payload: in.Payload}, nil
}

// MsgpackCodec is a binary codec for non-browser clients.
// Opaque signaling payloads (api.Blob) stay JSON text inside.
type MsgpackCodec struct{}

type msgpackIn struct {
	Id      string             `msgpack:"id,omitempty"`
	T       api.PT             `msgpack:"t"`
	Payload msgpack.RawMessage `msgpack:"p,omitempty"`
}

func (MsgpackCodec) Name() string   { return CodecMsgpack }
func (MsgpackCodec) FrameType() int { return websocket.BinaryMessage }

// payloads share the json struct tags with the JSON codec
const msgpackTag = "json"

func (MsgpackCodec) Encode(out api.Out) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(msgpackTag)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unwrap(payload []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.SetCustomStructTag(msgpackTag)
	return dec.Decode(v)
}

func (MsgpackCodec) Decode(data []byte) (api.In, error) {
	var in msgpackIn
	if err := msgpack.Unmarshal(data, &in); err != nil {
		return api.In{}, err
	}
	return api.In{Id: in.Id, T: in.T, Payload: in.Payload}, nil
}
