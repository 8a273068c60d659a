package com

import (
	"errors"
	"fmt"
	"sync"

	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/logger"
	"github.com/turnroom/turnroom/pkg/network/websocket"
)

// SocketClient is one side of a packet connection.
type SocketClient struct {
	id    Uid
	sock  *websocket.WS
	codec Codec
	log   *logger.Logger // a special logger for showing x -> y directions

	server bool

	mu       sync.Mutex
	onPacket func(in api.In) error
}

func NewConnection(sock *websocket.WS, codec Codec, id Uid, isServer bool, log *logger.Logger) *SocketClient {
	if id.IsNil() {
		id = NewUid()
	}
	if codec == nil {
		codec = JsonCodec{}
	}
	dir := "→"
	if isServer {
		dir = "←"
	}
	dirClLog := log.Extend(log.With().
		Str(logger.ClientField, id.Short()).
		Str(logger.DirectionField, dir),
	)
	dirClLog.Debug().Str("codec", codec.Name()).Msg("Connect")
	c := &SocketClient{sock: sock, id: id, codec: codec, log: dirClLog, server: isServer}
	sock.OnMessage = c.handleMessage
	return c
}

// OnPacket sets the handler for inbound packets.
// It is called from the socket reader goroutine.
func (c *SocketClient) OnPacket(fn func(in api.In) error) {
	c.mu.Lock()
	c.onPacket = fn
	c.mu.Unlock()
}

func (c *SocketClient) handleMessage(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Msgf("packet handler panic: %v", r)
		}
	}()
	in, err := c.codec.Decode(message)
	if err != nil {
		c.log.Warn().Err(fmt.Errorf("%w: %v", api.ErrMalformed, err)).Msg("decode")
		return
	}
	c.log.Debug().Str(logger.DirectionField, "←").Msgf("%v", in.T)
	c.mu.Lock()
	fn := c.onPacket
	c.mu.Unlock()
	if fn == nil {
		return
	}
	if err = fn(in); err != nil {
		c.log.Error().Err(err).Msgf("%v", in.T)
	}
}

// Notify just sends a message and goes further.
// On the server side a peer that can't keep up with its queue
// gets disconnected, the client side waits for the queue.
func (c *SocketClient) Notify(t api.PT, payload any) error {
	c.log.Debug().Str(logger.DirectionField, "→").Msgf("%v", t)
	data, err := c.codec.Encode(api.Out{T: t, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode %v: %w", t, err)
	}
	if !c.server {
		return c.sock.Send(c.codec.FrameType(), data)
	}
	err = c.sock.Write(c.codec.FrameType(), data)
	if errors.Is(err, websocket.ErrQueueFull) {
		c.log.Warn().Msg("slow consumer, closing")
		c.Disconnect()
	}
	return err
}

func (c *SocketClient) Disconnect() {
	c.sock.Close()
	c.log.Debug().Str(logger.DirectionField, "x").Msg("Close")
}

func (c *SocketClient) Id() Uid               { return c.id }
func (c *SocketClient) Codec() Codec          { return c.codec }
func (c *SocketClient) Listen() chan struct{} { return c.sock.Listen() }
func (c *SocketClient) String() string        { return c.Id().String() }
func (c *SocketClient) RemoteAddr() string    { return c.sock.RemoteAddr() }
