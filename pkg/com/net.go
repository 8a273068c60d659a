package com

import (
	"net/http"
	"net/url"

	"github.com/turnroom/turnroom/pkg/logger"
	"github.com/turnroom/turnroom/pkg/network/websocket"
)

type (
	Connector struct {
		tag  string
		wu   *websocket.Upgrader
		opts websocket.Options
	}
	Option = func(c *Connector)
)

func WithOrigin(url string) Option             { return func(c *Connector) { c.wu = websocket.NewUpgrader(url) } }
func WithTag(tag string) Option                { return func(c *Connector) { c.tag = tag } }
func WithSocket(opts websocket.Options) Option { return func(c *Connector) { c.opts = opts } }

func NewConnector(opts ...Option) *Connector {
	c := &Connector{}
	for _, opt := range opts {
		opt(c)
	}
	if c.wu == nil {
		c.wu = &websocket.DefaultUpgrader
	}
	return c
}

// NewServer upgrades an HTTP request into a server side packet connection.
func (co *Connector) NewServer(w http.ResponseWriter, r *http.Request, codec Codec, log *logger.Logger) (*SocketClient, error) {
	ws, err := co.wu.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	sock := websocket.NewServerWithConn(ws, co.opts, co.withTag(log))
	return NewConnection(sock, codec, NewUid(), true, co.withTag(log)), nil
}

// NewClient dials a packet connection.
func (co *Connector) NewClient(address url.URL, codec Codec, log *logger.Logger) (*SocketClient, error) {
	sock, err := websocket.NewClient(address, co.opts, co.withTag(log))
	if err != nil {
		return nil, err
	}
	return NewConnection(sock, codec, NilUid, false, co.withTag(log)), nil
}

func (co *Connector) withTag(log *logger.Logger) *logger.Logger {
	if log == nil {
		log = logger.Default()
	}
	if co.tag == "" {
		return log
	}
	return log.Extend(log.With().Str(logger.TagField, co.tag))
}
