package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/turnroom/turnroom/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	pongTime  = 60 * time.Second
	pingTime  = pongTime * 9 / 10
	writeWait = 10 * time.Second

	defaultReadLimit = 64 * 1024
	defaultQueue     = 64
)

const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

var (
	ErrClosed    = errors.New("connection closed")
	ErrQueueFull = errors.New("send queue is full")
)

type Upgrader = websocket.Upgrader

var DefaultUpgrader = Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	WriteBufferPool: &sync.Pool{},
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewUpgrader makes an upgrader accepting only the given origin.
// Any origin is allowed with the empty value.
func NewUpgrader(origin string) *Upgrader {
	u := DefaultUpgrader
	if origin != "" {
		u.CheckOrigin = func(r *http.Request) bool { return r.Header.Get("Origin") == origin }
	}
	return &u
}

// Options tune a socket, zero values mean defaults.
type Options struct {
	ReadLimit int64
	// Rate is the number of inbound messages per second,
	// the reader waits when it is over the limit. Zero disables the limit.
	Rate      float64
	Burst     int
	SendQueue int
}

type frame struct {
	t    int
	data []byte
}

// WS is a websocket connection with serialized reads and writes.
type WS struct {
	conn *websocket.Conn
	send chan frame

	// OnMessage is called for every inbound message from the reader goroutine.
	OnMessage func(message []byte)

	limiter   *rate.Limiter
	readLimit int64
	pingPong  bool
	log       *logger.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	quit     chan struct{}
	stop     sync.Once
	listen   sync.Once
	shutdown sync.WaitGroup
	Done     chan struct{}
}

// NewServerWithConn wraps an upgraded connection on the server side,
// the server side pings its peers.
func NewServerWithConn(conn *websocket.Conn, opts Options, log *logger.Logger) *WS {
	return newSocket(conn, true, opts, log)
}

func NewClient(address url.URL, opts Options, log *logger.Logger) (*WS, error) {
	conn, _, err := websocket.DefaultDialer.Dial(address.String(), nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, false, opts, log), nil
}

func newSocket(conn *websocket.Conn, pingPong bool, opts Options, log *logger.Logger) *WS {
	if log == nil {
		log = logger.Default()
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = defaultQueue
	}
	ctx, cancel := context.WithCancel(context.Background())
	ws := &WS{
		ctx:       ctx,
		cancel:    cancel,
		conn:      conn,
		send:      make(chan frame, opts.SendQueue),
		readLimit: opts.ReadLimit,
		pingPong:  pingPong,
		log:       log,
		quit:      make(chan struct{}),
		Done:      make(chan struct{}),
	}
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		ws.limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	return ws
}

// Listen starts the socket pumps.
// The returned channel is closed when the connection is gone.
func (ws *WS) Listen() chan struct{} {
	ws.listen.Do(func() {
		ws.shutdown.Add(2)
		go ws.writer()
		go ws.reader()
		go func() {
			ws.shutdown.Wait()
			close(ws.Done)
		}()
	})
	return ws.Done
}

// reader pumps messages from the websocket connection to the OnMessage callback.
// Blocking, must be called as goroutine. Serializes all websocket reads.
func (ws *WS) reader() {
	defer func() {
		ws.Close()
		ws.shutdown.Done()
	}()
	ws.conn.SetReadLimit(ws.readLimit)
	if ws.pingPong {
		_ = ws.conn.SetReadDeadline(time.Now().Add(pongTime))
		ws.conn.SetPongHandler(func(string) error { return ws.conn.SetReadDeadline(time.Now().Add(pongTime)) })
	}
	for {
		_, message, err := ws.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.log.Warn().Err(err).Msg("ws read")
			}
			return
		}
		if ws.limiter != nil {
			if err = ws.limiter.Wait(ws.ctx); err != nil {
				return
			}
		}
		if ws.OnMessage != nil {
			ws.OnMessage(message)
		}
	}
}

// writer pumps messages from the send channel to the websocket connection.
// Blocking, must be called as goroutine. Serializes all websocket writes.
func (ws *WS) writer() {
	var tick <-chan time.Time
	if ws.pingPong {
		ticker := time.NewTicker(pingTime)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer func() {
		_ = ws.conn.Close()
		ws.shutdown.Done()
	}()
	for {
		select {
		case <-ws.quit:
			_ = ws.write(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case f := <-ws.send:
			if err := ws.write(f.t, f.data); err != nil {
				ws.log.Warn().Err(err).Msg("ws write")
				return
			}
		case <-tick:
			if err := ws.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Write queues a message without blocking.
func (ws *WS) Write(t int, data []byte) error {
	select {
	case <-ws.quit:
		return ErrClosed
	default:
	}
	select {
	case ws.send <- frame{t: t, data: data}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Send queues a message and waits for a free slot in the queue
// until the socket is closed.
func (ws *WS) Send(t int, data []byte) error {
	select {
	case <-ws.quit:
		return ErrClosed
	default:
	}
	select {
	case ws.send <- frame{t: t, data: data}:
		return nil
	case <-ws.quit:
		return ErrClosed
	}
}

// Close stops the socket, safe to call many times.
func (ws *WS) Close() {
	ws.stop.Do(func() {
		ws.cancel()
		close(ws.quit)
	})
}

func (ws *WS) write(t int, data []byte) error {
	if err := ws.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ws.conn.WriteMessage(t, data)
}

func (ws *WS) RemoteAddr() string { return ws.conn.RemoteAddr().String() }
