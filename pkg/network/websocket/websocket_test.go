package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/turnroom/turnroom/pkg/logger"
)

func serve(t *testing.T, opts Options, onMessage func(ws *WS, m []byte)) *url.URL {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := DefaultUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		ws := NewServerWithConn(conn, opts, logger.Nop())
		ws.OnMessage = func(m []byte) { onMessage(ws, m) }
		<-ws.Listen()
	}))
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	return u
}

func dial(t *testing.T, u *url.URL) *WS {
	t.Helper()
	ws, err := NewClient(*u, Options{}, logger.Nop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(ws.Close)
	return ws
}

func TestEcho(t *testing.T) {
	u := serve(t, Options{}, func(ws *WS, m []byte) { _ = ws.Write(TextMessage, m) })
	client := dial(t, u)
	got := make(chan string, 1)
	client.OnMessage = func(m []byte) { got <- string(m) }
	client.Listen()

	if err := client.Write(TextMessage, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	select {
	case m := <-got:
		if m != "hello" {
			t.Errorf("wrong echo %v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no echo")
	}

	client.Close()
	select {
	case <-client.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("socket is not closed")
	}
	if err := client.Write(TextMessage, []byte("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected closed, got %v", err)
	}
}

func TestRateLimit(t *testing.T) {
	var n atomic.Int32
	all := make(chan struct{})
	u := serve(t, Options{Rate: 10, Burst: 1}, func(*WS, []byte) {
		if n.Add(1) == 5 {
			close(all)
		}
	})
	client := dial(t, u)
	client.Listen()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := client.Write(BinaryMessage, []byte{byte(i)}); err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
	}
	select {
	case <-all:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected 5 messages, got %v", n.Load())
	}
	// 1 message right away, 4 more at 10 per second
	if d := time.Since(start); d < 350*time.Millisecond {
		t.Errorf("messages were not throttled, %v", d)
	}
}

func TestQueueFull(t *testing.T) {
	u := serve(t, Options{}, func(*WS, []byte) {})
	// no pumps so nothing leaves the queue
	client, err := NewClient(*u, Options{SendQueue: 2}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = client.conn.Close() }()

	for i := 0; i < 2; i++ {
		if err := client.Write(TextMessage, []byte("x")); err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
	}
	if err := client.Write(TextMessage, []byte("x")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected full queue, got %v", err)
	}
}

func TestSendWaitsForQueue(t *testing.T) {
	u := serve(t, Options{}, func(*WS, []byte) {})
	client, err := NewClient(*u, Options{SendQueue: 1}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = client.conn.Close() }()

	if err = client.Send(TextMessage, []byte("x")); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- client.Send(TextMessage, []byte("y")) }()
	select {
	case err = <-done:
		t.Fatalf("send should wait for the queue, got %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	client.Close()
	select {
	case err = <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected closed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("send is stuck")
	}
}
