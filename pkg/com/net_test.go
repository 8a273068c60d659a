package com

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/logger"
	"github.com/turnroom/turnroom/pkg/network/websocket"
)

func TestPackets(t *testing.T) {
	offer := api.Blob(`{"type":"offer","sdp":"v=0\r\no=- 1 2 IN IP4 127.0.0.1\r\n"}`)

	for _, codec := range []Codec{JsonCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := codec.Encode(api.Out{T: api.SessionOffer, Payload: api.OfferRequest{Target: "x", Offer: offer}})
			if err != nil {
				t.Fatalf("can't encode packet: %v", err)
			}
			in, err := codec.Decode(data)
			if err != nil {
				t.Fatalf("can't decode packet: %v", err)
			}
			if in.T != api.SessionOffer {
				t.Errorf("wrong type %v", in.T)
			}
			rq, err := Unwrap[api.OfferRequest](codec, in.Payload)
			if err != nil {
				t.Fatalf("can't unwrap payload: %v", err)
			}
			if rq.Target != "x" {
				t.Errorf("wrong target %v", rq.Target)
			}
			if !bytes.Equal(rq.Offer, offer) {
				t.Errorf("blob has changed\n%s\n%s", rq.Offer, offer)
			}
		})
	}
}

func TestPacketsNoPayload(t *testing.T) {
	for _, codec := range []Codec{JsonCodec{}, MsgpackCodec{}} {
		data, err := codec.Encode(api.Out{T: api.TurnCompleted})
		if err != nil {
			t.Fatalf("%v: %v", codec.Name(), err)
		}
		in, err := codec.Decode(data)
		if err != nil || in.T != api.TurnCompleted {
			t.Errorf("%v: wrong packet %v %v", codec.Name(), in, err)
		}
		if _, err = Unwrap[api.TextRequest](codec, in.Payload); err != nil {
			t.Errorf("%v: empty payload should unwrap, %v", codec.Name(), err)
		}
	}
}

func TestUnwrapMalformed(t *testing.T) {
	in, err := JsonCodec{}.Decode([]byte(`{"t":30,"p":{"text":1}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	_, err = Unwrap[api.TextRequest](JsonCodec{}, in.Payload)
	if err == nil || !strings.Contains(err.Error(), api.ErrMalformed.Error()) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name  string
		frame int
		err   bool
	}{
		{name: "", frame: JsonCodec{}.FrameType()},
		{name: CodecJson, frame: JsonCodec{}.FrameType()},
		{name: CodecMsgpack, frame: MsgpackCodec{}.FrameType()},
		{name: "xml", err: true},
	}
	for _, test := range tests {
		c, err := CodecByName(test.name)
		if test.err {
			if err == nil {
				t.Errorf("%q: expected an error", test.name)
			}
			continue
		}
		if err != nil || c.FrameType() != test.frame {
			t.Errorf("%q: wrong codec %v %v", test.name, c, err)
		}
	}
}

func TestWebsocket(t *testing.T) {
	for _, name := range []string{CodecJson, CodecMsgpack} {
		t.Run(name, func(t *testing.T) { testWebsocket(t, name) })
	}
}

// testWebsocket checks that packets reach the other side in order with both codecs.
func testWebsocket(t *testing.T, codecName string) {
	codec, _ := CodecByName(codecName)
	log := logger.Nop()
	connector := NewConnector(WithTag("test"))

	serverIn := make(chan api.In, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := connector.NewServer(w, r, codec, log)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conn.OnPacket(func(in api.In) error {
			serverIn <- in
			return nil
		})
		conn.Listen()
		// echo back as a notification
		go func() {
			for in := range serverIn {
				rq, err := Unwrap[api.TextRequest](conn.Codec(), in.Payload)
				if err != nil {
					t.Errorf("unwrap: %v", err)
					return
				}
				_ = conn.Notify(api.TextMessage, api.TextNotification{Name: "echo", Text: rq.Text})
			}
		}()
	}))
	defer srv.Close()

	addr, _ := url.Parse(srv.URL)
	addr.Scheme = "ws"
	client, err := connector.NewClient(*addr, codec, log)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	clientIn := make(chan api.In, 10)
	client.OnPacket(func(in api.In) error { clientIn <- in; return nil })
	done := client.Listen()

	messages := []string{"a", "bb", "ccc"}
	for _, m := range messages {
		if err := client.Notify(api.TextMessage, api.TextRequest{Text: m}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	for _, m := range messages {
		select {
		case in := <-clientIn:
			rs, err := Unwrap[api.TextNotification](codec, in.Payload)
			if err != nil {
				t.Fatalf("unwrap: %v", err)
			}
			if rs.Text != m || rs.Name != "echo" {
				t.Errorf("wrong echo %+v, want %v", rs, m)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("no echo for %v", m)
		}
	}

	client.Disconnect()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Errorf("client is not closed")
	}
}

func TestClientBurst(t *testing.T) {
	const n = 150
	log := logger.Nop()
	connector := NewConnector(WithSocket(websocket.Options{SendQueue: 4}))

	got := make(chan struct{}, n)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := connector.NewServer(w, r, JsonCodec{}, log)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conn.OnPacket(func(api.In) error { got <- struct{}{}; return nil })
		<-conn.Listen()
	}))
	defer srv.Close()

	addr, _ := url.Parse(srv.URL)
	addr.Scheme = "ws"
	client, err := connector.NewClient(*addr, JsonCodec{}, log)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Disconnect()
	client.Listen()

	for i := 0; i < n; i++ {
		if err := client.Notify(api.TextMessage, api.TextRequest{Text: "x"}); err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
	}
	timeout := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-got:
		case <-timeout:
			t.Fatalf("got %v of %v packets", i, n)
		}
	}
}
