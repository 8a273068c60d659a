package agent

import (
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/turnroom/turnroom/pkg/logger"
)

// Peer is an audio call with another participant of the room.
type Peer struct {
	id   string
	conn *webrtc.PeerConnection
	log  *logger.Logger

	mu      sync.Mutex
	remote  bool
	pending []webrtc.ICECandidateInit
	closed  bool
}

func newPeer(api *ApiFactory, id string, track webrtc.TrackLocal, onCandidate func(webrtc.ICECandidateInit), log *logger.Logger) (*Peer, error) {
	conn, err := api.NewPeer()
	if err != nil {
		return nil, err
	}
	p := &Peer{id: id, conn: conn, log: log}

	sender, err := conn.AddTrack(track)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// Read incoming RTCP packets
	go func() {
		rtcpBuf := make([]byte, 1500)
		for {
			if _, _, rtcpErr := sender.Read(rtcpBuf); rtcpErr != nil {
				return
			}
		}
	}()

	conn.OnICECandidate(func(ice *webrtc.ICECandidate) {
		// ICE gathering finish condition
		if ice == nil {
			p.log.Debug().Msg("ICE gathering was complete probably")
			return
		}
		onCandidate(ice.ToJSON())
	})
	conn.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		p.log.Debug().Str("codec", remote.Codec().MimeType).Msg("Remote track")
		buf := make([]byte, 1500)
		for {
			if _, _, err := remote.Read(buf); err != nil {
				return
			}
		}
	})
	conn.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.log.Debug().Str(".state", state.String()).Msg("WebRTC")
		if state == webrtc.PeerConnectionStateFailed {
			p.Close()
		}
	})
	return p, nil
}

// Offer starts the call.
func (p *Peer) Offer() (*webrtc.SessionDescription, error) {
	offer, err := p.conn.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err = p.conn.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return p.conn.LocalDescription(), nil
}

// Answer accepts the call.
func (p *Peer) Answer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := p.setRemote(offer); err != nil {
		return nil, err
	}
	answer, err := p.conn.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err = p.conn.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return p.conn.LocalDescription(), nil
}

func (p *Peer) SetAnswer(answer webrtc.SessionDescription) error { return p.setRemote(answer) }

func (p *Peer) setRemote(sdp webrtc.SessionDescription) error {
	if err := p.conn.SetRemoteDescription(sdp); err != nil {
		return err
	}
	p.mu.Lock()
	p.remote = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()
	for _, c := range pending {
		if err := p.conn.AddICECandidate(c); err != nil {
			p.log.Warn().Err(err).Msg("ICE")
		}
	}
	return nil
}

// AddCandidate adds a remote candidate or keeps it
// until the remote description is known.
func (p *Peer) AddCandidate(c webrtc.ICECandidateInit) error {
	p.mu.Lock()
	if !p.remote {
		p.pending = append(p.pending, c)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.conn.AddICECandidate(c)
}

func (p *Peer) State() webrtc.PeerConnectionState { return p.conn.ConnectionState() }

func (p *Peer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	// ignore this due to DTLS fatal: conn is closed
	_ = p.conn.Close()
	p.log.Debug().Msg("WebRTC stop")
}
