package coordinator

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/com"
	"github.com/turnroom/turnroom/pkg/conference"
	"github.com/turnroom/turnroom/pkg/logger"
)

// Hub connects websocket clients with their rooms.
type Hub struct {
	rooms     *conference.Registry
	connector *com.Connector
	log       *logger.Logger
}

// handleWebsocket handles all the participant connections.
func (h *Hub) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			h.log.Error().Msgf("ws handler panic: %v", err)
		}
	}()

	q := r.URL.Query()
	room, err := h.rooms.Find(q.Get("room"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	codec, err := com.CodecByName(q.Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.connector.NewServer(w, r, codec, h.log)
	if err != nil {
		h.log.Error().Err(err).Msg("ws upgrade")
		return
	}
	conn.OnPacket(func(in api.In) error {
		e, err := toEvent(conn, in)
		if err != nil {
			_ = conn.Notify(api.Error, api.ErrorResponse{Reason: err.Error()})
			return err
		}
		if err = room.Post(e); errors.Is(err, conference.ErrRoomClosed) {
			conn.Disconnect()
		}
		return err
	})
	<-conn.Listen()

	if err := room.Post(conference.Disconnect{Id: conn.Id()}); err != nil && !errors.Is(err, conference.ErrRoomClosed) {
		h.log.Warn().Err(err).Msg("disconnect")
	}
}

// toEvent converts a client packet into a room event.
func toEvent(conn *com.SocketClient, in api.In) (conference.Event, error) {
	codec, from := conn.Codec(), conn.Id()
	switch in.T {
	case api.Join:
		rq, err := com.Unwrap[api.JoinRequest](codec, in.Payload)
		if err != nil {
			return nil, err
		}
		return conference.Join{Name: rq.Name, Peer: conn}, nil
	case api.SessionOffer:
		rq, err := com.Unwrap[api.OfferRequest](codec, in.Payload)
		if err != nil {
			return nil, err
		}
		target, err := uid(rq.Target)
		if err != nil {
			return nil, err
		}
		if err = valid(rq.Offer); err != nil {
			return nil, err
		}
		return conference.Offer{From: from, Target: target, Offer: rq.Offer}, nil
	case api.SessionAnswer:
		rq, err := com.Unwrap[api.AnswerRequest](codec, in.Payload)
		if err != nil {
			return nil, err
		}
		caller, err := uid(rq.Caller)
		if err != nil {
			return nil, err
		}
		if err = valid(rq.Answer); err != nil {
			return nil, err
		}
		return conference.Answer{From: from, Caller: caller, Answer: rq.Answer}, nil
	case api.NetworkCandidate:
		rq, err := com.Unwrap[api.CandidateRequest](codec, in.Payload)
		if err != nil {
			return nil, err
		}
		target, err := uid(rq.Target)
		if err != nil {
			return nil, err
		}
		if err = valid(rq.Candidate); err != nil {
			return nil, err
		}
		return conference.Candidate{From: from, Target: target, Candidate: rq.Candidate}, nil
	case api.TurnCompleted:
		return conference.TurnCompleted{From: from}, nil
	case api.TextMessage:
		rq, err := com.Unwrap[api.TextRequest](codec, in.Payload)
		if err != nil {
			return nil, err
		}
		return conference.Text{From: from, Text: rq.Text}, nil
	}
	return nil, fmt.Errorf("%w: %v", api.ErrUnknownType, in.T)
}

func uid(s string) (com.Uid, error) {
	id, err := com.UidFromString(s)
	if err != nil {
		return com.NilUid, fmt.Errorf("%w: bad id %q", api.ErrMalformed, s)
	}
	return id, nil
}

// valid checks that the blob can be embedded into JSON packets,
// binary clients may send any bytes there.
func valid(b api.Blob) error {
	if len(b) > 0 && !json.Valid(b) {
		return fmt.Errorf("%w: payload is not JSON", api.ErrMalformed)
	}
	return nil
}
