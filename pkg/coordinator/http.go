package coordinator

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/conference"
	"github.com/turnroom/turnroom/pkg/logger"
	"github.com/turnroom/turnroom/pkg/network/httpx"
)

const (
	msgUserExists   = "user already exists!"
	msgInvalidName  = "invalid name"
	msgRoomNotFound = "room not found"

	stateTimeout = 3 * time.Second
)

// Web serves the pages and the small JSON API of the rooms.
type Web struct {
	rooms *conference.Registry
	tpl   *Templates
	log   *logger.Logger
}

type (
	indexPage struct {
		Message string
		Room    string
	}
	roomPage struct {
		Room string
		Name string
	}
)

func NewWeb(rooms *conference.Registry, tpl *Templates, log *logger.Logger) *Web {
	return &Web{rooms: rooms, tpl: tpl, log: log}
}

func (web *Web) Routes(h *http.ServeMux, dir string) {
	h.HandleFunc("/", web.index)
	h.HandleFunc("/new", web.newRoom)
	h.HandleFunc("/room/", web.room)
	h.HandleFunc("/health", web.health)
	h.HandleFunc("/api/rooms", web.roomList)
	h.HandleFunc("/api/rooms/", web.roomState)
	h.Handle("/static/", http.StripPrefix("/static/", httpx.FileServer(dir)))
}

func (web *Web) index(w http.ResponseWriter, r *http.Request) {
	// return 404 on unknown
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		web.render(w, "index.html", indexPage{Message: q.Get("message"), Room: q.Get("room")})
	case http.MethodPost:
		web.join(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// join reserves the name in the room and sends the user to the room page.
func (web *Web) join(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("username"))
	room, err := web.rooms.Find(r.PostFormValue("room"))
	if err != nil {
		redirect(w, r, "/", url.Values{"message": {msgRoomNotFound}})
		return
	}
	err = room.Reserve(r.Context(), name)
	switch {
	case err == nil:
		web.log.Info().Str("name", name).Str("room", room.Id()).Msg("Name reserved")
		redirect(w, r, "/room/"+room.Id(), url.Values{"username": {name}})
	case errors.Is(err, conference.ErrDuplicateName):
		redirect(w, r, "/", url.Values{"message": {msgUserExists}, "room": {room.Id()}})
	case errors.Is(err, conference.ErrInvalidName):
		redirect(w, r, "/", url.Values{"message": {msgInvalidName}, "room": {room.Id()}})
	case errors.Is(err, conference.ErrRoomClosed):
		redirect(w, r, "/", url.Values{"message": {msgRoomNotFound}})
	default:
		web.log.Error().Err(err).Msg("reserve")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (web *Web) newRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	room := web.rooms.Create()
	web.log.Info().Str("room", room.Id()).Msg("New room")
	redirect(w, r, "/", url.Values{"room": {room.Id()}})
}

func (web *Web) room(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/room/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if _, err := web.rooms.Find(id); err != nil {
		http.NotFound(w, r)
		return
	}
	name := r.URL.Query().Get("username")
	if name == "" {
		redirect(w, r, "/", url.Values{"room": {id}})
		return
	}
	web.render(w, "room.html", roomPage{Room: id, Name: name})
}

func (web *Web) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "rooms": len(web.rooms.Rooms())})
}

func (web *Web) roomList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), stateTimeout)
	defer cancel()
	def := web.rooms.Default()
	list := []api.RoomInfo{}
	for _, room := range web.rooms.Rooms() {
		state, err := room.State(ctx)
		if err != nil {
			continue
		}
		list = append(list, api.RoomInfo{Room: room.Id(), Participants: len(state.Roster), Default: room == def})
	}
	writeJSON(w, list)
}

func (web *Web) roomState(w http.ResponseWriter, r *http.Request) {
	room, err := web.rooms.Find(strings.TrimPrefix(r.URL.Path, "/api/rooms/"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), stateTimeout)
	defer cancel()
	state, err := room.State(ctx)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, state)
}

func (web *Web) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.tpl.Render(w, name, data); err != nil {
		web.log.Error().Err(err).Str("template", name).Msg("render")
	}
}

func redirect(w http.ResponseWriter, r *http.Request, path string, q url.Values) {
	http.Redirect(w, r, path+"?"+q.Encode(), http.StatusFound)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
