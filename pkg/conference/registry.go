package conference

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/turnroom/turnroom/pkg/com"
	"github.com/turnroom/turnroom/pkg/logger"
)

// Registry holds all open rooms.
// The default room lives as long as the registry,
// other rooms close themselves when nobody uses them.
type Registry struct {
	rooms *com.Map[string, *Room]
	def   *Room
	opts  Options
	log   *logger.Logger
}

func NewRoomId() string { return uuid.Must(uuid.NewV4()).String() }

func NewRegistry(opts Options, log *logger.Logger) *Registry {
	r := &Registry{rooms: com.NewMap[string, *Room](), opts: opts, log: log}
	r.def = r.open(NewRoomId(), true)
	return r
}

func (r *Registry) Default() *Room { return r.def }

// Create opens a new room.
func (r *Registry) Create() *Room { return r.open(NewRoomId(), false) }

// Find returns the room with the id or the default room for the empty id.
func (r *Registry) Find(id string) (*Room, error) {
	if id == "" {
		return r.def, nil
	}
	room, err := r.rooms.Find(id)
	if err != nil {
		return nil, fmt.Errorf("room %v: %w", id, ErrNotFound)
	}
	return room, nil
}

func (r *Registry) Rooms() []*Room { return r.rooms.Values() }

// Close stops all the rooms.
func (r *Registry) Close() {
	for _, room := range r.rooms.Values() {
		room.Close()
	}
}

func (r *Registry) open(id string, persistent bool) *Room {
	room := newRoom(id, persistent, r.opts, r.log)
	room.onClose = func(room *Room) {
		r.rooms.RemoveByKey(room.Id())
		roomsGauge.Dec()
	}
	r.rooms.Put(id, room)
	roomsGauge.Inc()
	room.start()
	return room
}
