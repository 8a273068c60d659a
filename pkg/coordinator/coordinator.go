package coordinator

import (
	"context"
	"net/http"

	"github.com/turnroom/turnroom/pkg/com"
	"github.com/turnroom/turnroom/pkg/conference"
	"github.com/turnroom/turnroom/pkg/config"
	"github.com/turnroom/turnroom/pkg/logger"
	"github.com/turnroom/turnroom/pkg/monitoring"
	"github.com/turnroom/turnroom/pkg/network/httpx"
	"github.com/turnroom/turnroom/pkg/network/websocket"
	"github.com/turnroom/turnroom/pkg/service"
)

type Coordinator struct {
	service.Group

	rooms  *conference.Registry
	server *httpx.Server
	log    *logger.Logger
}

func New(conf config.CoordinatorConfig, log *logger.Logger) (*Coordinator, error) {
	c := &Coordinator{
		rooms: conference.NewRegistry(RoomOptions(conf), log),
		log:   log,
	}

	tpl, err := NewTemplates(conf.Coordinator.Web.Dir, log)
	if err != nil {
		c.rooms.Close()
		return nil, err
	}
	hub := NewHub(c.rooms, conf.Coordinator.Transport, log)
	web := NewWeb(c.rooms, tpl, log)

	c.server, err = NewHTTPServer(conf, log, func(mux *http.ServeMux) {
		web.Routes(mux, conf.Coordinator.Web.Dir)
		mux.HandleFunc("/ws", hub.handleWebsocket)
	})
	if err != nil {
		c.rooms.Close()
		return nil, err
	}

	c.AddIf(conf.Coordinator.Web.Watch, tpl)
	c.Add(c.server)
	if conf.Coordinator.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Coordinator.Monitoring, log)
		if err != nil {
			c.rooms.Close()
			return nil, err
		}
		c.Add(mon)
	}
	return c, nil
}

// RoomOptions converts the config into the room settings.
func RoomOptions(conf config.CoordinatorConfig) conference.Options {
	room := conf.Coordinator.Room
	return conference.Options{
		GrantDuration: room.GrantDuration,
		PendingTTL:    room.PendingTTL,
		IdleTTL:       room.IdleTTL,
		MaxNameLength: room.MaxNameLength,
		MaxTextLength: room.MaxTextLength,
		Ice:           conf.Webrtc.IceServers,
	}
}

func NewHTTPServer(conf config.CoordinatorConfig, log *logger.Logger, fnMux func(*http.ServeMux)) (*httpx.Server, error) {
	return httpx.NewServer(
		conf.Coordinator.Server.GetAddr(),
		func(*httpx.Server) http.Handler {
			h := http.NewServeMux()
			fnMux(h)
			return h
		},
		httpx.WithServerConfig(conf.Coordinator.Server),
		httpx.WithLogger(log),
	)
}

func NewHub(rooms *conference.Registry, conf config.Transport, log *logger.Logger) *Hub {
	return &Hub{
		rooms: rooms,
		connector: com.NewConnector(
			com.WithTag("ws"),
			com.WithOrigin(conf.Origin),
			com.WithSocket(websocket.Options{
				ReadLimit: conf.ReadLimit,
				Rate:      conf.Rate,
				Burst:     conf.Burst,
				SendQueue: conf.SendQueue,
			}),
		),
		log: log,
	}
}

func (c *Coordinator) Addr() string                { return c.server.Addr }
func (c *Coordinator) Rooms() *conference.Registry { return c.rooms }
func (c *Coordinator) Start()                      { c.Group.Start() }
func (c *Coordinator) String() string              { return "coordinator" }

// Shutdown stops the services and closes all the rooms.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	err := c.Group.Shutdown(ctx)
	c.rooms.Close()
	return err
}
