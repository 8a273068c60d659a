package config

import (
	"time"

	flag "github.com/spf13/pflag"
)

type CoordinatorConfig struct {
	Coordinator Coordinator
	Webrtc      Webrtc
}

type Coordinator struct {
	Debug bool
	// LockFile keeps a single coordinator per host and lock path,
	// empty value disables the lock.
	LockFile   string
	Monitoring Monitoring
	Room       Room
	Server     Server
	Transport  Transport
	Web        Web
}

// Room holds the speaking rotation settings shared by all rooms.
type Room struct {
	// GrantDuration is how long one participant may speak.
	GrantDuration time.Duration `default:"30s"`
	// PendingTTL drops names reserved with the join form
	// that have not opened a connection in time.
	PendingTTL time.Duration `default:"1m"`
	// IdleTTL closes non-default rooms that stay empty.
	IdleTTL       time.Duration `default:"5m"`
	MaxNameLength int           `default:"32"`
	MaxTextLength int           `default:"1000"`
}

type Transport struct {
	ReadLimit int64 `default:"65536"`
	// Rate and Burst limit inbound packets per connection.
	Rate      float64 `default:"50"`
	Burst     int     `default:"100"`
	SendQueue int     `default:"256"`
	// Origin is the only allowed websocket origin, any origin with the empty value.
	Origin string
}

type Web struct {
	Dir   string `default:"./web"`
	Watch bool
}

// NewCoordinatorConfig parses command-line args, loads the config file
// and applies the flags which were set explicitly on top of it.
func NewCoordinatorConfig(fs *flag.FlagSet, args []string) (conf CoordinatorConfig, err error) {
	path := fs.StringP("conf", "c", "", "Set custom configuration file path")
	address := fs.String("address", "", "HTTP server address (host:port)")
	debug := fs.BoolP("debug", "d", false, "Enable debug logs")
	monPort := fs.Int("monitoring.port", 0, "Monitoring server port")
	metrics := fs.BoolP("monitoring.metric", "m", false, "Enable prometheus metric for server")
	pprof := fs.BoolP("monitoring.pprof", "p", false, "Enable golang pprof for server")
	grant := fs.Duration("grant", 0, "Speaking turn duration")
	if err = fs.Parse(args); err != nil {
		return
	}
	if err = LoadConfig(&conf, *path); err != nil {
		return
	}
	if fs.Changed("address") {
		conf.Coordinator.Server.Address = *address
	}
	if fs.Changed("debug") {
		conf.Coordinator.Debug = *debug
	}
	if fs.Changed("monitoring.port") {
		conf.Coordinator.Monitoring.Port = *monPort
	}
	if fs.Changed("monitoring.metric") {
		conf.Coordinator.Monitoring.MetricEnabled = *metrics
	}
	if fs.Changed("monitoring.pprof") {
		conf.Coordinator.Monitoring.ProfilingEnabled = *pprof
	}
	if fs.Changed("grant") {
		conf.Coordinator.Room.GrantDuration = *grant
	}
	err = conf.Webrtc.Validate()
	return
}
