package config

import (
	"fmt"

	"github.com/pion/stun"
	"github.com/turnroom/turnroom/pkg/api"
)

type Webrtc struct {
	IceServers []IceServer
	// LogLevel is a zerolog level for pion internals.
	LogLevel int `default:"1"`
}

type IceServer = api.IceServer

// Validate checks that every ICE server has a parsable URL
// and that TURN(S) servers come with credentials.
func (w *Webrtc) Validate() error {
	for i, ice := range w.IceServers {
		uri, err := stun.ParseURI(ice.Urls)
		if err != nil {
			return fmt.Errorf("ice server #%d %q: %w", i, ice.Urls, err)
		}
		if uri.Scheme == stun.SchemeTypeTURN || uri.Scheme == stun.SchemeTypeTURNS {
			if ice.Username == "" || ice.Credential == "" {
				return fmt.Errorf("ice server #%d %q: turn servers need both username and credential", i, ice.Urls)
			}
		}
	}
	return nil
}
