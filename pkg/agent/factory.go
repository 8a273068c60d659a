package agent

import (
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
	"github.com/turnroom/turnroom/pkg/config"
	"github.com/turnroom/turnroom/pkg/logger"
)

type ApiFactory struct {
	api  *webrtc.API
	conf webrtc.Configuration
}

type ModApiFun func(m *webrtc.MediaEngine, i *interceptor.Registry, s *webrtc.SettingEngine)

func NewApiFactory(conf config.Webrtc, log *logger.Logger, mod ModApiFun) (*ApiFactory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, err
	}
	s := webrtc.SettingEngine{LoggerFactory: logger.NewPionLogger(log, conf.LogLevel)}
	if mod != nil {
		mod(m, i, &s)
	}
	return &ApiFactory{
		api:  webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i), webrtc.WithSettingEngine(s)),
		conf: webrtc.Configuration{ICEServers: IceServers(conf.IceServers)},
	}, nil
}

// SetIceServers replaces the ICE servers for the new peers.
func (a *ApiFactory) SetIceServers(servers []config.IceServer) {
	a.conf.ICEServers = IceServers(servers)
}

func (a *ApiFactory) NewPeer() (*webrtc.PeerConnection, error) {
	return a.api.NewPeerConnection(a.conf)
}

func IceServers(servers []config.IceServer) []webrtc.ICEServer {
	ice := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		ice = append(ice, webrtc.ICEServer{
			URLs:       []string{s.Urls},
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	return ice
}
