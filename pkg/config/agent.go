package config

import "time"

type AgentConfig struct {
	Agent  Agent
	Webrtc Webrtc
}

// Agent configures the headless participant.
type Agent struct {
	// Server is the coordinator HTTP address.
	Server string `default:"http://localhost:8000"`
	Name   string
	// Room is empty for the default room.
	Room  string
	Codec string `default:"json"`
	// Speak is how long the agent holds its turn before yielding.
	Speak time.Duration `default:"3s"`
}
