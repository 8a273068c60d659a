package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
)

const testConfig = `
coordinator:
  server:
    address: :9999
  room:
    grantDuration: 10s
    maxTextLength: 5
webrtc:
  iceServers:
    - urls: stun:stun.l.google.com:19302
    - urls: turn:localhost:3478
      username: root
      credential: root
`

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, testConfig)

	var conf CoordinatorConfig
	if err := LoadConfig(&conf, dir); err != nil {
		t.Fatalf("couldn't load config: %v", err)
	}

	room := conf.Coordinator.Room
	if room.GrantDuration != 10*time.Second {
		t.Errorf("grant %v != 10s", room.GrantDuration)
	}
	if room.MaxTextLength != 5 {
		t.Errorf("max text %v != 5", room.MaxTextLength)
	}
	// defaults for the missing keys
	if room.PendingTTL != time.Minute {
		t.Errorf("pending ttl %v != 1m", room.PendingTTL)
	}
	if conf.Coordinator.Transport.SendQueue != 256 {
		t.Errorf("send queue %v != 256", conf.Coordinator.Transport.SendQueue)
	}
	if conf.Coordinator.Server.Address != ":9999" {
		t.Errorf("address %v != :9999", conf.Coordinator.Server.Address)
	}
	if len(conf.Webrtc.IceServers) != 2 {
		t.Fatalf("expected 2 ice servers, got %v", conf.Webrtc.IceServers)
	}
	if err := conf.Webrtc.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadConfigFilePath(t *testing.T) {
	dir := writeConfig(t, testConfig)

	var conf CoordinatorConfig
	if err := LoadConfig(&conf, filepath.Join(dir, DefaultFile)); err != nil {
		t.Fatalf("couldn't load config: %v", err)
	}
	if conf.Coordinator.Server.Address != ":9999" {
		t.Errorf("address %v != :9999", conf.Coordinator.Server.Address)
	}
}

func TestConfigEnv(t *testing.T) {
	dir := writeConfig(t, testConfig)
	t.Setenv("TURNROOM_COORDINATOR_ROOM_GRANTDURATION", "3s")
	t.Setenv("TURNROOM_COORDINATOR_DEBUG", "true")

	var conf CoordinatorConfig
	if err := LoadConfig(&conf, dir); err != nil {
		t.Fatal(err)
	}
	if conf.Coordinator.Room.GrantDuration != 3*time.Second {
		t.Errorf("grant %v is not 3s", conf.Coordinator.Room.GrantDuration)
	}
	if !conf.Coordinator.Debug {
		t.Errorf("debug is not set from env")
	}
}

func TestCoordinatorFlags(t *testing.T) {
	dir := writeConfig(t, testConfig)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	conf, err := NewCoordinatorConfig(fs, []string{"--conf", dir, "--address", ":7000", "--grant", "1m", "-m"})
	if err != nil {
		t.Fatal(err)
	}
	if conf.Coordinator.Server.Address != ":7000" {
		t.Errorf("address %v != :7000", conf.Coordinator.Server.Address)
	}
	if conf.Coordinator.Room.GrantDuration != time.Minute {
		t.Errorf("grant %v != 1m", conf.Coordinator.Room.GrantDuration)
	}
	if !conf.Coordinator.Monitoring.MetricEnabled {
		t.Errorf("metrics should be on")
	}
	// untouched by flags
	if conf.Coordinator.Room.MaxTextLength != 5 {
		t.Errorf("max text %v != 5", conf.Coordinator.Room.MaxTextLength)
	}
}

func TestLoadAgentConfig(t *testing.T) {
	dir := writeConfig(t, "agent:\n  name: bot\n  codec: msgpack\n")

	var conf AgentConfig
	if err := LoadConfig(&conf, dir); err != nil {
		t.Fatal(err)
	}
	if conf.Agent.Name != "bot" || conf.Agent.Codec != "msgpack" {
		t.Errorf("wrong agent config: %+v", conf.Agent)
	}
	if conf.Agent.Speak != 3*time.Second {
		t.Errorf("speak %v != 3s", conf.Agent.Speak)
	}
}
