package config

import (
	"os"
	"path/filepath"

	"github.com/kkyr/fig"
)

const EnvPrefix = "TURNROOM"

const DefaultFile = "config.yaml"

// LoadConfig loads a configuration file into the given struct.
// The path param is either a directory with config.yaml or a path to some
// config file. With the empty path the file is searched in
// the current dir, ./configs, ../../configs and ~/.turnroom.
// Environment variables with the prefix TURNROOM_ override the file values,
// e.g. TURNROOM_COORDINATOR_ROOM_GRANTDURATION=10s.
func LoadConfig(config any, path string) error {
	file, dirs := DefaultFile, []string{path}
	if path == "" {
		dirs = []string{".", "configs", "../../configs"}
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".turnroom"))
		}
	} else if st, err := os.Stat(path); err == nil && !st.IsDir() {
		file, dirs = filepath.Base(path), []string{filepath.Dir(path)}
	}
	return fig.Load(config, fig.File(file), fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
}
