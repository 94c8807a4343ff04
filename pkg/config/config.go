package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/krzsas/security-manager/pkg/log"
	"github.com/krzsas/security-manager/pkg/storage"
)

// DefaultPath is where the daemon looks for its configuration file
const DefaultPath = "/etc/security-manager/config.yaml"

// defaultSocketDir hosts the per-service unix sockets
const defaultSocketDir = "/run/security-manager"

// Config holds the daemon configuration
type Config struct {
	// DBPath is the privilege database file
	DBPath string `yaml:"db_path"`

	// SocketDir hosts the per-service unix sockets
	SocketDir string `yaml:"socket_dir"`

	// MetricsAddr enables the Prometheus endpoint when non-empty,
	// e.g. "127.0.0.1:9090"
	MetricsAddr string `yaml:"metrics_addr"`

	Log LogConfig `yaml:"log"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level log.Level `yaml:"level"`
	JSON  bool      `yaml:"json"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		DBPath:    storage.DefaultDBPath,
		SocketDir: defaultSocketDir,
		Log: LogConfig{
			Level: log.InfoLevel,
			JSON:  true,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file at
// the default path is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// PrivilegeSocketPath returns the privilege service socket under
// SocketDir
func (c Config) PrivilegeSocketPath() string {
	return filepath.Join(c.SocketDir, "privilege.sock")
}
