// Package config loads the daemon's TOML configuration file: Panel
// connection details, API bind address, containerd socket, data
// directory, and logging options.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root of the daemon's configuration file.
type Config struct {
	Panel   PanelConfig   `toml:"panel"`
	API     APIConfig     `toml:"api"`
	Docker  DockerConfig  `toml:"docker"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// PanelConfig holds the connection details for the control plane.
type PanelConfig struct {
	URL     string `toml:"url"`
	TokenID string `toml:"token_id"`
	Token   string `toml:"token"`
}

// APIConfig controls the HTTP/gRPC listen address. The gRPC server binds
// Port+1.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	TLSCert string `toml:"tls_cert"`
	TLSKey  string `toml:"tls_key"`
}

// DockerConfig is named for the Panel's historical config key but selects
// the containerd socket this daemon actually dials.
type DockerConfig struct {
	Socket string `toml:"socket"`
}

// StorageConfig holds the root directory under which every workload's
// data volume and spec sidecar live.
type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

func defaults() Config {
	return Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Docker: DockerConfig{
			Socket: "/var/run/docker.sock",
		},
		Storage: StorageConfig{
			DataDir: "/var/lib/nexus-wings/data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the TOML configuration file at path, applying
// defaults for any field the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := defaults()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.Docker.Socket == "" {
		cfg.Docker.Socket = "/var/run/docker.sock"
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "/var/lib/nexus-wings/data"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	return &cfg, nil
}

// GRPCPort is the gRPC listen port, always HTTP port + 1 per the external
// interface contract.
func (c *Config) GRPCPort() int {
	return c.API.Port + 1
}

// BearerToken is the "<token_id>.<token>" credential the daemon presents
// to the Panel on its own outbound calls (heartbeat, install callbacks).
func (c *Config) BearerToken() string {
	if c.Panel.TokenID == "" {
		return c.Panel.Token
	}
	return c.Panel.TokenID + "." + c.Panel.Token
}
