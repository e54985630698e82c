// Package config loads the service configuration. Settings resolve in three
// layers: built-in defaults, an optional YAML file, then RIGFLOW_*
// environment overrides.
package config

import (
	"net"
	"strconv"
)

// Config carries every runtime setting of the service.
type Config struct {
	Server  Server  `yaml:"server"`
	Plugins Plugins `yaml:"plugins"`
	Storage Storage `yaml:"storage"`
	Logging Logging `yaml:"logging"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Host        string   `yaml:"host" validate:"required"`
	Port        int      `yaml:"port" validate:"required,min=1,max=65535"`
	APIPrefix   string   `yaml:"api_prefix" validate:"required,api_prefix"`
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,required"`
}

// Plugins points at the on-disk plugin catalog.
type Plugins struct {
	Dir string `yaml:"dir" validate:"required"`
}

// Storage points at the directory holding the JSON document stores.
type Storage struct {
	DataDir string `yaml:"data_dir" validate:"required"`
}

// Logging selects the log level and output format.
type Logging struct {
	Level         string `yaml:"level" validate:"required,log_level"`
	HumanReadable bool   `yaml:"human_readable"`
}

// Default returns the configuration used when no file and no overrides are
// present. It is complete enough to run the service.
func Default() *Config {
	return &Config{
		Server: Server{
			Host:      "0.0.0.0",
			Port:      8000,
			APIPrefix: "/api",
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			},
		},
		Plugins: Plugins{Dir: "plugins"},
		Storage: Storage{DataDir: "data"},
		Logging: Logging{Level: "info"},
	}
}

// Addr renders the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
