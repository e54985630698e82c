package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

// Environment override keys.
const (
	EnvHTTPAddr    = "RIGFLOW_HTTP_ADDR"
	EnvPluginDir   = "RIGFLOW_PLUGIN_DIR"
	EnvDataDir     = "RIGFLOW_DATA_DIR"
	EnvLogLevel    = "RIGFLOW_LOG_LEVEL"
	EnvCORSOrigins = "RIGFLOW_CORS_ORIGINS"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// Load builds the effective configuration. An empty path means no file is
// read and defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, rferrors.NewValidationError("config", fmt.Sprintf("cannot read %s: %v", path, err), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, rferrors.NewValidationError("config", fmt.Sprintf("%s: invalid YAML (line %d): %v", path, extractLine(err), err), err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if addr := os.Getenv(EnvHTTPAddr); addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return rferrors.NewValidationError("server", fmt.Sprintf("%s must be host:port, got %q", EnvHTTPAddr, addr), err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return rferrors.NewValidationError("server.port", fmt.Sprintf("%s has a non-numeric port %q", EnvHTTPAddr, portStr), err)
		}
		if host != "" {
			cfg.Server.Host = host
		}
		cfg.Server.Port = port
	}
	if dir := os.Getenv(EnvPluginDir); dir != "" {
		cfg.Plugins.Dir = dir
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if origins := os.Getenv(EnvCORSOrigins); origins != "" {
		parts := strings.Split(origins, ",")
		cleaned := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				cleaned = append(cleaned, part)
			}
		}
		cfg.Server.CORSOrigins = cleaned
	}
	return nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
