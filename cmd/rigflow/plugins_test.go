package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigflow/rigflow/internal/catalog"
	"github.com/rigflow/rigflow/internal/config"
	"github.com/rigflow/rigflow/internal/logger"
)

const benchServoConfig = `plugin:
  name: Mock Servo
  version: 1.0.0
  author: Rigflow Team
  description: Simulated single-axis servo
  category: Motion
  color: "#3498db"

device:
  class: MockServoDevice
  connection_types:
    - virtual

functions:
  - id: home
    name: Home Axis
    description: Drive the axis to its reference position
    inputs:
      trigger:
        type: trigger
    outputs:
      complete:
        type: trigger
  - id: move
    name: Move
    description: Move to an absolute position
    inputs:
      position:
        type: number
    outputs:
      complete:
        type: trigger
`

func writeBenchPlugin(t *testing.T, pluginsDir string) {
	t.Helper()

	dir := filepath.Join(pluginsDir, "mock_servo")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(benchServoConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "device.go"), []byte("package mockservo\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "functions.go"), []byte("package mockservo\n"), 0o644))
}

func TestRegisterPluginsResolvesBuilders(t *testing.T) {
	pluginsDir := t.TempDir()
	writeBenchPlugin(t, pluginsDir)

	cat := catalog.New(pluginsDir, logger.Nop())
	RegisterPlugins(cat)

	_, err := cat.Discover()
	require.NoError(t, err)

	loaded, err := cat.Load("mock_servo")
	require.NoError(t, err)
	assert.Contains(t, loaded.Functions, "home")
	assert.Contains(t, loaded.Functions, "move")
}

func TestPluginsListCommand(t *testing.T) {
	root := t.TempDir()
	pluginsDir := filepath.Join(root, "plugins")
	writeBenchPlugin(t, pluginsDir)

	t.Setenv(config.EnvPluginDir, pluginsDir)
	t.Setenv(config.EnvDataDir, filepath.Join(root, "data"))
	t.Setenv(config.EnvLogLevel, "error")

	cmd := newRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"plugins", "list"})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "mock_servo")
	assert.Contains(t, out, "Mock Servo")
	assert.Contains(t, out, "home, move")
}

func TestPluginsListCommandJSON(t *testing.T) {
	root := t.TempDir()
	pluginsDir := filepath.Join(root, "plugins")
	writeBenchPlugin(t, pluginsDir)

	t.Setenv(config.EnvPluginDir, pluginsDir)
	t.Setenv(config.EnvDataDir, filepath.Join(root, "data"))
	t.Setenv(config.EnvLogLevel, "error")

	cmd := newRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"plugins", "list", "--json"})

	require.NoError(t, cmd.Execute())

	var payload struct {
		Count   int                  `json:"count"`
		Plugins []catalog.Descriptor `json:"plugins"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, "mock_servo", payload.Plugins[0].ID)
	assert.Equal(t, "MockServoDevice", payload.Plugins[0].DeviceClass)
}

func TestPluginsListCommandEmpty(t *testing.T) {
	root := t.TempDir()

	t.Setenv(config.EnvPluginDir, filepath.Join(root, "plugins"))
	t.Setenv(config.EnvDataDir, filepath.Join(root, "data"))
	t.Setenv(config.EnvLogLevel, "error")

	cmd := newRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"plugins", "list"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No plugins found")
}
