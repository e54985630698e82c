// Package catalog discovers device plugins on disk and resolves their
// compiled-in implementations.
//
// A plugin is a directory containing config.yaml (metadata), device.go and
// functions.go. The Go implementation for a plugin is registered ahead of
// time under its device class name; Load binds the on-disk metadata to the
// registered constructors the same way a dynamic loader would resolve
// symbols, warning about functions that have no constructor instead of
// failing the whole plugin.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/rigflow/rigflow/internal/device"
	"github.com/rigflow/rigflow/internal/logger"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

// requiredFiles must all be present for a directory to count as a plugin.
var requiredFiles = []string{"config.yaml", "device.go", "functions.go"}

// FunctionDescriptor describes one function a plugin exposes.
type FunctionDescriptor struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Inputs      map[string]any `yaml:"inputs" json:"inputs"`
	Outputs     map[string]any `yaml:"outputs" json:"outputs"`
}

// Descriptor is the discovered metadata for a plugin.
type Descriptor struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Version         string               `json:"version"`
	Author          string               `json:"author"`
	Description     string               `json:"description"`
	Category        string               `json:"category"`
	Color           string               `json:"color"`
	DeviceClass     string               `json:"device_class"`
	ConnectionTypes []string             `json:"connection_types"`
	Functions       []FunctionDescriptor `json:"functions"`
	Path            string               `json:"-"`
}

// configFile mirrors the config.yaml layout.
type configFile struct {
	Plugin struct {
		Name        string `yaml:"name"`
		Version     string `yaml:"version"`
		Author      string `yaml:"author"`
		Description string `yaml:"description"`
		Category    string `yaml:"category"`
		Color       string `yaml:"color"`
	} `yaml:"plugin"`
	Device struct {
		Class           string   `yaml:"class"`
		ConnectionTypes []string `yaml:"connection_types"`
	} `yaml:"device"`
	Functions []FunctionDescriptor `yaml:"functions"`
}

// DeviceFactory constructs a device instance for a plugin.
type DeviceFactory func(instanceID string, config map[string]any) device.Device

// Builder is the compiled-in implementation of a plugin, registered under
// its device class name. Functions is keyed by constructor name
// (e.g. "MoveAbsoluteFunction"), mirroring a module symbol table.
type Builder struct {
	Device    DeviceFactory
	Functions map[string]device.FunctionFactory
}

// Loaded binds a plugin's metadata to its resolved constructors.
// Functions is keyed by function id.
type Loaded struct {
	Descriptor *Descriptor
	Device     DeviceFactory
	Functions  map[string]device.FunctionFactory
}

// Catalog tracks discovered plugins and their loaded implementations.
type Catalog struct {
	dir string
	log *logger.Logger

	mu       sync.RWMutex
	builders map[string]Builder
	plugins  map[string]*Descriptor
	loaded   map[string]*Loaded
}

// New creates a catalog over the given plugin directory, creating the
// directory if it does not exist yet.
func New(dir string, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warnf("could not create plugin directory %s: %v", dir, err)
	}
	return &Catalog{
		dir:      dir,
		log:      log,
		builders: make(map[string]Builder),
		plugins:  make(map[string]*Descriptor),
		loaded:   make(map[string]*Loaded),
	}
}

// RegisterBuilder registers the implementation for a device class.
// Later registrations under the same class name win.
func (c *Catalog) RegisterBuilder(deviceClass string, b Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builders[deviceClass] = b
}

// Discover scans the plugin directory and returns descriptors for every
// valid plugin found. Directories whose name starts with "_" are skipped,
// as are directories missing any of the required files. Invalid plugins
// are logged and skipped rather than failing the scan.
func (c *Catalog) Discover() ([]*Descriptor, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			c.log.Warnf("plugin directory does not exist: %s", c.dir)
			return nil, nil
		}
		return nil, rferrors.NewStorageError("plugin directory", c.dir, "read", err)
	}

	var discovered []*Descriptor
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), "_") {
			continue
		}
		dir := filepath.Join(c.dir, entry.Name())
		if !c.validateLayout(entry.Name(), dir) {
			continue
		}

		desc, err := c.readDescriptor(entry.Name(), dir)
		if err != nil {
			c.log.Errorf(err, "error discovering plugin %s", entry.Name())
			continue
		}

		c.mu.Lock()
		c.plugins[desc.ID] = desc
		c.mu.Unlock()
		discovered = append(discovered, desc)
		c.log.Infof("discovered plugin: %s", desc.ID)
	}

	sort.Slice(discovered, func(i, j int) bool { return discovered[i].ID < discovered[j].ID })
	c.log.Infof("discovered %d plugins", len(discovered))
	return discovered, nil
}

func (c *Catalog) validateLayout(pluginID, dir string) bool {
	for _, name := range requiredFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			c.log.Warnf("plugin %s missing %s", pluginID, name)
			return false
		}
	}
	return true
}

func (c *Catalog) readDescriptor(pluginID, dir string) (*Descriptor, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		return nil, rferrors.NewPluginConfigError(pluginID, "cannot read config.yaml", err)
	}

	var cfg configFile
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, rferrors.NewPluginConfigError(pluginID, "cannot parse config.yaml", err)
	}

	desc := &Descriptor{
		ID:              pluginID,
		Name:            cfg.Plugin.Name,
		Version:         cfg.Plugin.Version,
		Author:          cfg.Plugin.Author,
		Description:     cfg.Plugin.Description,
		Category:        cfg.Plugin.Category,
		Color:           cfg.Plugin.Color,
		DeviceClass:     cfg.Device.Class,
		ConnectionTypes: cfg.Device.ConnectionTypes,
		Functions:       cfg.Functions,
		Path:            dir,
	}
	if desc.Name == "" {
		desc.Name = pluginID
	}
	if desc.Version == "" {
		desc.Version = "1.0.0"
	}
	if desc.Author == "" {
		desc.Author = "Unknown"
	}
	if desc.Category == "" {
		desc.Category = "General"
	}
	if desc.Color == "" {
		desc.Color = "#888888"
	}
	if desc.ConnectionTypes == nil {
		desc.ConnectionTypes = []string{}
	}
	return desc, nil
}

// List returns the discovered plugins sorted by id.
func (c *Catalog) List() []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Descriptor, 0, len(c.plugins))
	for _, d := range c.plugins {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Descriptor returns the discovered metadata for a plugin.
func (c *Catalog) Descriptor(pluginID string) (*Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.plugins[pluginID]
	return d, ok
}

// Get returns the loaded plugin, if any.
func (c *Catalog) Get(pluginID string) (*Loaded, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.loaded[pluginID]
	return l, ok
}

// Load resolves a discovered plugin against its registered builder and
// caches the result. Functions whose constructor is missing from the
// builder are logged and skipped.
func (c *Catalog) Load(pluginID string) (*Loaded, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(pluginID)
}

// Ensure returns the loaded plugin, loading it first if needed.
func (c *Catalog) Ensure(pluginID string) (*Loaded, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.loaded[pluginID]; ok {
		return l, nil
	}
	return c.loadLocked(pluginID)
}

func (c *Catalog) loadLocked(pluginID string) (*Loaded, error) {
	desc, ok := c.plugins[pluginID]
	if !ok {
		return nil, rferrors.NewNotFoundError("plugin", pluginID)
	}
	if desc.DeviceClass == "" {
		return nil, rferrors.NewPluginLoadError(pluginID, "config.yaml does not declare a device class", nil)
	}

	builder, ok := c.builders[desc.DeviceClass]
	if !ok {
		return nil, rferrors.NewPluginLoadError(pluginID,
			fmt.Sprintf("device class %q is not registered", desc.DeviceClass), nil)
	}
	if builder.Device == nil {
		return nil, rferrors.NewPluginLoadError(pluginID,
			fmt.Sprintf("device class %q has no device constructor", desc.DeviceClass), nil)
	}

	functions := make(map[string]device.FunctionFactory)
	for _, fn := range desc.Functions {
		ctorName := ToClassName(fn.ID)
		factory, ok := builder.Functions[ctorName]
		if !ok {
			c.log.Warnf("function constructor %q not found in %s", ctorName, pluginID)
			continue
		}
		functions[fn.ID] = factory
	}

	loaded := &Loaded{
		Descriptor: desc,
		Device:     builder.Device,
		Functions:  functions,
	}
	c.loaded[pluginID] = loaded
	c.log.Infof("loaded plugin: %s with %d functions", pluginID, len(functions))
	return loaded, nil
}

// Reload drops the cached implementation and loads the plugin again.
func (c *Catalog) Reload(pluginID string) (*Loaded, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.loaded, pluginID)
	return c.loadLocked(pluginID)
}

// Unload drops the cached implementation. It reports whether the plugin
// was loaded.
func (c *Catalog) Unload(pluginID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.loaded[pluginID]; !ok {
		return false
	}
	delete(c.loaded, pluginID)
	c.log.Infof("unloaded plugin: %s", pluginID)
	return true
}

// ExecuteDirect runs a plugin function against a throwaway device instance.
// It is used for stateless operations where no device instance is bound.
// Unknown functions and execution errors resolve to a completed result so
// a pipeline does not fail on a best-effort call.
func (c *Catalog) ExecuteDirect(ctx context.Context, pluginID, functionID string, inputs map[string]any) map[string]any {
	c.log.Infof("executing plugin function directly: %s.%s", pluginID, functionID)

	loaded, err := c.Ensure(pluginID)
	if err != nil {
		c.log.Errorf(err, "error executing plugin function directly")
		return map[string]any{"complete": true, "error": err.Error()}
	}

	factory, ok := loaded.Functions[functionID]
	if !ok {
		c.log.Warnf("function '%s' not found in plugin '%s'", functionID, pluginID)
		return map[string]any{"complete": true}
	}

	temp := loaded.Device(uuid.NewString(), map[string]any{})
	outputs, err := factory(temp).Execute(ctx, inputs)
	if err != nil {
		c.log.Errorf(err, "error executing plugin function directly")
		return map[string]any{"complete": true, "error": err.Error()}
	}
	return outputs
}

// ToClassName converts a snake_case function id to its constructor name.
//
//	"move_absolute" -> "MoveAbsoluteFunction"
//	"home"          -> "HomeFunction"
func ToClassName(functionID string) string {
	caser := cases.Title(language.Und)
	parts := strings.Split(functionID, "_")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, "") + "Function"
}
