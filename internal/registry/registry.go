// Package registry manages device instances. Each instance is created
// from a plugin, carries its own configuration and connection state, and
// exposes the plugin's functions. Connection lifecycle changes are
// published on the event bus.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/rigflow/rigflow/internal/bus"
	"github.com/rigflow/rigflow/internal/catalog"
	"github.com/rigflow/rigflow/internal/device"
	"github.com/rigflow/rigflow/internal/events"
	"github.com/rigflow/rigflow/internal/logger"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

// Instance is the listed view of a device instance.
type Instance struct {
	InstanceID string         `json:"instance_id"`
	PluginID   string         `json:"plugin_id"`
	Status     device.Status  `json:"status"`
	Config     map[string]any `json:"config"`
	Error      string         `json:"error,omitempty"`
}

// Registry is the table of live device instances.
type Registry struct {
	catalog *catalog.Catalog
	bus     *bus.Bus
	log     *logger.Logger

	mu        sync.RWMutex
	devices   map[string]device.Device
	plugins   map[string]string
	functions map[string]map[string]device.FunctionFactory
}

// New creates an empty registry backed by the given plugin catalog.
func New(cat *catalog.Catalog, b *bus.Bus, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		catalog:   cat,
		bus:       b,
		log:       log,
		devices:   make(map[string]device.Device),
		plugins:   make(map[string]string),
		functions: make(map[string]map[string]device.FunctionFactory),
	}
}

// Create builds a device instance from a plugin. The plugin is loaded on
// first use. When the config sets auto_connect, the device is connected
// right away; a failed auto-connect leaves the instance created.
func (r *Registry) Create(ctx context.Context, pluginID, instanceID string, config map[string]any) (device.Device, error) {
	r.mu.Lock()
	if _, exists := r.devices[instanceID]; exists {
		r.mu.Unlock()
		return nil, rferrors.NewAlreadyExistsError("device instance", instanceID)
	}
	r.mu.Unlock()

	loaded, err := r.catalog.Ensure(pluginID)
	if err != nil {
		return nil, err
	}

	dev := loaded.Device(instanceID, config)

	r.mu.Lock()
	if _, exists := r.devices[instanceID]; exists {
		r.mu.Unlock()
		return nil, rferrors.NewAlreadyExistsError("device instance", instanceID)
	}
	r.devices[instanceID] = dev
	r.plugins[instanceID] = pluginID
	r.functions[instanceID] = loaded.Functions
	r.mu.Unlock()

	r.log.Infof("created device instance '%s' from plugin '%s'", instanceID, pluginID)

	if device.ConfigBool(config, "auto_connect", false) {
		if err := r.Connect(ctx, instanceID); err != nil {
			r.log.Warnf("auto-connect failed for '%s': %v", instanceID, err)
		}
	}
	return dev, nil
}

// Remove disconnects and deletes a device instance.
func (r *Registry) Remove(ctx context.Context, instanceID string) error {
	r.mu.Lock()
	dev, ok := r.devices[instanceID]
	r.mu.Unlock()
	if !ok {
		return rferrors.NewNotFoundError("device instance", instanceID)
	}

	if dev.IsConnected() {
		r.disconnect(ctx, instanceID, dev, "removed")
	}

	r.mu.Lock()
	delete(r.devices, instanceID)
	delete(r.plugins, instanceID)
	delete(r.functions, instanceID)
	r.mu.Unlock()

	r.log.Infof("removed device instance '%s'", instanceID)
	return nil
}

// Get returns a device instance by id.
func (r *Registry) Get(instanceID string) (device.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[instanceID]
	if !ok {
		return nil, rferrors.NewNotFoundError("device instance", instanceID)
	}
	return dev, nil
}

// PluginID returns the plugin a device instance was created from.
func (r *Registry) PluginID(instanceID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.plugins[instanceID]
	return id, ok
}

// List returns all device instances sorted by id.
func (r *Registry) List() []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Instance, 0, len(r.devices))
	for id, dev := range r.devices {
		info := dev.Info()
		config, _ := info["config"].(map[string]any)
		out = append(out, Instance{
			InstanceID: id,
			PluginID:   r.plugins[id],
			Status:     dev.Status(),
			Config:     config,
			Error:      dev.LastError(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out
}

// Functions returns the function ids available on an instance, sorted.
func (r *Registry) Functions(instanceID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factories, ok := r.functions[instanceID]
	if !ok {
		return nil, rferrors.NewNotFoundError("device instance", instanceID)
	}
	ids := make([]string, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Execute runs a plugin function on a device instance. A fresh function
// value is built per call so functions never share state across
// executions.
func (r *Registry) Execute(ctx context.Context, instanceID, functionID string, inputs map[string]any) (map[string]any, error) {
	r.mu.RLock()
	dev, ok := r.devices[instanceID]
	factories := r.functions[instanceID]
	r.mu.RUnlock()

	if !ok {
		return nil, rferrors.NewNotFoundError("device instance", instanceID)
	}

	factory, ok := factories[functionID]
	if !ok {
		return nil, rferrors.NewDeviceFunctionError(instanceID, functionID,
			rferrors.NewNotFoundError("function", functionID))
	}

	r.log.Debugf("executing function '%s' on instance '%s'", functionID, instanceID)
	outputs, err := factory(dev).Execute(ctx, inputs)
	if err != nil {
		r.publishDeviceError(ctx, instanceID, err)
		return nil, rferrors.NewDeviceFunctionError(instanceID, functionID, err)
	}
	return outputs, nil
}

// Connect connects a device instance and publishes the state change.
func (r *Registry) Connect(ctx context.Context, instanceID string) error {
	r.mu.RLock()
	dev, ok := r.devices[instanceID]
	pluginID := r.plugins[instanceID]
	r.mu.RUnlock()
	if !ok {
		return rferrors.NewNotFoundError("device instance", instanceID)
	}

	if err := dev.Connect(ctx); err != nil {
		r.publishDeviceError(ctx, instanceID, err)
		return rferrors.NewDeviceConnectionError(instanceID, "connect failed", err)
	}

	if r.bus != nil {
		r.bus.Publish(ctx, events.DeviceConnected{DeviceID: instanceID, PluginID: pluginID})
	}
	r.log.Infof("connected device '%s'", instanceID)
	return nil
}

// Disconnect disconnects a device instance and publishes the state change.
func (r *Registry) Disconnect(ctx context.Context, instanceID string) error {
	r.mu.RLock()
	dev, ok := r.devices[instanceID]
	r.mu.RUnlock()
	if !ok {
		return rferrors.NewNotFoundError("device instance", instanceID)
	}
	return r.disconnect(ctx, instanceID, dev, "requested")
}

func (r *Registry) disconnect(ctx context.Context, instanceID string, dev device.Device, reason string) error {
	if err := dev.Disconnect(ctx); err != nil {
		r.publishDeviceError(ctx, instanceID, err)
		return rferrors.NewDeviceConnectionError(instanceID, "disconnect failed", err)
	}
	if r.bus != nil {
		r.bus.Publish(ctx, events.DeviceDisconnected{DeviceID: instanceID, Reason: reason})
	}
	r.log.Infof("disconnected device '%s'", instanceID)
	return nil
}

// ConnectAll connects every instance, reporting per-instance success.
func (r *Registry) ConnectAll(ctx context.Context) map[string]bool {
	results := make(map[string]bool)
	for _, id := range r.instanceIDs() {
		err := r.Connect(ctx, id)
		if err != nil {
			r.log.Errorf(err, "error connecting device '%s'", id)
		}
		results[id] = err == nil
	}
	return results
}

// DisconnectAll disconnects every instance, reporting per-instance success.
func (r *Registry) DisconnectAll(ctx context.Context) map[string]bool {
	results := make(map[string]bool)
	for _, id := range r.instanceIDs() {
		err := r.Disconnect(ctx, id)
		if err != nil {
			r.log.Errorf(err, "error disconnecting device '%s'", id)
		}
		results[id] = err == nil
	}
	return results
}

// HealthCheckAll probes every instance.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]bool {
	r.mu.RLock()
	devices := make(map[string]device.Device, len(r.devices))
	for id, dev := range r.devices {
		devices[id] = dev
	}
	r.mu.RUnlock()

	results := make(map[string]bool, len(devices))
	for id, dev := range devices {
		results[id] = dev.HealthCheck(ctx)
	}
	return results
}

func (r *Registry) instanceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) publishDeviceError(ctx context.Context, instanceID string, err error) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(ctx, events.DeviceError{
		DeviceID:     instanceID,
		ErrorMessage: err.Error(),
		ErrorType:    rferrors.TypeName(err),
	})
}
