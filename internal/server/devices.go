package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rigflow/rigflow/internal/device"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

type deviceCreateRequest struct {
	PluginID   string         `json:"plugin_id"`
	InstanceID string         `json:"instance_id"`
	Config     map[string]any `json:"config"`
}

type deviceResponse struct {
	InstanceID string         `json:"instance_id"`
	PluginID   string         `json:"plugin_id"`
	Status     device.Status  `json:"status"`
	Config     map[string]any `json:"config"`
	Error      string         `json:"error,omitempty"`
}

type functionExecuteResponse struct {
	Success       bool           `json:"success"`
	InstanceID    string         `json:"instance_id"`
	FunctionID    string         `json:"function_id"`
	Outputs       map[string]any `json:"outputs"`
	Error         string         `json:"error,omitempty"`
	ExecutionTime float64        `json:"execution_time"`
}

func (s *Server) listDevices(c echo.Context) error {
	devices := s.opts.Registry.List()
	return c.JSON(http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

func (s *Server) createDevice(c echo.Context) error {
	var req deviceCreateRequest
	if err := c.Bind(&req); err != nil {
		return rferrors.NewValidationError("body", "invalid request body", err)
	}
	if req.PluginID == "" {
		return rferrors.NewValidationError("plugin_id", "plugin_id is required", nil)
	}
	if req.InstanceID == "" {
		return rferrors.NewValidationError("instance_id", "instance_id is required", nil)
	}

	dev, err := s.opts.Registry.Create(c.Request().Context(), req.PluginID, req.InstanceID, req.Config)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.deviceView(dev, req.PluginID))
}

func (s *Server) deleteDevice(c echo.Context) error {
	id := c.Param("id")
	if err := s.opts.Registry.Remove(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"instance_id": id,
		"message":     fmt.Sprintf("Device '%s' deleted successfully", id),
	})
}

func (s *Server) connectDevice(c echo.Context) error {
	id := c.Param("id")
	if err := s.opts.Registry.Connect(c.Request().Context(), id); err != nil {
		return err
	}
	return s.respondDeviceState(c, id)
}

func (s *Server) disconnectDevice(c echo.Context) error {
	id := c.Param("id")
	if err := s.opts.Registry.Disconnect(c.Request().Context(), id); err != nil {
		return err
	}
	return s.respondDeviceState(c, id)
}

func (s *Server) listDeviceFunctions(c echo.Context) error {
	id := c.Param("id")
	functions, err := s.opts.Registry.Functions(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"instance_id": id,
		"functions":   functions,
		"count":       len(functions),
	})
}

// executeDeviceFunction runs a single device function. A missing instance
// is a 404; execution failures come back as 200 with success false so
// operators can poke at hardware without tripping error middleware.
func (s *Server) executeDeviceFunction(c echo.Context) error {
	instanceID := c.Param("id")
	functionID := c.Param("function_id")

	var req struct {
		Inputs map[string]any `json:"inputs"`
	}
	if err := c.Bind(&req); err != nil {
		return rferrors.NewValidationError("body", "invalid request body", err)
	}

	if _, err := s.opts.Registry.Get(instanceID); err != nil {
		return err
	}

	start := time.Now()
	outputs, err := s.opts.Registry.Execute(c.Request().Context(), instanceID, functionID, req.Inputs)
	elapsed := time.Since(start).Seconds()

	resp := functionExecuteResponse{
		Success:       err == nil,
		InstanceID:    instanceID,
		FunctionID:    functionID,
		Outputs:       outputs,
		ExecutionTime: elapsed,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if resp.Outputs == nil {
		resp.Outputs = map[string]any{}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) respondDeviceState(c echo.Context, instanceID string) error {
	dev, err := s.opts.Registry.Get(instanceID)
	if err != nil {
		return err
	}
	pluginID, _ := s.opts.Registry.PluginID(instanceID)
	return c.JSON(http.StatusOK, s.deviceView(dev, pluginID))
}

func (s *Server) deviceView(dev device.Device, pluginID string) deviceResponse {
	return deviceResponse{
		InstanceID: dev.ID(),
		PluginID:   pluginID,
		Status:     dev.Status(),
		Config:     dev.Config(),
		Error:      dev.LastError(),
	}
}
