package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

func (s *Server) listPlugins(c echo.Context) error {
	plugins := s.opts.Catalog.List()
	return c.JSON(http.StatusOK, map[string]any{
		"plugins": plugins,
		"count":   len(plugins),
	})
}

func (s *Server) loadPlugin(c echo.Context) error {
	id := c.Param("id")
	loaded, err := s.opts.Catalog.Load(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"plugin_id": id,
		"message":   fmt.Sprintf("Plugin '%s' loaded", id),
		"plugin":    loaded.Descriptor,
	})
}

func (s *Server) reloadPlugin(c echo.Context) error {
	id := c.Param("id")
	loaded, err := s.opts.Catalog.Reload(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"plugin_id": id,
		"message":   fmt.Sprintf("Plugin '%s' reloaded", id),
		"plugin":    loaded.Descriptor,
	})
}

func (s *Server) unloadPlugin(c echo.Context) error {
	id := c.Param("id")
	if !s.opts.Catalog.Unload(id) {
		return rferrors.NewNotFoundError("plugin", id)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"plugin_id": id,
		"message":   fmt.Sprintf("Plugin '%s' unloaded", id),
	})
}
