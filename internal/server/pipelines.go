package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rigflow/rigflow/internal/pipeline"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

type pipelineRequest struct {
	Pipeline *pipeline.Pipeline `json:"pipeline"`
}

type pipelineRunResponse struct {
	Success       bool                      `json:"success"`
	PipelineID    string                    `json:"pipeline_id"`
	ExecutionTime float64                   `json:"execution_time"`
	NodesExecuted int                       `json:"nodes_executed"`
	Results       map[string]map[string]any `json:"results"`
	Error         string                    `json:"error,omitempty"`
}

// executePipeline runs a definition straight from the request body. The
// response is always 200: execution failures are reported in the body, the
// way the engine reports them on the bus.
func (s *Server) executePipeline(c echo.Context) error {
	req, err := bindPipeline(c)
	if err != nil {
		return err
	}
	return s.runPipeline(c, req.Pipeline)
}

func (s *Server) executeSavedPipeline(c echo.Context) error {
	def, err := s.opts.Pipelines.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return s.runPipeline(c, def)
}

func (s *Server) runPipeline(c echo.Context, def *pipeline.Pipeline) error {
	result := s.opts.Engine.Execute(c.Request().Context(), def)
	return c.JSON(http.StatusOK, pipelineRunResponse{
		Success:       result.Success,
		PipelineID:    def.PipelineID,
		ExecutionTime: result.ExecutionTime,
		NodesExecuted: result.NodesExecuted,
		Results:       result.Results,
		Error:         result.Error,
	})
}

func (s *Server) savePipeline(c echo.Context) error {
	req, err := bindPipeline(c)
	if err != nil {
		return err
	}
	return s.storePipeline(c, req.Pipeline)
}

func (s *Server) updatePipeline(c echo.Context) error {
	req, err := bindPipeline(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	if !s.opts.Pipelines.Exists(id) {
		return rferrors.NewNotFoundError("pipeline", id)
	}
	req.Pipeline.PipelineID = id
	return s.storePipeline(c, req.Pipeline)
}

func (s *Server) storePipeline(c echo.Context, def *pipeline.Pipeline) error {
	if def.PipelineID == "" {
		return rferrors.NewValidationError("pipeline.pipeline_id", "pipeline_id is required", nil)
	}
	if err := pipeline.Validate(def); err != nil {
		return err
	}

	id, err := s.opts.Pipelines.Save(def)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"pipeline_id": id,
		"message":     fmt.Sprintf("Pipeline '%s' saved successfully", id),
	})
}

func (s *Server) listPipelines(c echo.Context) error {
	metas := s.opts.Pipelines.List()
	return c.JSON(http.StatusOK, map[string]any{
		"pipelines": metas,
		"count":     len(metas),
	})
}

func (s *Server) getPipeline(c echo.Context) error {
	def, err := s.opts.Pipelines.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"pipeline": def})
}

func (s *Server) deletePipeline(c echo.Context) error {
	id := c.Param("id")
	if !s.opts.Pipelines.Delete(id) {
		return rferrors.NewNotFoundError("pipeline", id)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"pipeline_id": id,
		"message":     fmt.Sprintf("Pipeline '%s' deleted successfully", id),
	})
}

func bindPipeline(c echo.Context) (*pipelineRequest, error) {
	var req pipelineRequest
	if err := c.Bind(&req); err != nil {
		return nil, rferrors.NewValidationError("body", "invalid request body", err)
	}
	if req.Pipeline == nil {
		return nil, rferrors.NewValidationError("pipeline", "pipeline definition is required", nil)
	}
	return &req, nil
}
