package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rigflow/rigflow/internal/pipeline"
	"github.com/rigflow/rigflow/internal/store"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

type compositeRequest struct {
	Composite *pipeline.Composite `json:"composite"`
}

type compositeFromNodesRequest struct {
	Name          string           `json:"name"`
	Nodes         []map[string]any `json:"nodes"`
	Edges         []map[string]any `json:"edges"`
	ExternalEdges []map[string]any `json:"external_edges"`
}

func (s *Server) listComposites(c echo.Context) error {
	metas := s.opts.Composites.List()
	if category := c.QueryParam("category"); category != "" {
		filtered := make([]store.CompositeMetadata, 0, len(metas))
		for _, m := range metas {
			if m.Category == category {
				filtered = append(filtered, m)
			}
		}
		metas = filtered
	}
	return c.JSON(http.StatusOK, map[string]any{
		"composites": metas,
		"count":      len(metas),
	})
}

func (s *Server) getComposite(c echo.Context) error {
	comp, err := s.opts.Composites.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"composite": comp})
}

func (s *Server) createComposite(c echo.Context) error {
	req, err := bindComposite(c)
	if err != nil {
		return err
	}

	id, err := s.opts.Composites.Save(req.Composite)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"composite_id": id,
		"message":      fmt.Sprintf("Composite '%s' created successfully", req.Composite.Name),
		"composite":    req.Composite,
	})
}

func (s *Server) updateComposite(c echo.Context) error {
	req, err := bindComposite(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	if !s.opts.Composites.Exists(id) {
		return rferrors.NewNotFoundError("composite", id)
	}
	req.Composite.CompositeID = id

	if _, err := s.opts.Composites.Save(req.Composite); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"composite_id": id,
		"message":      fmt.Sprintf("Composite '%s' updated successfully", req.Composite.Name),
		"composite":    req.Composite,
	})
}

func (s *Server) deleteComposite(c echo.Context) error {
	id := c.Param("id")
	if !s.opts.Composites.Delete(id) {
		return rferrors.NewNotFoundError("composite", id)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"composite_id": id,
		"message":      fmt.Sprintf("Composite '%s' deleted successfully", id),
	})
}

// createCompositeFromNodes packages a canvas selection as a reusable
// composite. Pin mappings are derived from the edges that crossed the
// selection boundary; without any, the entry and exit nodes donate their
// declared pins.
func (s *Server) createCompositeFromNodes(c echo.Context) error {
	var req compositeFromNodesRequest
	if err := c.Bind(&req); err != nil {
		return rferrors.NewValidationError("body", "invalid request body", err)
	}
	if req.Name == "" {
		return rferrors.NewValidationError("name", "name is required", nil)
	}

	comp, err := compositeFromNodes(&req)
	if err != nil {
		return err
	}

	id, err := s.opts.Composites.Save(comp)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"composite_id": id,
		"message":      fmt.Sprintf("Composite '%s' created from %d nodes", comp.Name, len(req.Nodes)),
		"composite":    comp,
	})
}

func compositeFromNodes(req *compositeFromNodesRequest) (*pipeline.Composite, error) {
	if len(req.Nodes) == 0 {
		return nil, rferrors.NewValidationError("nodes", "at least one node is required", nil)
	}

	ids := make(map[string]bool, len(req.Nodes))
	for _, node := range req.Nodes {
		if id := stringField(node, "id"); id != "" {
			ids[id] = true
		}
	}

	var inputs []pipeline.CompositeInput
	var outputs []pipeline.CompositeOutput

	for _, edge := range req.ExternalEdges {
		source := stringField(edge, "source")
		target := stringField(edge, "target")
		sourceHandle := handleField(edge, "sourceHandle", "source_handle", "output")
		targetHandle := handleField(edge, "targetHandle", "target_handle", "input")

		switch {
		case !ids[source] && ids[target]:
			inputs = append(inputs, pipeline.CompositeInput{
				Name:   "in_" + targetHandle,
				Type:   pinType(req.Nodes, target, "inputs", targetHandle),
				MapsTo: target + "." + targetHandle,
			})
		case ids[source] && !ids[target]:
			outputs = append(outputs, pipeline.CompositeOutput{
				Name:     "out_" + sourceHandle,
				Type:     pinType(req.Nodes, source, "outputs", sourceHandle),
				MapsFrom: source + "." + sourceHandle,
			})
		}
	}

	if len(inputs) == 0 && len(outputs) == 0 {
		targets := make(map[string]bool, len(req.Edges))
		sources := make(map[string]bool, len(req.Edges))
		for _, edge := range req.Edges {
			targets[stringField(edge, "target")] = true
			sources[stringField(edge, "source")] = true
		}

		for _, node := range req.Nodes {
			id := stringField(node, "id")
			if id == "" {
				continue
			}
			if !targets[id] {
				for _, pin := range dataPins(node, "inputs") {
					name := stringField(pin, "name")
					if name == "" {
						continue
					}
					inputs = append(inputs, pipeline.CompositeInput{
						Name:   name,
						Type:   pinTypeOf(pin),
						MapsTo: id + "." + name,
					})
				}
			}
			if !sources[id] {
				for _, pin := range dataPins(node, "outputs") {
					name := stringField(pin, "name")
					if name == "" {
						continue
					}
					outputs = append(outputs, pipeline.CompositeOutput{
						Name:     name,
						Type:     pinTypeOf(pin),
						MapsFrom: id + "." + name,
					})
				}
			}
		}
	}

	subgraph, err := convertSubgraph(req.Nodes, req.Edges)
	if err != nil {
		return nil, err
	}

	return &pipeline.Composite{
		Name:        req.Name,
		Description: fmt.Sprintf("Composite created from %d nodes", len(req.Nodes)),
		Subgraph:    *subgraph,
		Inputs:      inputs,
		Outputs:     outputs,
	}, nil
}

// convertSubgraph turns raw canvas node and edge maps into the typed
// subgraph. Camel-cased edge handles from the canvas are normalized first.
func convertSubgraph(nodes, edges []map[string]any) (*pipeline.Subgraph, error) {
	normalized := make([]map[string]any, 0, len(edges))
	for _, edge := range edges {
		e := make(map[string]any, len(edge))
		for k, v := range edge {
			e[k] = v
		}
		if _, ok := e["source_handle"]; !ok {
			if v, ok := e["sourceHandle"]; ok {
				e["source_handle"] = v
			}
		}
		if _, ok := e["target_handle"]; !ok {
			if v, ok := e["targetHandle"]; ok {
				e["target_handle"] = v
			}
		}
		normalized = append(normalized, e)
	}

	raw, err := json.Marshal(map[string]any{"nodes": nodes, "edges": normalized})
	if err != nil {
		return nil, rferrors.NewValidationError("nodes", "cannot encode subgraph", err)
	}
	var sub pipeline.Subgraph
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, rferrors.NewValidationError("nodes", "invalid node or edge shape", err)
	}
	return &sub, nil
}

func pinType(nodes []map[string]any, nodeID, section, pin string) string {
	for _, node := range nodes {
		if stringField(node, "id") != nodeID {
			continue
		}
		for _, spec := range dataPins(node, section) {
			if stringField(spec, "name") == pin {
				return pinTypeOf(spec)
			}
		}
		break
	}
	return "any"
}

func pinTypeOf(pin map[string]any) string {
	if t := stringField(pin, "type"); t != "" {
		return t
	}
	return "any"
}

func dataPins(node map[string]any, section string) []map[string]any {
	data, _ := node["data"].(map[string]any)
	raw, _ := data[section].([]any)
	pins := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			pins = append(pins, m)
		}
	}
	return pins
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func handleField(edge map[string]any, camel, snake, fallback string) string {
	if v := stringField(edge, camel); v != "" {
		return v
	}
	if v := stringField(edge, snake); v != "" {
		return v
	}
	return fallback
}

func bindComposite(c echo.Context) (*compositeRequest, error) {
	var req compositeRequest
	if err := c.Bind(&req); err != nil {
		return nil, rferrors.NewValidationError("body", "invalid request body", err)
	}
	if req.Composite == nil {
		return nil, rferrors.NewValidationError("composite", "composite definition is required", nil)
	}
	return &req, nil
}
