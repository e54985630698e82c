package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("value_type", func(fl validator.FieldLevel) bool {
			_, ok := ValueTypes[fl.Field().String()]
			return ok
		})

		_ = v.RegisterValidation("pin_ref", func(fl validator.FieldLevel) bool {
			ref := fl.Field().String()
			i := strings.Index(ref, ".")
			return i > 0 && i < len(ref)-1
		})

		validateInst = v
	})

	return validateInst
}

// Validate performs schema and cross-reference validation on a pipeline
// definition. Graph-level cycle checks are the engine's job.
func Validate(p *Pipeline) error {
	if p == nil {
		return rferrors.NewValidationError("pipeline", "definition is nil", nil)
	}

	if err := validatorInstance().Struct(p); err != nil {
		return convertValidatorError(err)
	}

	return validateGraph(p.Nodes, p.Edges, "")
}

// ValidateComposite performs schema and cross-reference validation on a
// composite definition, including its input/output pin mappings.
func ValidateComposite(c *Composite) error {
	if c == nil {
		return rferrors.NewValidationError("composite", "definition is nil", nil)
	}

	if err := validatorInstance().Struct(c); err != nil {
		return convertValidatorError(err)
	}

	if err := validateGraph(c.Subgraph.Nodes, c.Subgraph.Edges, "subgraph."); err != nil {
		return err
	}

	internal := make(map[string]struct{}, len(c.Subgraph.Nodes))
	for _, n := range c.Subgraph.Nodes {
		internal[n.ID] = struct{}{}
	}

	for i, in := range c.Inputs {
		target := strings.SplitN(in.MapsTo, ".", 2)[0]
		if _, ok := internal[target]; !ok {
			field := fmt.Sprintf("inputs[%d].maps_to", i)
			return rferrors.NewValidationError(field, fmt.Sprintf("references unknown internal node %q", target), nil)
		}
	}

	for i, out := range c.Outputs {
		source := strings.SplitN(out.MapsFrom, ".", 2)[0]
		if _, ok := internal[source]; !ok {
			field := fmt.Sprintf("outputs[%d].maps_from", i)
			return rferrors.NewValidationError(field, fmt.Sprintf("references unknown internal node %q", source), nil)
		}
	}

	return nil
}

func validateGraph(nodes []Node, edges []Edge, prefix string) error {
	ids := make(map[string]struct{}, len(nodes))

	for i, n := range nodes {
		if !n.Type.Valid() {
			field := fmt.Sprintf("%snodes[%d].type", prefix, i)
			return rferrors.NewValidationError(field, fmt.Sprintf("unknown node type %q", n.Type), nil)
		}
		if _, exists := ids[n.ID]; exists {
			field := fmt.Sprintf("%snodes[%d].id", prefix, i)
			return rferrors.NewValidationError(field, fmt.Sprintf("duplicate node id %q", n.ID), nil)
		}
		ids[n.ID] = struct{}{}
	}

	for i, e := range edges {
		if _, ok := ids[e.Source]; !ok {
			field := fmt.Sprintf("%sedges[%d].source", prefix, i)
			return rferrors.NewValidationError(field, fmt.Sprintf("references unknown node %q", e.Source), nil)
		}
		if _, ok := ids[e.Target]; !ok {
			field := fmt.Sprintf("%sedges[%d].target", prefix, i)
			return rferrors.NewValidationError(field, fmt.Sprintf("references unknown node %q", e.Target), nil)
		}
	}

	return nil
}

func convertValidatorError(err error) error {
	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
		first := verrs[0]
		field := strings.ToLower(first.Namespace())
		return rferrors.NewValidationError(field, fmt.Sprintf("failed %q constraint", first.Tag()), err)
	}
	return rferrors.NewValidationError("", err.Error(), err)
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	v, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = v
	return true
}
