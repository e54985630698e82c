package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/rigflow/rigflow/internal/config"
	"github.com/rigflow/rigflow/internal/engine"
	"github.com/rigflow/rigflow/internal/pipeline"
	"github.com/rigflow/rigflow/internal/tui"
	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

type runOptions struct {
	FilePath       string
	JSONOutput     bool
	NonInteractive bool
}

var runCmdRunner = runRun

func newRunCmd(flags *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run <pipeline-file>",
		Short: "Execute a pipeline definition from a file",
		Long:  "Execute a pipeline definition (JSON or YAML) against the local device registry, with a live progress view on a terminal.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.FilePath = args[0]
			opts.NonInteractive = opts.JSONOutput || !term.IsTerminal(int(os.Stdout.Fd()))

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return runCmdRunner(cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Print the run result as JSON")

	return cmd
}

func runRun(cfg *config.Config, opts runOptions) error {
	def, err := loadPipelineFile(opts.FilePath)
	if err != nil {
		return err
	}

	app, err := newAppContext(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.NonInteractive {
		result := app.Engine.Execute(ctx, def)
		return printRunResult(os.Stdout, def, result, opts.JSONOutput)
	}

	model := tui.NewModel(def)
	program := tea.NewProgram(model)

	sub := tui.Forward(app.Bus, program.Send)
	defer sub.Unsubscribe()

	var result *engine.Result
	done := make(chan struct{})
	go func() {
		defer close(done)
		result = app.Engine.Execute(ctx, def)
	}()

	final, err := program.Run()
	if err != nil {
		cancel()
		<-done
		return err
	}

	if m, ok := final.(tui.Model); ok && m.Cancelled() {
		cancel()
	}
	<-done

	if result != nil && !result.Success {
		return fmt.Errorf("pipeline failed: %s", result.Error)
	}
	return nil
}

// loadPipelineFile reads a pipeline definition. YAML documents are
// converted through JSON so both formats share the wire field names.
func loadPipelineFile(path string) (*pipeline.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rferrors.NewValidationError("pipeline", fmt.Sprintf("cannot read %s: %v", path, err), err)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, rferrors.NewValidationError("pipeline", fmt.Sprintf("%s: invalid YAML: %v", path, err), err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, rferrors.NewValidationError("pipeline", fmt.Sprintf("%s: %v", path, err), err)
		}
	}

	var def pipeline.Pipeline
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, rferrors.NewValidationError("pipeline", fmt.Sprintf("%s: invalid pipeline definition: %v", path, err), err)
	}

	if def.PipelineID == "" {
		def.PipelineID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := pipeline.Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

type runReport struct {
	PipelineID    string                    `json:"pipeline_id"`
	Success       bool                      `json:"success"`
	NodesExecuted int                       `json:"nodes_executed"`
	ExecutionTime float64                   `json:"execution_time"`
	Error         string                    `json:"error,omitempty"`
	Results       map[string]map[string]any `json:"results,omitempty"`
}

func printRunResult(w io.Writer, def *pipeline.Pipeline, result *engine.Result, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runReport{
			PipelineID:    def.PipelineID,
			Success:       result.Success,
			NodesExecuted: result.NodesExecuted,
			ExecutionTime: result.ExecutionTime,
			Error:         result.Error,
			Results:       result.Results,
		}); err != nil {
			return err
		}
	} else if result.Success {
		fmt.Fprintf(w, "pipeline %s completed: %d nodes in %.2fs\n", def.PipelineID, result.NodesExecuted, result.ExecutionTime)
	} else {
		fmt.Fprintf(w, "pipeline %s failed: %s\n", def.PipelineID, result.Error)
	}

	if !result.Success {
		return fmt.Errorf("pipeline failed: %s", result.Error)
	}
	return nil
}
