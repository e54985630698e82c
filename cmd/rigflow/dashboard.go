package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rigflow/rigflow/internal/tui/dashboard"
)

func newDashboardCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive pipeline dashboard",
		Long:  "Open the TUI dashboard to browse saved pipelines and launch runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(flags)
		},
	}

	return cmd
}

func runDashboard(flags *rootFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	app, err := newAppContext(cfg)
	if err != nil {
		return err
	}

	m := dashboard.New(app.Pipelines, app.Engine)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
