package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rigflow/rigflow/internal/catalog"
)

type pluginsOptions struct {
	jsonOutput bool
}

func newPluginsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect the device plugin catalog",
	}

	cmd.AddCommand(newPluginsListCmd(flags))

	return cmd
}

func newPluginsListCmd(flags *rootFlags) *cobra.Command {
	opts := &pluginsOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered device plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			app, err := newAppContext(cfg)
			if err != nil {
				return err
			}

			descriptors := app.Catalog.List()
			if len(descriptors) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No plugins found in %s.\n", cfg.Plugins.Dir)
				return nil
			}

			if opts.jsonOutput {
				return renderPluginsJSON(cmd, descriptors)
			}
			return renderPluginsTable(cmd, descriptors)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func renderPluginsTable(cmd *cobra.Command, descriptors []*catalog.Descriptor) error {
	sorted := make([]*catalog.Descriptor, len(descriptors))
	copy(sorted, descriptors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tVERSION\tCATEGORY\tFUNCTIONS")

	for _, d := range sorted {
		functions := make([]string, len(d.Functions))
		for i, fn := range d.Functions {
			functions[i] = fn.ID
		}

		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			d.ID,
			d.Name,
			d.Version,
			d.Category,
			strings.Join(functions, ", "),
		)
	}

	return writer.Flush()
}

func renderPluginsJSON(cmd *cobra.Command, descriptors []*catalog.Descriptor) error {
	sorted := make([]*catalog.Descriptor, len(descriptors))
	copy(sorted, descriptors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	payload := map[string]any{
		"count":   len(sorted),
		"plugins": sorted,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
