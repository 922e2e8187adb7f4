package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(w, "TOOL\tTITLE\tOUTPUT\tFIELDS\n")
			for _, spec := range catalog.Specs() {
				output := "text+sources"
				if spec.Output.Structured {
					output = "json"
				}
				names := ""
				for i, f := range spec.Input.Fields {
					if i > 0 {
						names += ", "
					}
					names += f.Name
					if f.Optional {
						names += "?"
					}
				}
				printf(w, "%s\t%s\t%s\t%s\n", spec.Tool, spec.Title, output, names)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema <tool>",
		Short: "Print a tool's input fields and output JSON Schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, err := catalog.Parse(args[0])
			if err != nil {
				return err
			}
			spec, err := catalog.SchemaFor(tool)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(spec, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode schema: %w", err)
			}
			printf(cmd.OutOrStdout(), "%s\n", data)
			return nil
		},
	})
	return cmd
}
