package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/componentregistry"
)

func newComponentsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "components [type]",
		Short: "List the available component types",
		Long: `Lists every registered component type. With a type name, describes
that component's ports.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := componentregistry.New()
			if err != nil {
				return err
			}

			var infos []component.Info
			if len(args) == 1 {
				info, err := registry.Describe(args[0])
				if err != nil {
					return err
				}
				infos = []component.Info{info}
			} else {
				infos = registry.ListAvailable()
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			if len(args) == 1 {
				return describeComponent(out, infos[0])
			}
			return listComponents(out, infos)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print component metadata as JSON")
	return cmd
}

func listComponents(w io.Writer, infos []component.Info) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tTYPE\tINPUTS\tOUTPUTS\tDESCRIPTION")
	for _, info := range infos {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			info.Name, info.Type, portList(info.Inputs), portList(info.Outputs), info.Description)
	}
	return tw.Flush()
}

func describeComponent(w io.Writer, info component.Info) error {
	_, _ = fmt.Fprintf(w, "%s (%s, v%s)\n  %s\n", info.Name, info.Type, info.Version, info.Description)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "\nPORT\tDIRECTION\tTYPES\tOPTIONAL\tDESCRIPTION")
	for _, p := range append(append([]component.PortInfo(nil), info.Inputs...), info.Outputs...) {
		types := "any"
		if len(p.Types) > 0 {
			types = strings.Join(p.Types, "|")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", portLabel(p), p.Direction, types, p.Optional, p.Description)
	}
	return tw.Flush()
}

func portList(ports []component.PortInfo) string {
	if len(ports) == 0 {
		return "-"
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = portLabel(p)
	}
	return strings.Join(names, ",")
}

func portLabel(p component.PortInfo) string {
	if p.Size > 0 {
		return fmt.Sprintf("%s[%d]", p.Name, p.Size)
	}
	return p.Name
}
