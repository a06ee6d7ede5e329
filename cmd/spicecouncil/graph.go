package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/c360studio/spicecouncil/bundle"
	"github.com/c360studio/spicecouncil/diagram"
	"github.com/c360studio/spicecouncil/netlist"
)

func graphCmd(flags *rootFlags) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "graph <netlist>",
		Short: "Render a netlist's component connectivity as Graphviz DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, err := setup(flags)
			if err != nil {
				return err
			}

			text, err := bundle.ReadNetlist(args[0])
			if err != nil {
				return fmt.Errorf("read netlist: %w", err)
			}

			g := diagram.FromComponents(netlist.Parse(text))
			g.Provenance = "generated from " + filepath.Base(args[0])
			dot := g.DOT()

			if outPath == "" {
				fmt.Print(dot)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(dot), 0o644); err != nil {
				return fmt.Errorf("write DOT file: %w", err)
			}
			fmt.Printf("Wrote %s (%d nodes, %d edges)\n", outPath, len(g.Nodes), len(g.Edges))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write DOT to a file instead of stdout")

	return cmd
}
