package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hamed0406/infraprobe/internal/catalog"
	"github.com/hamed0406/infraprobe/internal/probe"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config_file>",
		Short: "Load a test config and list its suites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(args[0])
			if err != nil {
				return &exitError{code: exitFail, err: err}
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Suite", "Test", "Type", "Target", "Note"})

			unknown := 0
			for _, s := range cat.TestSuites {
				for _, spec := range s.Tests {
					note := ""
					if spec.Skip {
						note = "skipped"
					}
					if _, err := probe.ParseKind(spec.Type); err != nil {
						note = "unknown type"
						unknown++
					}
					t.AppendRow(table.Row{s.Name, spec.Name, spec.Type, spec.Target, note})
				}
			}
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "%d suites, %d tests\n", len(cat.TestSuites), cat.TotalTests())

			if unknown > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d test(s) have an unknown type and will FAIL\n", unknown)
			}
			return nil
		},
	}
}
