package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [unit...]",
	Short: "Validate declaration units",
	Long: `Load the given units, register every declaration, and report all
diagnostics: duplicate classes, overlapping or ambiguous instances, missing
methods, and unresolvable default cycles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, diags, err := buildRegistry(args)
		if err != nil {
			return err
		}
		if len(diags) > 0 {
			printDiagnostics(diags)
			return fmt.Errorf("%d problem(s) found", len(diags))
		}
		classes := reg.AllClasses()
		total := 0
		for _, name := range classes {
			total += len(reg.InstancesOf(name))
		}
		fmt.Printf("ok: %d class(es), %d instance(s), %d data type(s)\n",
			len(classes), total, len(reg.AllData()))
		return nil
	},
}
