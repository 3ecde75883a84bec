package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/resolve"
	"github.com/funvibe/traitkit/internal/typesystem"
)

var deriveCmd = &cobra.Command{
	Use:   "derive <class> <type>",
	Short: "Synthesize a structural instance and print its evidence",
	Long: `Synthesize an instance of a derivable class (Equal, Order, Show) for a
structurally defined type and print the dictionary that would be produced.
The type must have a data definition in the loaded units and every
constructor field must itself support the class.

Examples:
  traitd derive -u decls/ Equal Shape
  traitd derive -u decls/ Show "Pair Int Bool"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		className := args[0]
		head, err := decl.ParseTypeExpr(args[1])
		if err != nil {
			return fmt.Errorf("type %q: %w", args[1], err)
		}

		reg, diags, err := buildRegistry(nil)
		if err != nil {
			return err
		}
		if len(diags) > 0 {
			printDiagnostics(diags)
			return fmt.Errorf("%d problem(s) in declaration units", len(diags))
		}
		if _, ok := reg.LookupData(typesystem.HeadKey(head)); !ok {
			return fmt.Errorf("type %s has no data definition in the loaded units", head.String())
		}

		dict, err := resolve.New(reg).Resolve(className, []typesystem.Type{head})
		if err != nil {
			return err
		}
		printDictionary(dict, 0)
		return nil
	},
}
