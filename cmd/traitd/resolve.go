package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/resolve"
	"github.com/funvibe/traitkit/internal/typesystem"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <class> <type>",
	Short: "Resolve a class constraint over a concrete type",
	Long: `Resolve a constraint like 'Equal (List Int)' against the loaded units
and print the resulting evidence: the dictionary's stable name, its method
entries, and the requirement dictionaries it depends on.

Examples:
  traitd resolve -u decls/ Equal Int
  traitd resolve -u decls/ Order "List (List Int)"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		className := args[0]
		queryType, err := decl.ParseTypeExpr(args[1])
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

		dict, err := resolve.New(reg).Resolve(className, []typesystem.Type{queryType})
		if err != nil {
			return err
		}
		printDictionary(dict, 0)
		return nil
	},
}

func printDictionary(d *decl.Dictionary, depth int) {
	indent := strings.Repeat("  ", depth)
	key := typesystem.KeyFor(d.Heads)
	fmt.Printf("%s%s\n", indent, decl.EvidenceName(d.Class, key))
	for _, name := range d.MethodNames() {
		impl, ok := d.Lookup(name)
		if !ok {
			continue
		}
		fmt.Printf("%s  %s -> %s (%s)\n", indent, name, impl.Ref, impl.Source)
	}
	for _, sub := range d.Requires {
		printDictionary(sub, depth+1)
	}
}
