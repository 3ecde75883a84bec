// Command traitd is a development driver for the resolution engine: it loads
// YAML declaration units, builds a registry, and answers constraint queries
// from the command line.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/funvibe/traitkit/internal/config"
	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/diagnostics"
	"github.com/funvibe/traitkit/internal/log"
	"github.com/funvibe/traitkit/internal/pipeline"
	"github.com/funvibe/traitkit/internal/registry"
)

var version = "dev"

var unitPaths []string

var rootCmd = &cobra.Command{
	Use:     "traitd",
	Short:   "Type class declaration checker and dictionary resolver",
	Long: `traitd loads declaration units (classes, instances, data definitions),
validates them (coherence, default totality), and resolves class constraints
over concrete types into dictionaries.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&unitPaths, "unit", "u", nil,
		"declaration unit file or directory (repeatable)")
	_ = viper.BindPFlag("units", rootCmd.PersistentFlags().Lookup("unit"))
	viper.SetEnvPrefix("TRAITD")
	viper.AutomaticEnv()

	rootCmd.AddCommand(checkCmd, resolveCmd, deriveCmd)
}

// loadUnits reads every unit named by --unit plus any positional paths.
// Directories contribute all their .yaml files in lexical order.
func loadUnits(extra []string) ([]*decl.Unit, error) {
	paths := append(append([]string(nil), viper.GetStringSlice("units")...), extra...)
	var units []*decl.Unit
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("unit path %s: %w", p, err)
		}
		if info.IsDir() {
			entries, err := filepath.Glob(filepath.Join(p, "*"+config.DeclFileExt))
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				u, err := decl.LoadUnit(e)
				if err != nil {
					return nil, err
				}
				units = append(units, u)
			}
			continue
		}
		u, err := decl.LoadUnit(p)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	log.Debug(log.CatCLI, "loaded %d unit(s) from %d path(s)", len(units), len(paths))
	return units, nil
}

func buildRegistry(extra []string) (*registry.Registry, []*diagnostics.Diagnostic, error) {
	units, err := loadUnits(extra)
	if err != nil {
		return nil, nil, err
	}
	reg, buildErr := pipeline.Build(units)
	return reg, diagnostics.FromError(buildErr), nil
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

func colorize(color, s string) string {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return s
	}
	return color + s + ansiReset
}

func printDiagnostics(diags []*diagnostics.Diagnostic) {
	for _, d := range diags {
		loc := ""
		if d.Unit != "" {
			loc = d.Unit + ": "
		}
		fmt.Fprintf(os.Stderr, "%s %s%s\n", colorize(ansiRed, string(d.Code)), loc, d.Message)
		if len(d.Cycle) > 0 {
			fmt.Fprintf(os.Stderr, "  %s\n", colorize(ansiYellow, "cycle: "+strings.Join(d.Cycle, " -> ")))
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorize(ansiRed, "error: "+err.Error()))
		os.Exit(1)
	}
}
