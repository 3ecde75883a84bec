// Package defaults completes instance method tables from class default
// bodies and rejects instances whose defaults would recurse forever.
package defaults

import (
	"sort"
	"strings"

	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/diagnostics"
	"github.com/funvibe/traitkit/internal/value"
)

// Graph records, per method of one class, which sibling methods its default
// body calls. The shape is class-level and shared by every instance; whether a
// cycle is harmful depends on the instance's explicit implementations.
type Graph map[string][]string

// BuildGraph derives the default dependency graph for a class. Edges point
// only at methods the class actually declares; a default body may mention
// free helpers without affecting completion.
func BuildGraph(c *decl.ClassDecl) Graph {
	g := make(Graph, len(c.Defaults))
	for name, body := range c.Defaults {
		var edges []string
		for _, used := range body.Uses {
			if c.HasMethod(used) {
				edges = append(edges, used)
			}
		}
		sort.Strings(edges)
		g[name] = edges
	}
	return g
}

// Check validates an instance's method coverage against its owning class:
// every declared method must be explicitly implemented or defaulted, and the
// defaults the instance relies on must not form a cycle with no explicitly
// implemented member (an unproductive cycle: the bodies would call each other
// forever with no base case).
func Check(c *decl.ClassDecl, g Graph, inst *decl.InstanceDecl) error {
	for _, m := range c.Methods {
		if _, ok := inst.Impls[m.Name]; ok {
			continue
		}
		if !c.HasDefault(m.Name) {
			return &diagnostics.Diagnostic{
				Code:    diagnostics.MissingMethod,
				Message: "instance " + c.Name + " for " + strings.Join(inst.HeadStrings(), ", ") + " is missing required method '" + m.Name + "'",
				Class:   c.Name,
				Heads:   inst.HeadStrings(),
				Unit:    inst.Unit,
			}
		}
	}

	if cycle := findUnproductiveCycle(c, g, inst); cycle != nil {
		return &diagnostics.Diagnostic{
			Code:    diagnostics.UnresolvableDefaults,
			Message: "instance " + c.Name + " for " + strings.Join(inst.HeadStrings(), ", ") + ": default methods [" + strings.Join(cycle, ", ") + "] only call each other",
			Class:   c.Name,
			Heads:   inst.HeadStrings(),
			Cycle:   cycle,
			Unit:    inst.Unit,
		}
	}
	return nil
}

// findUnproductiveCycle searches the default graph restricted to methods this
// instance fills from defaults. Any cycle in that restriction has no base
// case: every member would delegate to another default. The returned cycle is
// rotated so its lexicographically smallest method comes first.
func findUnproductiveCycle(c *decl.ClassDecl, g Graph, inst *decl.InstanceDecl) []string {
	defaulted := make(map[string]bool)
	for name := range g {
		if _, explicit := inst.Impls[name]; !explicit {
			defaulted[name] = true
		}
	}
	if len(defaulted) == 0 {
		return nil
	}

	nodes := make([]string, 0, len(defaulted))
	for name := range defaulted {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(nodes))
	var stack []string
	var cycle []string

	var visit func(string) bool
	visit = func(n string) bool {
		state[n] = inStack
		stack = append(stack, n)
		for _, next := range g[n] {
			if !defaulted[next] {
				// Explicitly implemented target breaks the recursion.
				continue
			}
			switch state[next] {
			case inStack:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						cycle = append([]string(nil), stack[i:]...)
						return true
					}
				}
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		return false
	}

	for _, n := range nodes {
		if state[n] == unvisited && visit(n) {
			return rotateSmallestFirst(cycle)
		}
	}
	return nil
}

func rotateSmallestFirst(cycle []string) []string {
	if len(cycle) == 0 {
		return cycle
	}
	min := 0
	for i, m := range cycle {
		if m < cycle[min] {
			min = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[min:]...)
	out = append(out, cycle[:min]...)
	return out
}

// Complete builds the instance's dictionary: explicit implementations are
// taken verbatim, the rest are filled from the class's default bodies bound
// to the emerging table. Check must have passed for this instance.
func Complete(c *decl.ClassDecl, g Graph, inst *decl.InstanceDecl) (*decl.Dictionary, error) {
	if err := Check(c, g, inst); err != nil {
		return nil, err
	}

	dict := decl.NewDictionary(c.Name, inst.Heads, c.MethodNames())
	key := inst.Key()

	for _, m := range c.Methods {
		if impl, ok := inst.Impls[m.Name]; ok {
			dict.Set(impl)
			continue
		}
		body := c.Defaults[m.Name]
		impl := decl.Impl{
			Method: m.Name,
			Source: decl.SourceDefault,
			Ref:    decl.MethodRef(c.Name, key, m.Name),
		}
		if body.Fn != nil {
			// Bind the body to this dictionary so sibling calls land on
			// whatever implementation the instance supplied.
			bodyFn := body.Fn
			impl.Fn = func(args ...value.Value) (value.Value, error) {
				return bodyFn(dict, args...)
			}
		}
		dict.Set(impl)
	}
	return dict, nil
}
