// Package pipeline assembles declaration units into a sealed registry. Units
// may arrive in any order (directory walks, parallel loads); the merge stage
// imposes a canonical order before registration so the accepted set and every
// diagnostic are reproducible.
package pipeline

import (
	"sort"

	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/derive"
	"github.com/funvibe/traitkit/internal/diagnostics"
	"github.com/funvibe/traitkit/internal/log"
	"github.com/funvibe/traitkit/internal/registry"
)

// Context carries state between stages.
type Context struct {
	Units []*decl.Unit

	Classes   []*decl.ClassDecl
	Data      []*decl.DataDecl
	Instances []*decl.InstanceDecl

	Builder  *registry.Builder
	Registry *registry.Registry
	Diags    []*diagnostics.Diagnostic
}

func (c *Context) report(err error) {
	c.Diags = append(c.Diags, diagnostics.FromError(err)...)
}

type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline is a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the stages in order. Stages continue past diagnostics so one
// pass reports every problem in the unit set.
func (p *Pipeline) Run(ctx *Context) *Context {
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}

// Build runs the standard chain over a unit set and returns the sealed
// registry. The registry reflects every accepted declaration even when the
// error is non-nil; the error combines all diagnostics in canonical order.
func Build(units []*decl.Unit) (*registry.Registry, error) {
	ctx := &Context{Units: units, Builder: registry.NewBuilder()}
	ctx = New(&PreludeProcessor{}, &MergeProcessor{}, &RegisterProcessor{}, &SealProcessor{}).Run(ctx)
	diagnostics.Sort(ctx.Diags)
	return ctx.Registry, diagnostics.Combine(ctx.Diags)
}

// PreludeProcessor seeds the builder with the built-in classes and leaf
// instances before any user declarations register.
type PreludeProcessor struct{}

func (pp *PreludeProcessor) Process(ctx *Context) *Context {
	if err := derive.Prelude(ctx.Builder); err != nil {
		ctx.report(err)
	}
	return ctx
}

// MergeProcessor flattens the units into sorted declaration lists. The sort
// key is the declaration's identity (name, or class and matching key) with
// the unit name as tiebreaker, so registration order never depends on the
// order units were handed in.
type MergeProcessor struct{}

func (mp *MergeProcessor) Process(ctx *Context) *Context {
	for _, u := range ctx.Units {
		ctx.Classes = append(ctx.Classes, u.Classes...)
		ctx.Data = append(ctx.Data, u.Data...)
		ctx.Instances = append(ctx.Instances, u.Instances...)
	}
	sort.SliceStable(ctx.Classes, func(i, j int) bool {
		a, b := ctx.Classes[i], ctx.Classes[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Unit < b.Unit
	})
	sort.SliceStable(ctx.Data, func(i, j int) bool {
		a, b := ctx.Data[i], ctx.Data[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Unit < b.Unit
	})
	sort.SliceStable(ctx.Instances, func(i, j int) bool {
		a, b := ctx.Instances[i], ctx.Instances[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if ak, bk := a.Key().String(), b.Key().String(); ak != bk {
			return ak < bk
		}
		return a.Unit < b.Unit
	})
	log.Debug(log.CatPipeline, "merged %d units: %d classes, %d data, %d instances",
		len(ctx.Units), len(ctx.Classes), len(ctx.Data), len(ctx.Instances))
	return ctx
}

// RegisterProcessor feeds the merged declarations to the builder: classes,
// then data, then instances, then derivation requests. A rejected declaration
// becomes a diagnostic and registration continues.
type RegisterProcessor struct{}

func (rp *RegisterProcessor) Process(ctx *Context) *Context {
	for _, c := range ctx.Classes {
		if err := ctx.Builder.RegisterClass(c); err != nil {
			ctx.report(err)
		}
	}
	for _, d := range ctx.Data {
		if err := ctx.Builder.RegisterData(d); err != nil {
			ctx.report(err)
		}
	}
	for _, inst := range ctx.Instances {
		if err := ctx.Builder.RegisterInstance(inst); err != nil {
			ctx.report(err)
		}
	}
	for _, d := range ctx.Data {
		for _, className := range d.Deriving {
			if err := ctx.Builder.RegisterDerived(className, d.Name, d.Unit); err != nil {
				ctx.report(err)
			}
		}
	}
	return ctx
}

// SealProcessor freezes the builder.
type SealProcessor struct{}

func (sp *SealProcessor) Process(ctx *Context) *Context {
	ctx.Registry = ctx.Builder.Seal()
	return ctx
}
