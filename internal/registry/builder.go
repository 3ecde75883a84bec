package registry

import (
	"sort"
	"strconv"
	"strings"

	"github.com/funvibe/traitkit/internal/config"
	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/defaults"
	"github.com/funvibe/traitkit/internal/diagnostics"
	"github.com/funvibe/traitkit/internal/log"
	"github.com/funvibe/traitkit/internal/typesystem"
)

// Builder accumulates declarations, validating each as it arrives. A rejected
// declaration leaves the builder unchanged. Builders are not safe for
// concurrent use; parallel compilation units are merged by the pipeline.
type Builder struct {
	classes   map[string]*decl.ClassDecl
	graphs    map[string]defaults.Graph
	data      map[string]*decl.DataDecl
	instances map[string][]*decl.InstanceDecl
}

func NewBuilder() *Builder {
	return &Builder{
		classes:   make(map[string]*decl.ClassDecl),
		graphs:    make(map[string]defaults.Graph),
		data:      make(map[string]*decl.DataDecl),
		instances: make(map[string][]*decl.InstanceDecl),
	}
}

// RegisterClass adds a class declaration. A second registration under the
// same name fails with DuplicateClass; a default body for an undeclared
// method fails with UnknownMethod.
func (b *Builder) RegisterClass(c *decl.ClassDecl) error {
	if _, exists := b.classes[c.Name]; exists {
		return &diagnostics.Diagnostic{
			Code:    diagnostics.DuplicateClass,
			Message: "class " + c.Name + " is already defined",
			Class:   c.Name,
			Unit:    c.Unit,
		}
	}
	if len(c.Params) == 0 {
		return &diagnostics.Diagnostic{
			Code:    diagnostics.ArityMismatch,
			Message: "class " + c.Name + " declares no type parameters",
			Class:   c.Name,
			Unit:    c.Unit,
		}
	}
	for name := range c.Defaults {
		if !c.HasMethod(name) {
			return &diagnostics.Diagnostic{
				Code:    diagnostics.UnknownMethod,
				Message: "class " + c.Name + " has a default for undeclared method '" + name + "'",
				Class:   c.Name,
				Unit:    c.Unit,
			}
		}
	}

	b.classes[c.Name] = c
	b.graphs[c.Name] = defaults.BuildGraph(c)
	log.Debug(log.CatRegistry, "class %s registered (%d methods, %d defaults)", c.Name, len(c.Methods), len(c.Defaults))
	return nil
}

// RegisterData adds a structural type definition.
func (b *Builder) RegisterData(d *decl.DataDecl) error {
	if _, exists := b.data[d.Name]; exists {
		return &diagnostics.Diagnostic{
			Code:    diagnostics.DuplicateData,
			Message: "type " + d.Name + " is already defined",
			Class:   d.Name,
			Unit:    d.Unit,
		}
	}
	b.data[d.Name] = d
	log.Debug(log.CatRegistry, "data %s registered (%d constructors)", d.Name, len(d.Constructors))
	return nil
}

// RegisterInstance validates an instance and, when accepted, stores it.
// Validation order follows the rest of the engine's diagnostics: the owning
// class must exist, the head arity must match, every implemented method must
// be declared, the matching key must not collide with an accepted instance,
// and the instance's defaults must be resolvable.
func (b *Builder) RegisterInstance(inst *decl.InstanceDecl) error {
	c, ok := b.classes[inst.Class]
	if !ok {
		return &diagnostics.Diagnostic{
			Code:    diagnostics.UnknownClass,
			Message: "instance references unknown class " + inst.Class,
			Class:   inst.Class,
			Heads:   inst.HeadStrings(),
			Unit:    inst.Unit,
		}
	}
	if len(inst.Heads) != c.Arity() {
		return &diagnostics.Diagnostic{
			Code:    diagnostics.ArityMismatch,
			Message: "instance supplies " + strconv.Itoa(len(inst.Heads)) + " head type(s), class " + c.Name + " expects " + strconv.Itoa(c.Arity()),
			Class:   c.Name,
			Heads:   inst.HeadStrings(),
			Unit:    inst.Unit,
		}
	}
	for name := range inst.Impls {
		if !c.HasMethod(name) {
			return &diagnostics.Diagnostic{
				Code:    diagnostics.UnknownMethod,
				Message: "instance " + c.Name + " for " + strings.Join(inst.HeadStrings(), ", ") + " implements unknown method '" + name + "'",
				Class:   c.Name,
				Heads:   inst.HeadStrings(),
				Unit:    inst.Unit,
			}
		}
	}

	if err := b.checkCoherence(c, inst); err != nil {
		return err
	}

	// Synthesized instances have their tables built by the synthesis engine
	// on first resolution; their defaults are never consulted.
	if !inst.Synthesized {
		if err := defaults.Check(c, b.graphs[c.Name], inst); err != nil {
			return err
		}
	}

	b.instances[c.Name] = append(b.instances[c.Name], inst)
	log.Debug(log.CatRegistry, "instance %s[%s] accepted", c.Name, inst.Key())
	return nil
}

// RegisterDerived requests structural synthesis for a type: it registers a
// marker instance that flows through the same coherence path as any other,
// so a hand-written instance for the same head collides as
// OverlappingInstance.
func (b *Builder) RegisterDerived(className, typeName, unit string) error {
	c, ok := b.classes[className]
	if !ok {
		return &diagnostics.Diagnostic{
			Code:    diagnostics.UnknownClass,
			Message: "cannot derive unknown class " + className,
			Class:   className,
			Heads:   []string{typeName},
			Unit:    unit,
		}
	}
	if !config.IsDerivable(className) {
		return &diagnostics.Diagnostic{
			Code:    diagnostics.UnknownClass,
			Message: "class " + className + " is not derivable (derivable: " + strings.Join(config.DerivableClasses, ", ") + ")",
			Class:   className,
			Heads:   []string{typeName},
			Unit:    unit,
		}
	}
	if _, ok := b.data[typeName]; !ok {
		return &diagnostics.Diagnostic{
			Code:    diagnostics.MissingFieldInstance,
			Message: "cannot derive " + className + " for " + typeName + ": no structural definition",
			Class:   className,
			Heads:   []string{typeName},
			Unit:    unit,
		}
	}
	if c.Arity() != 1 {
		return &diagnostics.Diagnostic{
			Code:    diagnostics.ArityMismatch,
			Message: "derivable classes take exactly one parameter, " + className + " takes " + strconv.Itoa(c.Arity()),
			Class:   className,
			Heads:   []string{typeName},
			Unit:    unit,
		}
	}

	inst := &decl.InstanceDecl{
		Class:       className,
		Heads:       []typesystem.Type{typesystem.TCon{Name: typeName}},
		Impls:       map[string]decl.Impl{},
		Synthesized: true,
		Unit:        unit,
	}
	return b.RegisterInstance(inst)
}

// checkCoherence rejects an instance whose matching key collides with an
// accepted one. Equal keys are OverlappingInstance; unequal keys that could
// still both match one concrete key (wildcard overlap) are AmbiguousInstance
// rather than silently accepted, since resolution could not rank them.
func (b *Builder) checkCoherence(c *decl.ClassDecl, inst *decl.InstanceDecl) error {
	key := inst.Key()
	for _, existing := range b.instances[c.Name] {
		existingKey := existing.Key()
		if existingKey.Equal(key) {
			return &diagnostics.Diagnostic{
				Code: diagnostics.OverlappingInstance,
				Message: "overlapping instances for class " + c.Name + ": " +
					strings.Join(existing.HeadStrings(), ", ") + " and " + strings.Join(inst.HeadStrings(), ", "),
				Class: c.Name,
				Heads: inst.HeadStrings(),
				Unit:  inst.Unit,
			}
		}
		if existingKey.Overlaps(key) {
			return &diagnostics.Diagnostic{
				Code: diagnostics.AmbiguousInstance,
				Message: "instances for class " + c.Name + " cannot be ranked: " +
					strings.Join(existing.HeadStrings(), ", ") + " and " + strings.Join(inst.HeadStrings(), ", ") +
					" both match some concrete types",
				Class: c.Name,
				Heads: inst.HeadStrings(),
				Unit:  inst.Unit,
			}
		}
	}
	return nil
}

// Seal freezes the builder into an immutable Registry. Instances are ordered
// by matching key so every query and report is independent of registration
// order.
func (b *Builder) Seal() *Registry {
	r := &Registry{
		classes:   make(map[string]*decl.ClassDecl, len(b.classes)),
		graphs:    make(map[string]defaults.Graph, len(b.graphs)),
		data:      make(map[string]*decl.DataDecl, len(b.data)),
		instances: make(map[string][]*decl.InstanceDecl, len(b.instances)),
	}
	for name, c := range b.classes {
		r.classes[name] = c
	}
	for name, g := range b.graphs {
		r.graphs[name] = g
	}
	for name, d := range b.data {
		r.data[name] = d
	}
	for name, insts := range b.instances {
		sorted := append([]*decl.InstanceDecl(nil), insts...)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Key().String() < sorted[j].Key().String()
		})
		r.instances[name] = sorted
	}
	log.Info(log.CatRegistry, "registry sealed: %d classes, %d data types", len(r.classes), len(r.data))
	return r
}
