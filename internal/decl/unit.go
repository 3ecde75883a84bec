package decl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/traitkit/internal/typesystem"
)

// Unit is one compilation unit's worth of declarations, as loaded from a YAML
// file by the CLI driver. Units from independently processed files are merged
// by the pipeline; merge order is immaterial.
type Unit struct {
	Name      string
	Classes   []*ClassDecl
	Instances []*InstanceDecl
	Data      []*DataDecl
}

type unitFile struct {
	Unit      string         `yaml:"unit"`
	Classes   []classFile    `yaml:"classes"`
	Instances []instanceFile `yaml:"instances"`
	Data      []dataFile     `yaml:"data"`
}

type classFile struct {
	Name    string       `yaml:"name"`
	Params  []string     `yaml:"params"`
	Methods []methodFile `yaml:"methods"`
}

type methodFile struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Default []string `yaml:"default"` // sibling methods the default body uses
}

type instanceFile struct {
	Class    string            `yaml:"class"`
	Heads    []string          `yaml:"heads"`
	Requires []requirementFile `yaml:"requires"`
	Methods  []string          `yaml:"methods"` // explicitly implemented (bodies are external)
}

type requirementFile struct {
	Var   string   `yaml:"var"`
	Class string   `yaml:"class"`
	Args  []string `yaml:"args"`
}

type dataFile struct {
	Name         string     `yaml:"name"`
	Params       []string   `yaml:"params"`
	Constructors []ctorFile `yaml:"constructors"`
	Deriving     []string   `yaml:"deriving"`
}

type ctorFile struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

// LoadUnit reads and decodes one declaration unit file.
func LoadUnit(path string) (*Unit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeUnit(path, raw)
}

// DecodeUnit decodes declaration unit YAML. name is used when the file does
// not carry its own unit name.
func DecodeUnit(name string, raw []byte) (*Unit, error) {
	var f unitFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unit %s: %w", name, err)
	}
	if f.Unit != "" {
		name = f.Unit
	}

	u := &Unit{Name: name}

	for _, cf := range f.Classes {
		c := &ClassDecl{
			Name:     cf.Name,
			Params:   append([]string(nil), cf.Params...),
			Defaults: make(map[string]DefaultBody),
			Unit:     name,
		}
		for _, mf := range cf.Methods {
			sig, err := ParseTypeExpr(mf.Type)
			if err != nil {
				return nil, fmt.Errorf("unit %s: class %s method %s: %w", name, cf.Name, mf.Name, err)
			}
			c.Methods = append(c.Methods, MethodSig{Name: mf.Name, Type: sig})
			if mf.Default != nil {
				// Declared bodies live in the host compiler; the engine only
				// needs the dependency edges.
				c.Defaults[mf.Name] = DefaultBody{Uses: append([]string(nil), mf.Default...)}
			}
		}
		u.Classes = append(u.Classes, c)
	}

	for _, inf := range f.Instances {
		inst := &InstanceDecl{
			Class: inf.Class,
			Impls: make(map[string]Impl),
			Unit:  name,
		}
		for _, h := range inf.Heads {
			t, err := ParseTypeExpr(h)
			if err != nil {
				return nil, fmt.Errorf("unit %s: instance %s: %w", name, inf.Class, err)
			}
			inst.Heads = append(inst.Heads, t)
		}
		for _, rf := range inf.Requires {
			req := typesystem.Constraint{TypeVar: rf.Var, Class: rf.Class}
			for _, a := range rf.Args {
				t, err := ParseTypeExpr(a)
				if err != nil {
					return nil, fmt.Errorf("unit %s: instance %s requirement: %w", name, inf.Class, err)
				}
				req.Args = append(req.Args, t)
			}
			inst.Requirements = append(inst.Requirements, req)
		}
		key := inst.Key()
		for _, m := range inf.Methods {
			inst.Impls[m] = Impl{
				Method: m,
				Source: SourceExplicit,
				Ref:    MethodRef(inf.Class, key, m),
			}
		}
		u.Instances = append(u.Instances, inst)
	}

	for _, df := range f.Data {
		d := &DataDecl{
			Name:     df.Name,
			Params:   append([]string(nil), df.Params...),
			Deriving: append([]string(nil), df.Deriving...),
			Unit:     name,
		}
		for _, cf := range df.Constructors {
			ctor := CtorDecl{Name: cf.Name}
			for _, fld := range cf.Fields {
				t, err := ParseTypeExpr(fld)
				if err != nil {
					return nil, fmt.Errorf("unit %s: data %s constructor %s: %w", name, df.Name, cf.Name, err)
				}
				ctor.Fields = append(ctor.Fields, t)
			}
			d.Constructors = append(d.Constructors, ctor)
		}
		u.Data = append(u.Data, d)
	}

	return u, nil
}
