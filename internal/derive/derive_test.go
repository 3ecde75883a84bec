package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/traitkit/internal/config"
	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/defaults"
	"github.com/funvibe/traitkit/internal/diagnostics"
	"github.com/funvibe/traitkit/internal/registry"
	"github.com/funvibe/traitkit/internal/typesystem"
	"github.com/funvibe/traitkit/internal/value"
)

// registryLookup discharges field obligations against a sealed registry,
// completing each matching instance with its class defaults.
type registryLookup struct {
	r *registry.Registry
}

func (l registryLookup) Dict(className string, args []typesystem.Type) (*decl.Dictionary, error) {
	inst, _, ok := l.r.FindInstance(className, args)
	if !ok {
		return nil, diagnostics.New(diagnostics.NoInstance, "no %s instance for %s", className, args[0].String())
	}
	c, _ := l.r.LookupClass(className)
	g, _ := l.r.DefaultGraph(className)
	return defaults.Complete(c, g, inst)
}

func preludeRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	b := registry.NewBuilder()
	require.NoError(t, Prelude(b))
	return b.Seal()
}

// shapeData is a two-constructor sum: P Int | Q Int.
func shapeData() *decl.DataDecl {
	intT := typesystem.TCon{Name: config.IntTypeName}
	return &decl.DataDecl{
		Name: "Shape",
		Constructors: []decl.CtorDecl{
			{Name: "P", Fields: []typesystem.Type{intT}},
			{Name: "Q", Fields: []typesystem.Type{intT}},
		},
	}
}

func synthDict(t *testing.T, r *registry.Registry, className string, data *decl.DataDecl) *decl.Dictionary {
	t.Helper()
	c, ok := r.LookupClass(className)
	require.True(t, ok)
	head := typesystem.TCon{Name: data.Name}

	impls, err := Synthesize(c, data, head, registryLookup{r})
	require.NoError(t, err)

	inst := &decl.InstanceDecl{
		Class:       className,
		Heads:       []typesystem.Type{head},
		Impls:       impls,
		Synthesized: true,
	}
	g, _ := r.DefaultGraph(className)
	dict, err := defaults.Complete(c, g, inst)
	require.NoError(t, err)
	return dict
}

func p(n int64) value.Value { return value.Con{Ctor: "P", Fields: []value.Value{value.Int(n)}} }
func q(n int64) value.Value { return value.Con{Ctor: "Q", Fields: []value.Value{value.Int(n)}} }

func TestSynthesizedEqual(t *testing.T) {
	r := preludeRegistry(t)
	dict := synthDict(t, r, config.EqualClassName, shapeData())

	tests := []struct {
		name  string
		left  value.Value
		right value.Value
		want  bool
	}{
		{"same constructor same field", p(3), p(3), true},
		{"same constructor different field", p(3), p(4), false},
		{"different constructors same field", p(3), q(3), false},
		{"different constructors different field", q(1), p(2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := dict.Invoke(config.EqMethodName, tt.left, tt.right)
			require.NoError(t, err)
			got, err := value.AsBool(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// neq comes from the class default and must be the complement.
			v, err = dict.Invoke(config.NeqMethodName, tt.left, tt.right)
			require.NoError(t, err)
			got, err = value.AsBool(v)
			require.NoError(t, err)
			assert.Equal(t, !tt.want, got)
		})
	}
}

func TestSynthesizedOrder(t *testing.T) {
	r := preludeRegistry(t)
	dict := synthDict(t, r, config.OrderClassName, shapeData())

	tests := []struct {
		name  string
		left  value.Value
		right value.Value
		want  value.Ordering
	}{
		{"earlier constructor ranks lower", p(9), q(0), value.Less},
		{"later constructor ranks higher", q(0), p(9), value.Greater},
		{"same constructor compares fields", p(1), p(2), value.Less},
		{"identical values compare equal", q(5), q(5), value.Equal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := dict.Invoke(config.CmpMethodName, tt.left, tt.right)
			require.NoError(t, err)
			got, err := value.AsOrdering(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// lt is a class default over cmp.
	v, err := dict.Invoke(config.LtMethodName, p(9), q(0))
	require.NoError(t, err)
	got, err := value.AsBool(v)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestSynthesizedShow(t *testing.T) {
	r := preludeRegistry(t)

	dict := synthDict(t, r, config.ShowClassName, shapeData())
	v, err := dict.Invoke(config.ShowMethodName, p(3))
	require.NoError(t, err)
	assert.Equal(t, value.Str("P 3"), v)
}

func TestSynthesizedShowParenthesizesNestedConstructors(t *testing.T) {
	b := registry.NewBuilder()
	require.NoError(t, Prelude(b))
	r := b.Seal()

	inner := shapeData()
	innerDict := synthDict(t, r, config.ShowClassName, inner)

	// Wrap a Shape inside a Box and resolve the inner field through a lookup
	// that already knows Shape.
	lk := stubLookup{
		parent: registryLookup{r},
		dicts:  map[string]*decl.Dictionary{"Shape": innerDict},
	}
	box := &decl.DataDecl{
		Name: "Box",
		Constructors: []decl.CtorDecl{
			{Name: "Box", Fields: []typesystem.Type{typesystem.TCon{Name: "Shape"}, typesystem.TCon{Name: config.IntTypeName}}},
		},
	}
	c, ok := r.LookupClass(config.ShowClassName)
	require.True(t, ok)
	impls, err := Synthesize(c, box, typesystem.TCon{Name: "Box"}, lk)
	require.NoError(t, err)

	v, err := impls[config.ShowMethodName].Fn(value.Con{Ctor: "Box", Fields: []value.Value{p(3), value.Int(7)}})
	require.NoError(t, err)
	assert.Equal(t, value.Str("Box (P 3) 7"), v)
}

func TestSynthesizeFailsWithoutFieldInstance(t *testing.T) {
	r := preludeRegistry(t)
	c, ok := r.LookupClass(config.EqualClassName)
	require.True(t, ok)

	data := &decl.DataDecl{
		Name: "Holder",
		Constructors: []decl.CtorDecl{
			{Name: "Hold", Fields: []typesystem.Type{typesystem.TCon{Name: "Opaque"}}},
		},
	}
	_, err := Synthesize(c, data, typesystem.TCon{Name: "Holder"}, registryLookup{r})
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.MissingFieldInstance))
	assert.Contains(t, err.Error(), "Opaque")
}

func TestSynthesizeParameterizedType(t *testing.T) {
	r := preludeRegistry(t)
	c, ok := r.LookupClass(config.EqualClassName)
	require.True(t, ok)

	pair := &decl.DataDecl{
		Name:   "Pair",
		Params: []string{"a", "b"},
		Constructors: []decl.CtorDecl{
			{Name: "Pair", Fields: []typesystem.Type{typesystem.TVar{Name: "a"}, typesystem.TVar{Name: "b"}}},
		},
	}
	head := typesystem.TApp{
		Constructor: typesystem.TCon{Name: "Pair"},
		Args:        []typesystem.Type{typesystem.TCon{Name: config.IntTypeName}, typesystem.TCon{Name: config.BoolTypeName}},
	}
	impls, err := Synthesize(c, pair, head, registryLookup{r})
	require.NoError(t, err)

	mk := func(n int64, flag bool) value.Value {
		return value.Con{Ctor: "Pair", Fields: []value.Value{value.Int(n), value.Bool(flag)}}
	}
	v, err := impls[config.EqMethodName].Fn(mk(1, true), mk(1, true))
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), v)

	v, err = impls[config.EqMethodName].Fn(mk(1, true), mk(1, false))
	require.NoError(t, err)
	assert.Equal(t, value.Bool(false), v)
}

// stubLookup serves fixed dictionaries by head name, falling back to another
// Lookup for everything else.
type stubLookup struct {
	parent Lookup
	dicts  map[string]*decl.Dictionary
}

func (l stubLookup) Dict(className string, args []typesystem.Type) (*decl.Dictionary, error) {
	if len(args) == 1 {
		if d, ok := l.dicts[typesystem.HeadKey(args[0])]; ok && d.Class == className {
			return d, nil
		}
	}
	return l.parent.Dict(className, args)
}
