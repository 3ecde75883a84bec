// Package value holds the minimal structural runtime values that dictionary
// method bodies operate on. The engine never evaluates user code; these values
// exist so synthesized and default method implementations are invocable by the
// driving pipeline and by tests.
package value

import (
	"fmt"
	"strings"
)

// Value is the interface for all runtime values.
type Value interface {
	String() string
}

// Invocable is a concrete method implementation as stored in a dictionary.
type Invocable func(args ...Value) (Value, error)

type Int int64

func (v Int) String() string { return fmt.Sprintf("%d", int64(v)) }

type Float float64

func (v Float) String() string { return fmt.Sprintf("%g", float64(v)) }

type Bool bool

func (v Bool) String() string {
	if v {
		return "true"
	}
	return "false"
}

type Str string

func (v Str) String() string { return string(v) }

type Char rune

func (v Char) String() string { return string(rune(v)) }

// Con is a constructor application: a value of a structural sum-of-products
// type, e.g. P(3) or Node(1, Leaf).
type Con struct {
	Ctor   string
	Fields []Value
}

func (v Con) String() string {
	if len(v.Fields) == 0 {
		return v.Ctor
	}
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("%s(%s)", v.Ctor, strings.Join(parts, ", "))
}

// Ordering is the result of a comparison method.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch {
	case o < 0:
		return "LT"
	case o > 0:
		return "GT"
	default:
		return "EQ"
	}
}

// OrderingValue wraps an Ordering as a Value so cmp methods fit Invocable.
type OrderingValue Ordering

func (v OrderingValue) String() string { return Ordering(v).String() }

// AsBool extracts a Bool or fails; used by generic default bodies.
func AsBool(v Value) (bool, error) {
	b, ok := v.(Bool)
	if !ok {
		return false, fmt.Errorf("expected Bool, got %s", v)
	}
	return bool(b), nil
}

// AsOrdering extracts an OrderingValue or fails.
func AsOrdering(v Value) (Ordering, error) {
	o, ok := v.(OrderingValue)
	if !ok {
		return 0, fmt.Errorf("expected Ordering, got %s", v)
	}
	return Ordering(o), nil
}
