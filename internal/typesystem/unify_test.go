package typesystem

import (
	"testing"
)

func TestUnifyBasic(t *testing.T) {
	intType := TCon{Name: "Int"}
	boolType := TCon{Name: "Bool"}
	listInt := TApp{Constructor: TCon{Name: "List"}, Args: []Type{intType}}
	listA := TApp{Constructor: TCon{Name: "List"}, Args: []Type{TVar{Name: "a"}}}

	tests := []struct {
		name    string
		t1, t2  Type
		wantErr bool
		want    map[string]string // expected variable bindings (by String)
	}{
		{
			name: "Identical constants",
			t1:   intType,
			t2:   intType,
		},
		{
			name:    "Mismatched constants",
			t1:      intType,
			t2:      boolType,
			wantErr: true,
		},
		{
			name: "Variable binds to constant",
			t1:   TVar{Name: "a"},
			t2:   intType,
			want: map[string]string{"a": "Int"},
		},
		{
			name: "Instance head matches concrete application",
			t1:   listA,
			t2:   listInt,
			want: map[string]string{"a": "Int"},
		},
		{
			name:    "Different constructors",
			t1:      listInt,
			t2:      TApp{Constructor: TCon{Name: "Option"}, Args: []Type{intType}},
			wantErr: true,
		},
		{
			name:    "Arity mismatch",
			t1:      TApp{Constructor: TCon{Name: "Map"}, Args: []Type{intType, boolType}},
			t2:      TApp{Constructor: TCon{Name: "Map"}, Args: []Type{intType}},
			wantErr: true,
		},
		{
			name: "Tuple elementwise",
			t1:   TTuple{Elements: []Type{TVar{Name: "a"}, boolType}},
			t2:   TTuple{Elements: []Type{intType, boolType}},
			want: map[string]string{"a": "Int"},
		},
		{
			name:    "Occurs check",
			t1:      TVar{Name: "a"},
			t2:      TApp{Constructor: TCon{Name: "List"}, Args: []Type{TVar{Name: "a"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subst, err := Unify(tt.t1, tt.t2)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Unify(%s, %s) succeeded, want error", tt.t1, tt.t2)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unify(%s, %s) failed: %v", tt.t1, tt.t2, err)
			}
			for name, want := range tt.want {
				got, ok := subst[name]
				if !ok {
					t.Errorf("binding for %s missing", name)
					continue
				}
				if got.String() != want {
					t.Errorf("binding %s = %s, want %s", name, got, want)
				}
			}
		})
	}
}

func TestUnifySharedVariableConsistency(t *testing.T) {
	// Pair a a must not match Pair Int Bool
	pairAA := TApp{Constructor: TCon{Name: "Pair"}, Args: []Type{TVar{Name: "a"}, TVar{Name: "a"}}}
	pairIB := TApp{Constructor: TCon{Name: "Pair"}, Args: []Type{TCon{Name: "Int"}, TCon{Name: "Bool"}}}
	if _, err := Unify(pairAA, pairIB); err == nil {
		t.Errorf("Pair a a unified with Pair Int Bool, want error")
	}

	pairII := TApp{Constructor: TCon{Name: "Pair"}, Args: []Type{TCon{Name: "Int"}, TCon{Name: "Int"}}}
	subst, err := Unify(pairAA, pairII)
	if err != nil {
		t.Fatalf("Pair a a vs Pair Int Int: %v", err)
	}
	if subst["a"].String() != "Int" {
		t.Errorf("a = %s, want Int", subst["a"])
	}
}

func TestRenameTypeVars(t *testing.T) {
	listA := TApp{Constructor: TCon{Name: "List"}, Args: []Type{TVar{Name: "a"}}}
	renamed := RenameTypeVars(listA, "inst")
	if renamed.String() != "(List a_inst)" {
		t.Errorf("renamed = %s, want (List a_inst)", renamed)
	}
	// Ground types come back untouched
	intType := TCon{Name: "Int"}
	if RenameTypeVars(intType, "inst") != Type(intType) {
		t.Errorf("ground type should not be copied")
	}
}

func TestSubstCompose(t *testing.T) {
	s1 := Subst{"a": TVar{Name: "b"}}
	s2 := Subst{"b": TCon{Name: "Int"}}
	composed := s1.Compose(s2)
	if got := composed["a"].String(); got != "Int" {
		t.Errorf("a = %s after compose, want Int", got)
	}
}
