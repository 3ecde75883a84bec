package typesystem

import "strings"

// Wildcard is the head-key entry for a free head position. An instance whose
// head is a bare type variable matches any outermost constructor; coherence
// checking treats such positions as overlapping everything.
const Wildcard = "*"

// Synthetic head names for structural (non-nominal) types.
const (
	tupleHead    = "TUPLE"
	functionHead = "FUNCTION"
)

// HeadKey returns the outermost constructor name of a type, or Wildcard for a
// free variable. Nested argument structure is deliberately ignored: the
// matching key identifies which instance applies, not the full shape.
func HeadKey(t Type) string {
	switch t := t.(type) {
	case TVar:
		return Wildcard
	case TCon:
		return t.Name
	case TApp:
		return HeadKey(t.Constructor)
	case TTuple:
		return tupleHead
	case TFunc:
		return functionHead
	default:
		return Wildcard
	}
}

// MatchKey is the positional tuple of outermost constructors identifying which
// instance applies for one class, one entry per class type parameter.
type MatchKey []string

// KeyFor computes the matching key for an ordered list of head types.
func KeyFor(heads []Type) MatchKey {
	key := make(MatchKey, len(heads))
	for i, h := range heads {
		key[i] = HeadKey(h)
	}
	return key
}

func (k MatchKey) String() string {
	return strings.Join([]string(k), ",")
}

// Equal reports whether both keys name the same constructor in every position.
func (k MatchKey) Equal(other MatchKey) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// Overlaps reports whether the two keys could both match one concrete key:
// every position is either equal or a wildcard on at least one side.
func (k MatchKey) Overlaps(other MatchKey) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] && k[i] != Wildcard && other[i] != Wildcard {
			return false
		}
	}
	return true
}

// Matches reports whether a concrete key falls under this (possibly
// wildcarded) instance key.
func (k MatchKey) Matches(concrete MatchKey) bool {
	if len(k) != len(concrete) {
		return false
	}
	for i := range k {
		if k[i] != Wildcard && k[i] != concrete[i] {
			return false
		}
	}
	return true
}

// HasWildcard reports whether any position is free.
func (k MatchKey) HasWildcard() bool {
	for _, p := range k {
		if p == Wildcard {
			return true
		}
	}
	return false
}
