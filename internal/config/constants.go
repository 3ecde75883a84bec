package config

// DeclFileExt is the extension of declaration unit files consumed by the CLI.
const DeclFileExt = ".yaml"

// Built-in derivable class names
const (
	EqualClassName = "Equal"
	OrderClassName = "Order"
	ShowClassName  = "Show"
)

// DerivableClasses lists the classes the synthesis engine can build structurally.
var DerivableClasses = []string{EqualClassName, OrderClassName, ShowClassName}

// Built-in method names
const (
	EqMethodName   = "eq"
	NeqMethodName  = "neq"
	CmpMethodName  = "cmp"
	LtMethodName   = "lt"
	LeMethodName   = "le"
	GtMethodName   = "gt"
	GeMethodName   = "ge"
	ShowMethodName = "show"
)

// Built-in leaf type names
const (
	IntTypeName    = "Int"
	FloatTypeName  = "Float"
	BoolTypeName   = "Bool"
	CharTypeName   = "Char"
	StringTypeName = "String"
)

func IsDerivable(className string) bool {
	for _, name := range DerivableClasses {
		if name == className {
			return true
		}
	}
	return false
}
