package domain

import "strings"

// TypeTag is the declared type of a parameter or return value, kept as written.
// Only the leading keyword decides coercion; generic suffixes such as "[int]" are preserved.
type TypeTag string

const (
	TypeInt   TypeTag = "int"
	TypeFloat TypeTag = "float"
	TypeStr   TypeTag = "str"
	TypeBool  TypeTag = "bool"
	TypeAny   TypeTag = "Any"
)

// IsList reports whether the tag names a list container (e.g. "list", "list[int]")
func (t TypeTag) IsList() bool {
	return strings.HasPrefix(string(t), "list")
}

// IsDict reports whether the tag names a dict container (e.g. "dict", "dict[str, int]")
func (t TypeTag) IsDict() bool {
	return strings.HasPrefix(string(t), "dict")
}

// Parameter is one positional parameter of a FunctionSignature
type Parameter struct {
	Name string
	Type TypeTag
}

// FunctionSignature is the parsed contract a submission must satisfy.
// It is built fresh for every grading call and never mutated afterwards.
type FunctionSignature struct {
	Name       string
	Parameters []Parameter
	ReturnType TypeTag
	// Source is the signature text as supplied by the caller
	Source string
}

// Arity returns the number of positional parameters
func (s *FunctionSignature) Arity() int {
	return len(s.Parameters)
}
