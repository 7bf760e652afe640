package settings

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Kind names a field variant. The strings match the "type" key of stored documents.
type Kind string

const (
	KindString Kind = "str"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindEnum   Kind = "list"
	KindPath   Kind = "path"
)

// Meta holds the presentation flags shared by every field.
type Meta struct {
	// Display shows the field in summaries
	Display bool

	// Editable offers the field in settings dialogs
	Editable bool
}

func (m Meta) Flags() Meta { return m }

// Field is one typed setting. The set of implementations is closed.
type Field interface {
	Kind() Kind
	Value() any
	Flags() Meta

	// Set replaces the value. The dynamic type of v must match the kind exactly.
	Set(v any) error

	// Validate checks the current value against the field's constraints.
	Validate() error

	isField()
}

type String struct {
	Meta
	V string
}

type Integer struct {
	Meta
	V        int
	Min, Max *int

	// Step is the editor increment; values off the step grid are accepted
	Step int
}

type Float struct {
	Meta
	V        float64
	Min, Max *float64
	Step     float64
}

type Boolean struct {
	Meta
	V bool
}

// Enum selects one of Options by index.
type Enum struct {
	Meta
	Index   int
	Options []string
}

// Path is a file path restricted by a dialog-style filter such as "XLSX (*.xlsx)".
type Path struct {
	Meta
	V      string
	Filter string
}

func (*String) isField()  {}
func (*Integer) isField() {}
func (*Float) isField()   {}
func (*Boolean) isField() {}
func (*Enum) isField()    {}
func (*Path) isField()    {}

func (*String) Kind() Kind  { return KindString }
func (*Integer) Kind() Kind { return KindInt }
func (*Float) Kind() Kind   { return KindFloat }
func (*Boolean) Kind() Kind { return KindBool }
func (*Enum) Kind() Kind    { return KindEnum }
func (*Path) Kind() Kind    { return KindPath }

func (f *String) Value() any  { return f.V }
func (f *Integer) Value() any { return f.V }
func (f *Float) Value() any   { return f.V }
func (f *Boolean) Value() any { return f.V }
func (f *Enum) Value() any    { return f.Index }
func (f *Path) Value() any    { return f.V }

func (f *String) Set(v any) error {
	s, ok := v.(string)
	if !ok {
		return &TypeError{Kind: KindString, Got: v}
	}
	f.V = s
	return nil
}

func (f *Integer) Set(v any) error {
	i, ok := v.(int)
	if !ok {
		return &TypeError{Kind: KindInt, Got: v}
	}
	if err := f.check(i); err != nil {
		return err
	}
	f.V = i
	return nil
}

func (f *Float) Set(v any) error {
	x, ok := v.(float64)
	if !ok {
		return &TypeError{Kind: KindFloat, Got: v}
	}
	if err := f.check(x); err != nil {
		return err
	}
	f.V = x
	return nil
}

func (f *Boolean) Set(v any) error {
	b, ok := v.(bool)
	if !ok {
		return &TypeError{Kind: KindBool, Got: v}
	}
	f.V = b
	return nil
}

func (f *Enum) Set(v any) error {
	i, ok := v.(int)
	if !ok {
		return &TypeError{Kind: KindEnum, Got: v}
	}
	if err := f.check(i); err != nil {
		return err
	}
	f.Index = i
	return nil
}

func (f *Path) Set(v any) error {
	s, ok := v.(string)
	if !ok {
		return &TypeError{Kind: KindPath, Got: v}
	}
	if err := f.check(s); err != nil {
		return err
	}
	f.V = s
	return nil
}

func (f *String) Validate() error  { return nil }
func (f *Boolean) Validate() error { return nil }
func (f *Integer) Validate() error { return f.check(f.V) }
func (f *Float) Validate() error   { return f.check(f.V) }
func (f *Enum) Validate() error    { return f.check(f.Index) }
func (f *Path) Validate() error    { return f.check(f.V) }

func (f *Integer) check(i int) error {
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return &ConstraintError{Reason: fmt.Sprintf("min %d exceeds max %d", *f.Min, *f.Max)}
	}
	if f.Min != nil && i < *f.Min {
		return &ConstraintError{Reason: fmt.Sprintf("%d is below the minimum %d", i, *f.Min)}
	}
	if f.Max != nil && i > *f.Max {
		return &ConstraintError{Reason: fmt.Sprintf("%d is above the maximum %d", i, *f.Max)}
	}
	return nil
}

func (f *Float) check(x float64) error {
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return &ConstraintError{Reason: fmt.Sprintf("min %g exceeds max %g", *f.Min, *f.Max)}
	}
	if f.Min != nil && x < *f.Min {
		return &ConstraintError{Reason: fmt.Sprintf("%g is below the minimum %g", x, *f.Min)}
	}
	if f.Max != nil && x > *f.Max {
		return &ConstraintError{Reason: fmt.Sprintf("%g is above the maximum %g", x, *f.Max)}
	}
	return nil
}

func (f *Enum) check(i int) error {
	if i < 0 || i >= len(f.Options) {
		return &ConstraintError{Reason: fmt.Sprintf("option %d out of range (%d options)", i, len(f.Options))}
	}
	return nil
}

// Selected returns the chosen option.
func (f *Enum) Selected() string {
	if f.check(f.Index) != nil {
		return ""
	}
	return f.Options[f.Index]
}

var filterPatterns = regexp.MustCompile(`\(([^)]*)\)`)

// Patterns returns the glob patterns of the filter, e.g. ["*.xlsx"] for "XLSX (*.xlsx)".
func (f *Path) Patterns() []string {
	var patterns []string
	for _, group := range filterPatterns.FindAllStringSubmatch(f.Filter, -1) {
		patterns = append(patterns, strings.Fields(group[1])...)
	}
	return patterns
}

// check accepts the empty path as "not chosen yet".
func (f *Path) check(p string) error {
	patterns := f.Patterns()
	if p == "" || len(patterns) == 0 {
		return nil
	}
	base := strings.ToLower(filepath.Base(p))
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(pattern), base); ok {
			return nil
		}
	}
	return &ConstraintError{Reason: fmt.Sprintf("%s does not match filter %q", p, f.Filter)}
}

// IntPtr and FloatPtr help build bounded fields inline.
func IntPtr(i int) *int           { return &i }
func FloatPtr(x float64) *float64 { return &x }
