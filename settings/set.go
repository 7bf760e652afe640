package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownSetting = errors.New("unknown setting")

// TypeError reports a value whose Go type does not match the field kind.
type TypeError struct {
	Name string
	Kind Kind
	Got  any
}

func (e *TypeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("setting %s: value %v is of type %T, expected: %s", e.Name, e.Got, e.Got, e.Kind)
	}
	return fmt.Sprintf("value %v is of type %T, expected: %s", e.Got, e.Got, e.Kind)
}

// ConstraintError reports a value outside a field's min/max/options/filter.
type ConstraintError struct {
	Name   string
	Reason string
}

func (e *ConstraintError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("setting %s: %s", e.Name, e.Reason)
	}
	return e.Reason
}

// Set is an ordered collection of named fields. Order is insertion order and
// is kept through JSON encoding.
type Set struct {
	names  []string
	fields map[string]Field
}

func NewSet() *Set {
	return &Set{fields: make(map[string]Field)}
}

// Add appends a field. Names must be unique and the field's value must satisfy its constraints.
func (s *Set) Add(name string, f Field) error {
	if s.fields == nil {
		s.fields = make(map[string]Field)
	}
	if _, exists := s.fields[name]; exists {
		return fmt.Errorf("duplicate setting %s", name)
	}
	if err := f.Validate(); err != nil {
		return named(name, err)
	}
	s.names = append(s.names, name)
	s.fields[name] = f
	return nil
}

func (s *Set) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

func (s *Set) Value(name string) (any, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	return f.Value(), nil
}

// SetValue replaces the value of an existing field.
func (s *Set) SetValue(name string, v any) error {
	f, ok := s.fields[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	return named(name, f.Set(v))
}

func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Editable returns the names of fields offered in settings dialogs, in order.
func (s *Set) Editable() []string {
	var names []string
	for _, name := range s.names {
		if s.fields[name].Flags().Editable {
			names = append(names, name)
		}
	}
	return names
}

func (s *Set) Len() int { return len(s.names) }

func named(name string, err error) error {
	var te *TypeError
	if errors.As(err, &te) && te.Name == "" {
		te.Name = name
	}
	var ce *ConstraintError
	if errors.As(err, &ce) && ce.Name == "" {
		ce.Name = name
	}
	return err
}

// wireField is the stored form of a field.
type wireField struct {
	Type      Kind            `json:"type"`
	Display   bool            `json:"display"`
	Editable  bool            `json:"editable"`
	Value     json.RawMessage `json:"value,omitempty"`
	MinValue  json.RawMessage `json:"min_value,omitempty"`
	MaxValue  json.RawMessage `json:"max_value,omitempty"`
	Step      json.RawMessage `json:"step,omitempty"`
	Options   []string        `json:"options,omitempty"`
	Validator string          `json:"validator,omitempty"`
}

func (s *Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		wf, err := encodeField(s.fields[name])
		if err != nil {
			return nil, fmt.Errorf("failed to encode setting %s: %w", name, err)
		}
		val, err := json.Marshal(wf)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Set) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("settings must be a JSON object")
	}

	fresh := NewSet()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name := tok.(string)

		var wf wireField
		if err := dec.Decode(&wf); err != nil {
			return fmt.Errorf("failed to decode setting %s: %w", name, err)
		}
		f, err := decodeField(wf)
		if err != nil {
			return fmt.Errorf("failed to decode setting %s: %w", name, err)
		}
		if err := fresh.Add(name, f); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = *fresh
	return nil
}

func encodeField(f Field) (wireField, error) {
	flags := f.Flags()
	wf := wireField{Type: f.Kind(), Display: flags.Display, Editable: flags.Editable}

	var err error
	raw := func(v any) json.RawMessage {
		if err != nil {
			return nil
		}
		var b []byte
		b, err = json.Marshal(v)
		return b
	}

	wf.Value = raw(f.Value())
	switch x := f.(type) {
	case *Integer:
		if x.Min != nil {
			wf.MinValue = raw(*x.Min)
		}
		if x.Max != nil {
			wf.MaxValue = raw(*x.Max)
		}
		if x.Step != 0 {
			wf.Step = raw(x.Step)
		}
	case *Float:
		if x.Min != nil {
			wf.MinValue = raw(*x.Min)
		}
		if x.Max != nil {
			wf.MaxValue = raw(*x.Max)
		}
		if x.Step != 0 {
			wf.Step = raw(x.Step)
		}
	case *Enum:
		wf.Options = x.Options
	case *Path:
		wf.Validator = x.Filter
	}
	return wf, err
}

func decodeField(wf wireField) (Field, error) {
	meta := Meta{Display: wf.Display, Editable: wf.Editable}
	var err error
	read := func(raw json.RawMessage, dst any) {
		if err != nil || !present(raw) {
			return
		}
		err = json.Unmarshal(raw, dst)
	}

	var f Field
	switch wf.Type {
	case KindString:
		x := &String{Meta: meta}
		read(wf.Value, &x.V)
		f = x
	case KindInt:
		x := &Integer{Meta: meta}
		read(wf.Value, &x.V)
		if present(wf.MinValue) {
			x.Min = new(int)
			read(wf.MinValue, x.Min)
		}
		if present(wf.MaxValue) {
			x.Max = new(int)
			read(wf.MaxValue, x.Max)
		}
		read(wf.Step, &x.Step)
		f = x
	case KindFloat:
		x := &Float{Meta: meta}
		read(wf.Value, &x.V)
		if present(wf.MinValue) {
			x.Min = new(float64)
			read(wf.MinValue, x.Min)
		}
		if present(wf.MaxValue) {
			x.Max = new(float64)
			read(wf.MaxValue, x.Max)
		}
		read(wf.Step, &x.Step)
		f = x
	case KindBool:
		x := &Boolean{Meta: meta}
		read(wf.Value, &x.V)
		f = x
	case KindEnum:
		x := &Enum{Meta: meta, Options: wf.Options}
		read(wf.Value, &x.Index)
		f = x
	case KindPath:
		x := &Path{Meta: meta, Filter: wf.Validator}
		read(wf.Value, &x.V)
		f = x
	default:
		return nil, fmt.Errorf("unknown setting type: %q", wf.Type)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
