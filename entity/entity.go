package entity

import (
	"fmt"
	"time"
)

// Server-assigned columns. Callers never set these.
const (
	KeyField       = "id"
	CreatedAtField = "created_at"
	UpdatedAtField = "updated_at"
)

// IsServerAssigned reports whether name is one of the columns the store fills.
func IsServerAssigned(name string) bool {
	return name == KeyField || name == CreatedAtField || name == UpdatedAtField
}

// Model is a persisted row.
type Model interface {
	PrimaryKey() uint
	TableName() string
}

// FieldType selects how a field is stored and synthesized.
type FieldType int

const (
	String FieldType = iota + 1
	Email
	Int
	Float
	Bool
	Date
	Time
	ForeignKey
)

var fieldTypeNames = map[FieldType]string{
	String:     "string",
	Email:      "email",
	Int:        "int",
	Float:      "float",
	Bool:       "bool",
	Date:       "date",
	Time:       "time",
	ForeignKey: "foreign_key",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Valid reports whether t is a declared field type.
func (t FieldType) Valid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

// Field describes one writable column.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
	Unique   bool
	// Default is used verbatim when no value is supplied.
	Default any

	// Ref is the parent entity of a ForeignKey field.
	Ref *Definition

	// String bounds. MaxLen 0 means unbounded.
	MinLen int
	MaxLen int
	// Numeric bounds. Both zero means unbounded.
	Min float64
	Max float64
	// Choices restricts a String field to an enumeration.
	Choices []string
}

// HasRange reports whether numeric bounds are declared.
func (f Field) HasRange() bool {
	return f.Min != 0 || f.Max != 0
}

// Definition is the descriptor table of one entity.
type Definition struct {
	Name   string
	Table  string
	Fields []Field
	// Build creates the typed model from a complete set of values. Keys
	// are field names; ForeignKey values are uint keys.
	Build func(Values) Model
}

// Field returns the named field.
func (d *Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ForeignKeys returns the ForeignKey fields in declaration order.
func (d *Definition) ForeignKeys() []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.Type == ForeignKey {
			out = append(out, f)
		}
	}
	return out
}

func (d *Definition) String() string {
	return d.Name
}

// Values maps field names to Go values. Absent keys and nil both mean
// "not provided" to readers; Has tells them apart.
type Values map[string]any

// Has reports whether key is present, even with a nil value.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// String returns the string stored at key, or "".
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// StringPtr returns a pointer to the string at key, or nil.
func (v Values) StringPtr(key string) *string {
	s, ok := v[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// Int returns the integer stored at key as an int.
func (v Values) Int(key string) int {
	n, _ := AsInt64(v[key])
	return int(n)
}

// IntPtr returns a pointer to the integer at key, or nil.
func (v Values) IntPtr(key string) *int {
	n, ok := AsInt64(v[key])
	if !ok {
		return nil
	}
	i := int(n)
	return &i
}

// Float returns the number stored at key as a float64.
func (v Values) Float(key string) float64 {
	f, _ := AsFloat64(v[key])
	return f
}

// Bool returns the bool stored at key.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// Time returns the time stored at key.
func (v Values) Time(key string) time.Time {
	t, _ := v[key].(time.Time)
	return t
}

// Key returns the foreign key stored at key.
func (v Values) Key(key string) uint {
	n, _ := AsInt64(v[key])
	if n < 0 {
		return 0
	}
	return uint(n)
}

// KeyPtr returns a pointer to the foreign key at key, or nil for NULL.
func (v Values) KeyPtr(key string) *uint {
	n, ok := AsInt64(v[key])
	if !ok || n <= 0 {
		return nil
	}
	k := uint(n)
	return &k
}

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// AsInt64 converts any Go integer type.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

// AsFloat64 converts any Go integer or float type.
func AsFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := AsInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
