package testkit

import (
	"net/mail"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/gotemplate/entity"
)

var gadget = &entity.Definition{Name: "Gadget", Table: "gadgets"}

func TestSynthesizeFieldTypes(t *testing.T) {
	release := time.Date(1969, time.September, 26, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		field entity.Field
		check func(t *testing.T, v any)
	}{
		{
			name:  "string within length",
			field: entity.Field{Name: "code", Type: entity.String, MinLen: 3, MaxLen: 5},
			check: func(t *testing.T, v any) {
				n := utf8.RuneCountInString(v.(string))
				assert.True(t, n >= 3 && n <= 5, "length %d", n)
			},
		},
		{
			name:  "name truncated to max",
			field: entity.Field{Name: "name", Type: entity.String, MaxLen: 4},
			check: func(t *testing.T, v any) {
				assert.LessOrEqual(t, utf8.RuneCountInString(v.(string)), 4)
			},
		},
		{
			name:  "choice",
			field: entity.Field{Name: "genre", Type: entity.String, Choices: []string{"ROCK", "JAZZ"}},
			check: func(t *testing.T, v any) {
				assert.Contains(t, []string{"ROCK", "JAZZ"}, v)
			},
		},
		{
			name:  "email",
			field: entity.Field{Name: "contact", Type: entity.Email},
			check: func(t *testing.T, v any) {
				_, err := mail.ParseAddress(v.(string))
				assert.NoError(t, err)
			},
		},
		{
			name:  "int in range",
			field: entity.Field{Name: "formed_year", Type: entity.Int, Min: 1900, Max: 2030},
			check: func(t *testing.T, v any) {
				n := v.(int64)
				assert.True(t, n >= 1900 && n <= 2030, "got %d", n)
			},
		},
		{
			name:  "float in range",
			field: entity.Field{Name: "weight", Type: entity.Float, Min: 0.5, Max: 2.5},
			check: func(t *testing.T, v any) {
				x := v.(float64)
				assert.True(t, x >= 0.5 && x <= 2.5, "got %g", x)
			},
		},
		{
			name:  "float default range",
			field: entity.Field{Name: "score", Type: entity.Float},
			check: func(t *testing.T, v any) {
				x := v.(float64)
				assert.True(t, x >= defaultMin && x <= defaultMax, "got %g", x)
			},
		},
		{
			name:  "bool",
			field: entity.Field{Name: "active", Type: entity.Bool},
			check: func(t *testing.T, v any) {
				assert.IsType(t, true, v)
			},
		},
		{
			name:  "date is a UTC midnight",
			field: entity.Field{Name: "released", Type: entity.Date},
			check: func(t *testing.T, v any) {
				d := v.(time.Time)
				assert.Equal(t, time.UTC, d.Location())
				assert.Equal(t, d.Truncate(24*time.Hour), d)
				assert.False(t, d.Before(dateFrom) || d.After(dateTo), "got %s", d)
			},
		},
		{
			name:  "time in whole seconds",
			field: entity.Field{Name: "seen_at", Type: entity.Time},
			check: func(t *testing.T, v any) {
				ts := v.(time.Time)
				assert.Equal(t, time.UTC, ts.Location())
				assert.Zero(t, ts.Nanosecond())
			},
		},
		{
			name:  "default used verbatim",
			field: entity.Field{Name: "released", Type: entity.Date, Default: release},
			check: func(t *testing.T, v any) {
				assert.Equal(t, release, v)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSynthesizer(1964)
			for range 50 {
				tt.check(t, s.value(gadget, tt.field))
			}
		})
	}
}

func TestSynthesizeSameSeedSameValues(t *testing.T) {
	fields := []entity.Field{
		{Name: "name", Type: entity.String},
		{Name: "contact", Type: entity.Email},
		{Name: "weight", Type: entity.Float},
		{Name: "active", Type: entity.Bool},
		{Name: "seen_at", Type: entity.Time},
	}
	a, b := newSynthesizer(42), newSynthesizer(42)
	for _, f := range fields {
		assert.Equal(t, a.value(gadget, f), b.value(gadget, f), f.Name)
	}
}

func TestUniqueFallsBackToNumbering(t *testing.T) {
	tests := []struct {
		name  string
		field entity.Field
		value string
		want  []string
	}{
		{
			name:  "string",
			field: entity.Field{Name: "code", Type: entity.String, Unique: true},
			value: "abc",
			want:  []string{"abc", "abc2", "abc3"},
		},
		{
			name:  "string at max length",
			field: entity.Field{Name: "code", Type: entity.String, Unique: true, MaxLen: 4},
			value: "abcd",
			want:  []string{"abcd", "abc2", "abc3"},
		},
		{
			name:  "email keeps its domain",
			field: entity.Field{Name: "contact", Type: entity.Email},
			value: "ringo@example.com",
			want:  []string{"ringo@example.com", "ringo2@example.com", "ringo3@example.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSynthesizer(1)
			calls := 0
			gen := func() string { calls++; return tt.value }

			var got []string
			for range len(tt.want) {
				got = append(got, s.unique(gadget, tt.field, gen))
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1+2*(uniqueAttempts+1), calls, "retries before numbering")
		})
	}
}

func TestUniqueIsPerTable(t *testing.T) {
	s := newSynthesizer(1)
	f := entity.Field{Name: "code", Type: entity.String, Unique: true}
	gen := func() string { return "same" }

	require.Equal(t, "same", s.unique(gadget, f, gen))
	assert.Equal(t, "same", s.unique(&entity.Definition{Name: "Widget", Table: "widgets"}, f, gen))
}
