package testkit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/database"
	"github.com/kbukum/gotemplate/entity"
	"github.com/kbukum/gotemplate/logger"
	"github.com/kbukum/gotemplate/validation"
)

// Factory inserts rows with synthesized values through one test's
// database handle. It keeps no record of the rows it created; the test's
// rollback removes them.
type Factory struct {
	db         *gorm.DB
	seed       int64
	synth      *synthesizer
	generators map[string]Generator
	log        *logger.Logger
}

// Generator produces a field value from the factory's seeded faker.
type Generator func(faker *gofakeit.Faker) any

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithSeed pins the random stream, so the same calls produce the same
// values.
func WithSeed(seed int64) FactoryOption {
	return func(f *Factory) { f.seed = seed }
}

// WithLogger sets the factory's logger.
func WithLogger(log *logger.Logger) FactoryOption {
	return func(f *Factory) { f.log = log }
}

// NewFactory creates a factory writing through db, normally Handle.DB.
func NewFactory(db *gorm.DB, opts ...FactoryOption) *Factory {
	f := &Factory{db: db, generators: make(map[string]Generator)}
	for _, opt := range opts {
		opt(f)
	}
	if f.seed == 0 {
		f.seed = nextSeed()
	}
	if f.log == nil {
		f.log = logger.WithComponent("factory")
	}
	f.synth = newSynthesizer(f.seed)
	f.log.Debug("Factory created", logger.Fields(logger.FieldSeed, f.seed))
	return f
}

// Seed returns the seed of the factory's random stream.
func (f *Factory) Seed() int64 {
	return f.seed
}

// Register makes the factory call gen instead of synthesizing a field.
// key is "Entity.field" for one entity or "field" for every entity that
// has it; the entity-qualified key wins. Generated values are checked like
// overrides, before anything is written.
func (f *Factory) Register(key string, gen Generator) {
	f.generators[key] = gen
}

func (f *Factory) generator(def *entity.Definition, field string) Generator {
	if gen, ok := f.generators[def.Name+"."+field]; ok {
		return gen
	}
	return f.generators[field]
}

// node is one row to insert. parents holds a node per required foreign
// key the caller did not supply.
type node struct {
	def     *entity.Definition
	values  entity.Values
	parents map[string]*node
}

// Create inserts a row of def. Fields missing from overrides are
// synthesized; a required foreign key without an override first creates
// its parent row, recursively. A foreign key cycle anywhere among the
// definitions reachable from def is a *SchemaError, even through nullable
// or overridden keys. Overrides are checked before anything is written. The whole graph is inserted inside one savepoint, so a failed
// insert leaves no rows of it behind.
func (f *Factory) Create(ctx context.Context, def *entity.Definition, overrides entity.Values) (entity.Model, error) {
	if err := checkGraph(def); err != nil {
		return nil, err
	}
	root := plan(def, overrides.Clone())
	if err := f.prepare(root); err != nil {
		return nil, err
	}

	var model entity.Model
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		model, err = f.insert(tx, root)
		return err
	})
	if err != nil {
		var cv *ConstraintViolation
		var ce *ConnectionError
		if !errors.As(err, &cv) && !errors.As(err, &ce) && database.IsConnectionError(err) {
			return nil, &ConnectionError{Op: "savepoint", Err: err}
		}
		return nil, err
	}
	return model, nil
}

// CreateMany calls Create n times with the same overrides.
func (f *Factory) CreateMany(ctx context.Context, def *entity.Definition, n int, overrides entity.Values) ([]entity.Model, error) {
	out := make([]entity.Model, 0, n)
	for range n {
		m, err := f.Create(ctx, def, overrides)
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Create is Factory.Create returning the concrete model type.
//
//	band, err := testkit.Create[*music.Band](ctx, f, music.BandDefinition, nil)
func Create[T entity.Model](ctx context.Context, f *Factory, def *entity.Definition, overrides entity.Values) (T, error) {
	var zero T
	m, err := f.Create(ctx, def, overrides)
	if err != nil {
		return zero, err
	}
	typed, ok := m.(T)
	if !ok {
		return zero, &SchemaError{Entity: def.Name, Reason: fmt.Sprintf("Build returned %T, want %T", m, zero)}
	}
	return typed, nil
}

// prepare fills registered generator values into every planned row and
// validates each row's supplied values, parents in field order.
func (f *Factory) prepare(n *node) error {
	for _, field := range n.def.Fields {
		if field.Type == entity.ForeignKey || n.values.Has(field.Name) {
			continue
		}
		if gen := f.generator(n.def, field.Name); gen != nil {
			n.values[field.Name] = gen(f.synth.faker)
		}
	}
	if err := validateOverrides(n.def, n.values); err != nil {
		return err
	}
	for _, fk := range n.def.ForeignKeys() {
		if parent, ok := n.parents[fk.Name]; ok {
			if err := f.prepare(parent); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkGraph checks def and every definition reachable through its
// foreign keys, nullable or not. Meeting a definition again on the current
// path is a cycle.
func checkGraph(def *entity.Definition) error {
	done := make(map[*entity.Definition]bool)
	var visit func(d *entity.Definition, path []*entity.Definition) error
	visit = func(d *entity.Definition, path []*entity.Definition) error {
		if i := slices.Index(path, d); i >= 0 {
			cycle := make([]string, 0, len(path)-i+1)
			for _, p := range path[i:] {
				cycle = append(cycle, p.Name)
			}
			return &SchemaError{Entity: path[0].Name, Cycle: append(cycle, d.Name)}
		}
		if done[d] {
			return nil
		}
		if err := checkDefinition(d); err != nil {
			return err
		}
		path = append(path, d)
		for _, fk := range d.ForeignKeys() {
			if err := visit(fk.Ref, path); err != nil {
				return err
			}
		}
		done[d] = true
		return nil
	}
	return visit(def, nil)
}

// plan walks the required foreign keys of def the caller did not supply,
// depth first. The graph is known to be acyclic.
func plan(def *entity.Definition, values entity.Values) *node {
	if values == nil {
		values = entity.Values{}
	}
	n := &node{def: def, values: values, parents: map[string]*node{}}
	for _, fk := range def.ForeignKeys() {
		if values.Has(fk.Name) || fk.Nullable {
			continue
		}
		n.parents[fk.Name] = plan(fk.Ref, nil)
	}
	return n
}

func checkDefinition(def *entity.Definition) error {
	if def == nil {
		return &SchemaError{Entity: "<nil>", Reason: "definition is nil"}
	}
	if def.Build == nil {
		return &SchemaError{Entity: def.Name, Reason: "definition has no Build function"}
	}
	if def.Table == "" {
		return &SchemaError{Entity: def.Name, Reason: "definition has no table"}
	}
	for _, field := range def.Fields {
		switch {
		case !field.Type.Valid():
			return &SchemaError{Entity: def.Name, Reason: fmt.Sprintf("field %s has unknown type %s", field.Name, field.Type)}
		case entity.IsServerAssigned(field.Name):
			return &SchemaError{Entity: def.Name, Reason: fmt.Sprintf("field %s is assigned by the store", field.Name)}
		case field.Type == entity.ForeignKey && field.Ref == nil:
			return &SchemaError{Entity: def.Name, Reason: fmt.Sprintf("foreign key %s has no referenced definition", field.Name)}
		}
	}
	return nil
}

// validateOverrides checks every override against its field. Foreign key
// overrides given as models are replaced by their keys.
func validateOverrides(def *entity.Definition, values entity.Values) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, name := range keys {
		v := values[name]
		fail := func(reason string) error {
			return &ValidationError{Entity: def.Name, Field: name, Reason: reason, Value: v}
		}

		if entity.IsServerAssigned(name) {
			return fail("is assigned by the store")
		}
		field, ok := def.Field(name)
		if !ok {
			return fail("is not a field of " + def.Name)
		}
		if v == nil {
			if !field.Nullable {
				return fail("must not be null")
			}
			continue
		}

		switch field.Type {
		case entity.String, entity.Email:
			s, ok := v.(string)
			if !ok {
				return fail(fmt.Sprintf("must be a string, not %T", v))
			}
			if err := checkString(field, s); err != "" {
				return fail(err)
			}
			if field.Type == entity.Email {
				if err := validation.Var(s, "email"); err != nil {
					return &ValidationError{Entity: def.Name, Field: name, Reason: "must be an email address", Value: v, Err: err}
				}
			}
		case entity.Int:
			n, ok := entity.AsInt64(v)
			if !ok {
				return fail(fmt.Sprintf("must be an integer, not %T", v))
			}
			if err := checkRange(field, float64(n)); err != "" {
				return fail(err)
			}
		case entity.Float:
			x, ok := entity.AsFloat64(v)
			if !ok {
				return fail(fmt.Sprintf("must be a number, not %T", v))
			}
			if err := checkRange(field, x); err != "" {
				return fail(err)
			}
		case entity.Bool:
			if _, ok := v.(bool); !ok {
				return fail(fmt.Sprintf("must be a bool, not %T", v))
			}
		case entity.Date, entity.Time:
			if _, ok := v.(time.Time); !ok {
				return fail(fmt.Sprintf("must be a time.Time, not %T", v))
			}
		case entity.ForeignKey:
			key, reason := foreignKey(field, v)
			if reason != "" {
				return fail(reason)
			}
			values[name] = key
		}
	}
	return nil
}

func checkString(f entity.Field, s string) string {
	n := utf8.RuneCountInString(s)
	if n < f.MinLen {
		return fmt.Sprintf("must be at least %d characters", f.MinLen)
	}
	if f.MaxLen > 0 && n > f.MaxLen {
		return fmt.Sprintf("must be at most %d characters", f.MaxLen)
	}
	if len(f.Choices) > 0 && !slices.Contains(f.Choices, s) {
		return fmt.Sprintf("must be one of %v", f.Choices)
	}
	return ""
}

func checkRange(f entity.Field, x float64) string {
	if !f.HasRange() {
		return ""
	}
	if x < f.Min || (f.Max >= f.Min && x > f.Max) {
		return fmt.Sprintf("must be between %g and %g", f.Min, f.Max)
	}
	return ""
}

// foreignKey accepts a row of the referenced entity or its positive key.
func foreignKey(f entity.Field, v any) (uint, string) {
	if m, ok := v.(entity.Model); ok {
		if m.TableName() != f.Ref.Table {
			return 0, fmt.Sprintf("must reference %s, not %s", f.Ref.Table, m.TableName())
		}
		if m.PrimaryKey() == 0 {
			return 0, "references a row that has not been saved"
		}
		return m.PrimaryKey(), ""
	}
	n, ok := entity.AsInt64(v)
	if !ok {
		return 0, fmt.Sprintf("must be a %s or its key, not %T", f.Ref.Name, v)
	}
	if n <= 0 {
		return 0, "must be a positive key"
	}
	return uint(n), ""
}

// insert creates n's parents, then n.
func (f *Factory) insert(tx *gorm.DB, n *node) (entity.Model, error) {
	values := n.values
	for _, field := range n.def.Fields {
		if field.Type == entity.ForeignKey {
			if parent, ok := n.parents[field.Name]; ok {
				pm, err := f.insert(tx, parent)
				if err != nil {
					return nil, err
				}
				values[field.Name] = pm.PrimaryKey()
			} else if !values.Has(field.Name) {
				values[field.Name] = nil
			}
			continue
		}
		if !values.Has(field.Name) {
			values[field.Name] = f.synth.value(n.def, field)
		}
	}

	model := n.def.Build(values)
	if err := tx.Create(model).Error; err != nil {
		if database.IsConnectionError(err) {
			return nil, &ConnectionError{Op: "insert " + n.def.Name, Err: err}
		}
		return nil, &ConstraintViolation{Entity: n.def.Name, Err: err}
	}
	f.log.Debug("Row created", logger.Fields(
		logger.FieldEntity, n.def.Name,
		logger.FieldTable, n.def.Table,
		"id", model.PrimaryKey()))
	return model, nil
}
