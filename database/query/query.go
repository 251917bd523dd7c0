// Package query parses list parameters (skip, limit, equality filters)
// from a request's query string and applies them to a gorm query.
//
//	GET /api/music/bands?skip=20&limit=10&genre=ROCK
//	GET /api/music/musicians?band_id=in.(1,2)
package query

import (
	"fmt"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/validation"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Filter is one column restriction. A filter with Values matches any of
// them.
type Filter struct {
	Field  string
	Value  string
	Values []string
}

// Params holds parsed list parameters.
type Params struct {
	Skip    int
	Limit   int
	Filters []Filter
}

// Filter returns the filter on field, if requested.
func (p Params) Filter(field string) (Filter, bool) {
	for _, f := range p.Filters {
		if f.Field == field {
			return f, true
		}
	}
	return Filter{}, false
}

// Config defines which parameters a list endpoint accepts.
type Config struct {
	// AllowedFilters lists the query keys accepted as filters. Unlisted
	// keys are ignored.
	AllowedFilters []string
	// FieldAliases maps a query key to its column, e.g. genre -> bands.genre.
	FieldAliases map[string]string
	// Choices restricts a filter to a closed set of values.
	Choices map[string][]string
	// DefaultSort orders results so pagination is stable.
	DefaultSort  string
	DefaultLimit int
	MaxLimit     int
}

func (c Config) column(field string) string {
	if alias, ok := c.FieldAliases[field]; ok {
		return alias
	}
	return field
}

// Parse reads skip, limit and the allowed filters from values. Out of range
// paging or a value outside a filter's Choices is an INVALID_INPUT error.
func Parse(values url.Values, cfg Config) (Params, error) {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}

	v := validation.New()
	p := Params{
		Skip:  v.Int("skip", values.Get("skip"), 0),
		Limit: v.Int("limit", values.Get("limit"), cfg.DefaultLimit),
	}
	v.Min("skip", p.Skip, 0)
	v.Range("limit", p.Limit, 1, cfg.MaxLimit)

	for _, field := range cfg.AllowedFilters {
		raw := strings.TrimSpace(values.Get(field))
		if raw == "" {
			continue
		}
		f := parseFilter(field, raw)
		if choices, ok := cfg.Choices[field]; ok {
			for _, value := range append([]string{f.Value}, f.Values...) {
				v.OneOf(field, value, choices)
			}
		}
		p.Filters = append(p.Filters, f)
	}

	if err := v.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// parseFilter reads "value" or "in.(a,b,c)".
func parseFilter(field, raw string) Filter {
	if inner, ok := strings.CutPrefix(raw, "in.("); ok && strings.HasSuffix(inner, ")") {
		var values []string
		for _, s := range strings.Split(strings.TrimSuffix(inner, ")"), ",") {
			if s = strings.TrimSpace(s); s != "" {
				values = append(values, s)
			}
		}
		return Filter{Field: field, Values: values}
	}
	return Filter{Field: field, Value: raw}
}

// Apply adds the filters, the default sort and the page window to db.
func Apply(db *gorm.DB, p Params, cfg Config) *gorm.DB {
	db = ApplyFilters(db, p, cfg)
	if cfg.DefaultSort != "" {
		db = db.Order(cfg.DefaultSort)
	}
	return db.Offset(p.Skip).Limit(p.Limit)
}

// ApplyFilters adds only the filters, for counting or for filters the
// caller resolves through a join.
func ApplyFilters(db *gorm.DB, p Params, cfg Config) *gorm.DB {
	for _, f := range p.Filters {
		col := cfg.column(f.Field)
		if len(f.Values) > 0 {
			db = db.Where(fmt.Sprintf("%s IN ?", col), f.Values)
			continue
		}
		db = db.Where(fmt.Sprintf("%s = ?", col), f.Value)
	}
	return db
}

// Find runs the paged query into a slice of T.
func Find[T any](db *gorm.DB, p Params, cfg Config) ([]T, error) {
	items := make([]T, 0, p.Limit)
	if err := Apply(db, p, cfg).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
