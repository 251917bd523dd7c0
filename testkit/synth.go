package testkit

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/kbukum/gotemplate/entity"
)

const (
	defaultMinLen = 8
	defaultMaxLen = 16
	defaultMin    = 0
	defaultMax    = 10000

	// attempts at a fresh value for a unique field before numbering it
	uniqueAttempts = 20
)

var (
	dateFrom = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	dateTo   = time.Date(2030, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// synthesizer produces field values from one seeded random stream. The
// same seed and the same sequence of calls yield the same values.
type synthesizer struct {
	faker *gofakeit.Faker
	// used holds values handed out per table.field, for unique and
	// email fields.
	used map[string]map[string]bool
}

func newSynthesizer(seed int64) *synthesizer {
	return &synthesizer{
		faker: gofakeit.NewCustom(rand.NewSource(seed).(rand.Source64)),
		used:  make(map[string]map[string]bool),
	}
}

// value returns a value for a non-ForeignKey field.
func (s *synthesizer) value(def *entity.Definition, f entity.Field) any {
	if f.Default != nil {
		return f.Default
	}
	switch f.Type {
	case entity.String:
		if f.Unique {
			return s.unique(def, f, func() string { return s.str(f) })
		}
		return s.str(f)
	case entity.Email:
		return s.unique(def, f, s.faker.Email)
	case entity.Int:
		lo, hi := bounds(f)
		return int64(s.faker.IntRange(int(math.Ceil(lo)), int(math.Floor(hi))))
	case entity.Float:
		lo, hi := bounds(f)
		return s.faker.Float64Range(lo, hi)
	case entity.Bool:
		return s.faker.Bool()
	case entity.Date:
		d := s.faker.DateRange(dateFrom, dateTo).UTC()
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	case entity.Time:
		return s.faker.DateRange(dateFrom, dateTo).UTC().Truncate(time.Second)
	}
	return nil
}

func (s *synthesizer) str(f entity.Field) string {
	if len(f.Choices) > 0 {
		return s.faker.RandomString(f.Choices)
	}

	var v string
	switch strings.ToLower(f.Name) {
	case "name", "full_name":
		v = s.faker.Name()
	case "country":
		v = s.faker.Country()
	case "company":
		v = s.faker.Company()
	case "city":
		v = s.faker.City()
	default:
		lo, hi := lengths(f)
		return s.faker.LetterN(uint(s.faker.IntRange(lo, hi)))
	}
	return fitLength(v, f, s.faker)
}

// unique draws from gen until it gets a value not handed out before for
// this field, then falls back to numbering.
func (s *synthesizer) unique(def *entity.Definition, f entity.Field, gen func() string) string {
	key := def.Table + "." + f.Name
	seen := s.used[key]
	if seen == nil {
		seen = make(map[string]bool)
		s.used[key] = seen
	}

	v := gen()
	for i := 0; seen[v] && i < uniqueAttempts; i++ {
		v = gen()
	}
	for base, n := v, 2; seen[v]; n++ {
		v = numbered(base, n, f)
	}
	seen[v] = true
	return v
}

func numbered(v string, n int, f entity.Field) string {
	suffix := strconv.Itoa(n)
	if f.Type == entity.Email {
		local, domain, _ := strings.Cut(v, "@")
		return local + suffix + "@" + domain
	}
	if f.MaxLen > 0 && utf8.RuneCountInString(v)+len(suffix) > f.MaxLen {
		r := []rune(v)
		v = string(r[:max(0, f.MaxLen-len(suffix))])
	}
	return v + suffix
}

func fitLength(v string, f entity.Field, faker *gofakeit.Faker) string {
	if f.MaxLen > 0 && utf8.RuneCountInString(v) > f.MaxLen {
		v = string([]rune(v)[:f.MaxLen])
	}
	if n := utf8.RuneCountInString(v); n < f.MinLen {
		v += faker.LetterN(uint(f.MinLen - n))
	}
	return v
}

// lengths returns the random string length range for f.
func lengths(f entity.Field) (int, int) {
	lo, hi := defaultMinLen, defaultMaxLen
	if f.MinLen > 0 {
		lo = f.MinLen
	}
	if f.MaxLen > 0 {
		hi = f.MaxLen
	}
	if lo > hi {
		if f.MaxLen > 0 {
			lo = hi
		} else {
			hi = lo + defaultMaxLen - defaultMinLen
		}
	}
	return lo, hi
}

// bounds returns the numeric range for f.
func bounds(f entity.Field) (float64, float64) {
	if !f.HasRange() {
		return defaultMin, defaultMax
	}
	lo, hi := f.Min, f.Max
	if hi < lo {
		hi = lo + defaultMax
	}
	return lo, hi
}
