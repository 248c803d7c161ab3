package pointpack

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

// Kind classifies an attribute for packaging.
type Kind int

// Attribute kinds.
const (
	KindOther Kind = iota
	KindNumeric
	KindTemporal
	KindGeometry
)

var kindNames = [...]string{"Other", "Numeric", "Temporal", "Geometry"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Attribute describes one record attribute.
type Attribute struct {
	Name    string
	Kind    Kind
	Integer bool // Numeric attribute with an integer value domain
}

// Schema is the ordered attribute list of a record source together with the
// reference system of its geometries.
type Schema struct {
	Attributes []Attribute
	CRS        *CRS
}

// Index returns the position of the attribute with the given name, compared
// case-insensitively, or -1.
func (s *Schema) Index(name string) int {
	for i, a := range s.Attributes {
		if strings.EqualFold(a.Name, name) {
			return i
		}
	}
	return -1
}

// Selection holds the attributes resolved for one packaging call.
type Selection struct {
	TimeIndex    int   // -1 when no time attribute is selected
	ValueIndexes []int // In schema order
	Integer      bool  // Measures encoded as int32 rather than float32
}

// HasTime reports whether a time attribute was selected.
func (s Selection) HasTime() bool { return s.TimeIndex >= 0 }

// Flags returns the header flags for the selection.
func (s Selection) Flags() int16 {
	flags := FlagNone
	if s.HasTime() {
		flags |= FlagHasTime
	}
	if s.Integer {
		flags |= FlagIntegerVal
	}
	return flags
}

// Select resolves the requested attributes against schema. Names match
// case-insensitively. The time attribute is the first Temporal attribute named
// timeName. Value attributes are the Numeric attributes named in valueNames,
// in schema order.
//
// The integer flag starts true and is overwritten by every matched value
// attribute, so it ends up reflecting the last match only.
func Select(schema *Schema, valueNames []string, timeName string) Selection {
	sel := Selection{TimeIndex: -1, Integer: true}
	if schema == nil {
		return sel
	}

	for i, a := range schema.Attributes {
		if sel.TimeIndex == -1 && timeName != "" && a.Kind == KindTemporal && strings.EqualFold(a.Name, timeName) {
			sel.TimeIndex = i
		}
		if a.Kind != KindNumeric {
			continue
		}
		for _, n := range valueNames {
			if strings.EqualFold(n, a.Name) {
				sel.Integer = a.Integer
				sel.ValueIndexes = append(sel.ValueIndexes, i)
				break
			}
		}
	}

	return sel
}

// ParseAttributeList splits a comma-separated attribute list, trimming blanks
// and dropping empty entries.
func ParseAttributeList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// InferSchema analyzes feature properties and derives an attribute schema.
// Attributes appear in order of first occurrence; names first seen on the
// same feature are sorted so the result is deterministic. Attributes that are
// only ever null are kept as KindOther.
func InferSchema(features []*geojson.Feature) *Schema {
	schema := &Schema{}
	index := make(map[string]int)
	observed := make(map[string]bool)

	for _, f := range features {
		if f == nil || len(f.Properties) == 0 {
			continue
		}

		names := make([]string, 0, len(f.Properties))
		for name := range f.Properties {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			i, ok := index[name]
			if !ok {
				i = len(schema.Attributes)
				index[name] = i
				schema.Attributes = append(schema.Attributes, Attribute{Name: name, Kind: KindOther})
			}

			value := f.Properties[name]
			if value == nil {
				continue
			}

			inferred := inferAttribute(name, value)
			if !observed[name] {
				observed[name] = true
				schema.Attributes[i] = inferred
				continue
			}
			schema.Attributes[i] = promoteAttribute(schema.Attributes[i], inferred)
		}
	}

	return schema
}

// inferAttribute determines the attribute kind for a Go value.
func inferAttribute(name string, value interface{}) Attribute {
	a := Attribute{Name: name, Kind: KindOther}

	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		a.Kind, a.Integer = KindNumeric, true
	case float32:
		a.Kind, a.Integer = KindNumeric, isIntegral(float64(v))
	case float64:
		// JSON decoding yields float64 for every number.
		a.Kind, a.Integer = KindNumeric, isIntegral(v)
	case json.Number:
		a.Kind = KindNumeric
		_, err := v.Int64()
		a.Integer = err == nil
	case time.Time:
		a.Kind = KindTemporal
	case string:
		if _, ok := parseTime(v); ok {
			a.Kind = KindTemporal
		}
	}

	return a
}

// promoteAttribute merges two observations of the same attribute. Numeric
// observations widen to float; conflicting kinds fall back to KindOther.
func promoteAttribute(a, b Attribute) Attribute {
	if a.Kind != b.Kind {
		return Attribute{Name: a.Name, Kind: KindOther}
	}
	if a.Kind == KindNumeric {
		a.Integer = a.Integer && b.Integer
	}
	return a
}

func isIntegral(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v) && v == math.Trunc(v)
}
