package pointpack

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return &Schema{
		Attributes: []Attribute{
			{Name: "the_geom", Kind: KindGeometry},
			{Name: "ts", Kind: KindTemporal},
			{Name: "a", Kind: KindNumeric, Integer: true},
			{Name: "label", Kind: KindOther},
			{Name: "b", Kind: KindNumeric, Integer: false},
			{Name: "TS", Kind: KindTemporal},
		},
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name      string
		values    []string
		timeName  string
		wantTime  int
		wantIdx   []int
		wantInt   bool
		wantFlags int16
	}{
		{"nothing requested", nil, "", -1, nil, true, FlagIntegerVal},
		{"unknown names", []string{"x", "y"}, "when", -1, nil, true, FlagIntegerVal},
		{"time only", nil, "ts", 1, nil, true, FlagHasTime | FlagIntegerVal},
		{"time first match wins", nil, "Ts", 1, nil, true, FlagHasTime | FlagIntegerVal},
		{"integer value", []string{"A"}, "", -1, []int{2}, true, FlagIntegerVal},
		{"float value", []string{"b"}, "", -1, []int{4}, false, FlagNone},
		{"schema order", []string{"b", "a"}, "ts", 1, []int{2, 4}, false, FlagHasTime},
		{"duplicates", []string{"a", "A", "a"}, "", -1, []int{2}, true, FlagIntegerVal},
		{"non numeric ignored", []string{"label", "the_geom", "ts"}, "", -1, nil, true, FlagIntegerVal},
		{"time must be temporal", nil, "a", -1, nil, true, FlagIntegerVal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Select(testSchema(), tt.values, tt.timeName)
			require.Equal(t, tt.wantTime, sel.TimeIndex)
			require.Equal(t, tt.wantIdx, sel.ValueIndexes)
			require.Equal(t, tt.wantInt, sel.Integer)
			require.Equal(t, tt.wantFlags, sel.Flags())
		})
	}
}

// The integer flag follows the last matched attribute, not an aggregate over
// all matches. This is the established wire behavior and is kept.
func TestSelect_LastMatchDecidesWidth(t *testing.T) {
	floatLast := &Schema{Attributes: []Attribute{
		{Name: "a", Kind: KindNumeric, Integer: true},
		{Name: "b", Kind: KindNumeric},
	}}
	require.False(t, Select(floatLast, []string{"a", "b"}, "").Integer)

	intLast := &Schema{Attributes: []Attribute{
		{Name: "b", Kind: KindNumeric},
		{Name: "a", Kind: KindNumeric, Integer: true},
	}}
	require.True(t, Select(intLast, []string{"a", "b"}, "").Integer)
}

func TestSelect_NilSchema(t *testing.T) {
	sel := Select(nil, []string{"a"}, "ts")
	require.False(t, sel.HasTime())
	require.Empty(t, sel.ValueIndexes)
	require.True(t, sel.Integer)
}

func TestParseAttributeList(t *testing.T) {
	require.Nil(t, ParseAttributeList(""))
	require.Equal(t, []string{"a"}, ParseAttributeList("a"))
	require.Equal(t, []string{"a", "b", "c"}, ParseAttributeList(" a, b ,,c,"))
}

func TestSchemaIndex(t *testing.T) {
	s := testSchema()
	require.Equal(t, 1, s.Index("TS"))
	require.Equal(t, 4, s.Index("B"))
	require.Equal(t, -1, s.Index("missing"))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "Numeric", KindNumeric.String())
	require.Equal(t, "Temporal", KindTemporal.String())
	require.Equal(t, "Unknown", Kind(42).String())
}

func TestInferSchema(t *testing.T) {
	f1 := geojson.NewFeature(orb.Point{1, 2})
	f1.Properties = geojson.Properties{
		"count": 3,
		"temp":  1.5,
		"name":  "x",
		"ts":    "2024-01-02T03:04:05Z",
		"flag":  true,
		"maybe": nil,
	}
	f2 := geojson.NewFeature(orb.Point{3, 4})
	f2.Properties = geojson.Properties{
		"count": 4.0,
		"temp":  2,
		"maybe": json.Number("7"),
		"when":  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	schema := InferSchema([]*geojson.Feature{nil, f1, f2})

	want := []Attribute{
		{Name: "count", Kind: KindNumeric, Integer: true},
		{Name: "flag", Kind: KindOther},
		{Name: "maybe", Kind: KindNumeric, Integer: true},
		{Name: "name", Kind: KindOther},
		{Name: "temp", Kind: KindNumeric, Integer: false},
		{Name: "ts", Kind: KindTemporal},
		{Name: "when", Kind: KindTemporal},
	}
	require.Equal(t, want, schema.Attributes)
}

func TestInferSchema_Conflict(t *testing.T) {
	f1 := geojson.NewFeature(orb.Point{1, 2})
	f1.Properties = geojson.Properties{"v": 1}
	f2 := geojson.NewFeature(orb.Point{1, 2})
	f2.Properties = geojson.Properties{"v": "one"}

	schema := InferSchema([]*geojson.Feature{f1, f2})
	require.Equal(t, []Attribute{{Name: "v", Kind: KindOther}}, schema.Attributes)
}

func TestInferSchema_Empty(t *testing.T) {
	schema := InferSchema(nil)
	require.Empty(t, schema.Attributes)
}
