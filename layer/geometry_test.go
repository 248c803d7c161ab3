package layer

import (
	"bytes"
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestGeometryType(t *testing.T) {
	tests := []struct {
		name     string
		geom     orb.Geometry
		expected flattypes.GeometryType
	}{
		{"Point", orb.Point{1, 2}, flattypes.GeometryTypePoint},
		{"MultiPoint", orb.MultiPoint{{1, 2}, {3, 4}}, flattypes.GeometryTypeMultiPoint},
		{"LineString", orb.LineString{{0, 0}, {1, 1}}, flattypes.GeometryTypeLineString},
		{"MultiLineString", orb.MultiLineString{{{0, 0}, {1, 1}}}, flattypes.GeometryTypeMultiLineString},
		{"Ring", orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, flattypes.GeometryTypePolygon},
		{"Polygon", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, flattypes.GeometryTypePolygon},
		{"MultiPolygon", orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, flattypes.GeometryTypeMultiPolygon},
		{"Collection", orb.Collection{orb.Point{1, 2}}, flattypes.GeometryTypeGeometryCollection},
		{"Bound", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, flattypes.GeometryTypePolygon},
		{"nil", nil, flattypes.GeometryTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := geometryType(tt.geom); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLayerGeometryType(t *testing.T) {
	if got := layerGeometryType(nil); got != flattypes.GeometryTypeUnknown {
		t.Errorf("expected Unknown for no geometries, got %v", got)
	}

	same := []orb.Geometry{orb.Point{1, 2}, orb.Point{3, 4}}
	if got := layerGeometryType(same); got != flattypes.GeometryTypePoint {
		t.Errorf("expected Point, got %v", got)
	}

	mixed := []orb.Geometry{orb.Point{1, 2}, orb.LineString{{0, 0}, {1, 1}}}
	if got := layerGeometryType(mixed); got != flattypes.GeometryTypeUnknown {
		t.Errorf("expected Unknown for mixed geometries, got %v", got)
	}
}

func TestGeometryToFGB_Unsupported(t *testing.T) {
	builder := flatbuffers.NewBuilder(256)
	if g := geometryToFGB(nil, builder); g != nil {
		t.Error("expected nil geometry for nil input")
	}
}

func TestGeometryRoundTrip(t *testing.T) {
	square := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	hole := orb.Ring{{2, 2}, {8, 2}, {8, 8}, {2, 8}, {2, 2}}
	bound := orb.Bound{Min: orb.Point{1, 2}, Max: orb.Point{3, 4}}

	tests := []struct {
		name     string
		geom     orb.Geometry
		expected orb.Geometry
	}{
		{"Point", orb.Point{1.5, 2.5}, orb.Point{1.5, 2.5}},
		{"MultiPoint", orb.MultiPoint{{1, 2}, {3, 4}}, orb.MultiPoint{{1, 2}, {3, 4}}},
		{"LineString", orb.LineString{{0, 0}, {1, 1}, {2, 2}}, orb.LineString{{0, 0}, {1, 1}, {2, 2}}},
		{
			"MultiLineString",
			orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}, {4, 4}}},
			orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}, {4, 4}}},
		},
		{"Ring", square, orb.Polygon{square}},
		{"Polygon with hole", orb.Polygon{square, hole}, orb.Polygon{square, hole}},
		{"Bound", bound, bound.ToPolygon()},
		{
			"MultiPolygon",
			orb.MultiPolygon{{square}, {hole}},
			orb.MultiPolygon{{square}, {hole}},
		},
		{
			"Collection",
			orb.Collection{orb.Point{1, 2}, orb.LineString{{0, 0}, {1, 1}}},
			orb.Collection{orb.Point{1, 2}, orb.LineString{{0, 0}, {1, 1}}},
		},
	}

	// One unindexed layer keeps the features in write order.
	fc := geojson.NewFeatureCollection()
	for _, tt := range tests {
		fc.Append(geojson.NewFeature(tt.geom))
	}

	var buf bytes.Buffer
	if err := Write(&buf, fc, &Options{IncludeIndex: false}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	r, err := OpenData(buf.Bytes())
	if err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	if got := r.Header().GeometryType; got != "Unknown" {
		t.Errorf("expected geometry type Unknown for mixed layer, got %q", got)
	}

	got := readAll(t, r)
	if len(got) != len(tests) {
		t.Fatalf("expected %d features, got %d", len(tests), len(got))
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !orb.Equal(got[i].Geometry, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got[i].Geometry)
			}
		})
	}
}
