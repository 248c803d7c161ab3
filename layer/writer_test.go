package layer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	pointpack "github.com/tingold/orb-pointpack"
)

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer

	if err := Write(&buf, nil, nil); !errors.Is(err, ErrEmptyLayer) {
		t.Errorf("expected ErrEmptyLayer for nil collection, got %v", err)
	}
	if err := Write(&buf, geojson.NewFeatureCollection(), nil); !errors.Is(err, ErrEmptyLayer) {
		t.Errorf("expected ErrEmptyLayer for empty collection, got %v", err)
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(&geojson.Feature{Properties: geojson.Properties{"a": 1}})
	if err := Write(&buf, fc, nil); !errors.Is(err, ErrEmptyLayer) {
		t.Errorf("expected ErrEmptyLayer without geometries, got %v", err)
	}
}

func TestWrite_SkipsMissingGeometry(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 1}))
	fc.Append(&geojson.Feature{Properties: geojson.Properties{"a": 1}})
	fc.Append(nil)
	fc.Append(geojson.NewFeature(orb.Point{2, 2}))

	var buf bytes.Buffer
	if err := Write(&buf, fc, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	r, err := OpenData(buf.Bytes())
	if err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	if r.Header().FeaturesCount != 2 {
		t.Errorf("expected 2 features, got %d", r.Header().FeaturesCount)
	}
}

func TestWrite_Metadata(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}}))

	opts := &Options{
		Name:         "roads",
		Description:  "road centerlines",
		IncludeIndex: true,
		CRS:          pointpack.WebMercator(),
	}

	var buf bytes.Buffer
	if err := Write(&buf, fc, opts); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	r, err := OpenData(buf.Bytes())
	if err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	h := r.Header()
	if h.Name != "roads" || h.Description != "road centerlines" {
		t.Errorf("unexpected name/description %q/%q", h.Name, h.Description)
	}
	if h.GeometryType != "LineString" {
		t.Errorf("expected LineString, got %q", h.GeometryType)
	}
	if h.CRS.SRID() != pointpack.WebMercatorSRID || h.CRS.Name != "WGS 84 / Pseudo-Mercator" {
		t.Errorf("unexpected CRS %+v", h.CRS)
	}
	if !r.Schema().CRS.Equivalent(pointpack.WebMercator()) {
		t.Errorf("expected schema CRS EPSG:3857, got %v", r.Schema().CRS)
	}
	if len(h.Columns) != 0 {
		t.Errorf("expected no columns, got %d", len(h.Columns))
	}
}

func TestWrite_PropertiesSurviveNulls(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	a := geojson.NewFeature(orb.Point{0, 0})
	a.Properties = geojson.Properties{"v": 1.5, "s": nil}
	b := geojson.NewFeature(orb.Point{1, 1})
	b.Properties = geojson.Properties{"v": nil, "s": "x"}
	fc.Append(a)
	fc.Append(b)

	var buf bytes.Buffer
	if err := Write(&buf, fc, &Options{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	r, err := OpenData(buf.Bytes())
	if err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	features := readAll(t, r)
	if len(features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(features))
	}

	if features[0].Properties["v"] != 1.5 {
		t.Errorf("expected v=1.5, got %v", features[0].Properties["v"])
	}
	if _, ok := features[0].Properties["s"]; ok {
		t.Error("expected s to be absent on first feature")
	}
	if _, ok := features[1].Properties["v"]; ok {
		t.Error("expected v to be absent on second feature")
	}
	if features[1].Properties["s"] != "x" {
		t.Errorf("expected s=x, got %v", features[1].Properties["s"])
	}
}
