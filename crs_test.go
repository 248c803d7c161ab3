package pointpack

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/stretchr/testify/require"
)

func TestParseCRS(t *testing.T) {
	tests := []struct {
		in   string
		srid SRID
	}{
		{"EPSG:4326", WGS84SRID},
		{"epsg:4326", WGS84SRID},
		{"4326", WGS84SRID},
		{"CRS:84", WGS84SRID},
		{"EPSG:3857", WebMercatorSRID},
		{"EPSG:900913", WebMercatorSRID},
		{"urn:ogc:def:crs:EPSG::3857", WebMercatorSRID},
		{"EPSG:2154", SRID(2154)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			crs, err := ParseCRS(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.srid, crs.SRID())
		})
	}
}

func TestParseCRS_Invalid(t *testing.T) {
	for _, in := range []string{"", "EPSG:", "EPSG:abc", "EPSG:-1", "wgs84"} {
		_, err := ParseCRS(in)
		require.Error(t, err, in)
	}
}

func TestCRS_Equivalent(t *testing.T) {
	var none *CRS
	require.True(t, none.Equivalent(nil))
	require.False(t, WGS84().Equivalent(nil))
	require.True(t, WGS84().Equivalent(&CRS{Code: 4326}))
	require.True(t, WebMercator().Equivalent(&CRS{Code: 900913}))
	require.False(t, WGS84().Equivalent(WebMercator()))
	require.True(t, (&CRS{WKT: "LOCAL_CS[\"x\"]"}).Equivalent(&CRS{WKT: "LOCAL_CS[\"x\"]"}))
	require.False(t, (&CRS{}).Equivalent(&CRS{}))
}

func TestCRS_String(t *testing.T) {
	var none *CRS
	require.Equal(t, "<nil>", none.String())
	require.Equal(t, "EPSG:4326", WGS84().String())
	require.Equal(t, "custom", (&CRS{Name: "custom"}).String())
}

func TestProjectionAdapter_ResolveTransform(t *testing.T) {
	a := ProjectionAdapter{}

	tr, err := a.ResolveTransform(nil, WGS84())
	require.NoError(t, err)
	require.Nil(t, tr)

	tr, err = a.ResolveTransform(WGS84(), nil)
	require.NoError(t, err)
	require.Nil(t, tr)

	tr, err = a.ResolveTransform(WGS84(), &CRS{Code: 4326, Name: "other name"})
	require.NoError(t, err)
	require.Nil(t, tr)

	_, err = a.ResolveTransform(WGS84(), &CRS{Code: 2154})
	require.ErrorIs(t, err, ErrTransformResolution)
}

func TestProjectionAdapter_Mercator(t *testing.T) {
	a := ProjectionAdapter{}

	forward, err := a.ResolveTransform(WGS84(), WebMercator())
	require.NoError(t, err)
	require.NotNil(t, forward)

	in := orb.Point{2.3522, 48.8566}
	out, err := forward.Apply(in)
	require.NoError(t, err)
	want := project.Point(in, project.WGS84.ToMercator)
	require.InDelta(t, want[0], out[0], 1e-6)
	require.InDelta(t, want[1], out[1], 1e-6)

	inverse, err := a.ResolveTransform(&CRS{Code: 900913}, WGS84())
	require.NoError(t, err)
	back, err := inverse.Apply(out)
	require.NoError(t, err)
	require.InDelta(t, in[0], back[0], 1e-9)
	require.InDelta(t, in[1], back[1], 1e-9)

	_, err = forward.Apply(orb.Point{0, 89})
	require.ErrorIs(t, err, ErrGeometryTransform)
}

func TestTransform_NilIsIdentity(t *testing.T) {
	var tr Transform
	p, err := tr.Apply(orb.Point{1, 2})
	require.NoError(t, err)
	require.Equal(t, orb.Point{1, 2}, p)
}

func TestResolveCoordinates_SRID(t *testing.T) {
	tests := []struct {
		name           string
		source, target *CRS
		want           SRID
	}{
		{"none", nil, nil, UnknownSRID},
		{"source only", &CRS{Code: 2154}, nil, SRID(2154)},
		{"target wins", WGS84(), WebMercator(), WebMercatorSRID},
		{"alias canonical", nil, &CRS{Code: 900913}, WebMercatorSRID},
		{"unknown code", &CRS{Name: "local"}, nil, UnknownSRID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srid, err := resolveCoordinates(DefaultAdapter, tt.source, tt.target)
			require.NoError(t, err)
			require.Equal(t, tt.want, srid)
		})
	}
}

func TestReprojectBound(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{-10, -5}, Max: orb.Point{10, 20}}

	same, err := ReprojectBound(DefaultAdapter, bound, WGS84(), nil)
	require.NoError(t, err)
	require.Equal(t, bound, same)

	merc, err := ReprojectBound(DefaultAdapter, bound, WGS84(), WebMercator())
	require.NoError(t, err)
	lo := project.Point(bound.Min, project.WGS84.ToMercator)
	hi := project.Point(bound.Max, project.WGS84.ToMercator)
	require.InDelta(t, lo[0], merc.Min[0], 1e-6)
	require.InDelta(t, lo[1], merc.Min[1], 1e-6)
	require.InDelta(t, hi[0], merc.Max[0], 1e-6)
	require.InDelta(t, hi[1], merc.Max[1], 1e-6)

	_, err = ReprojectBound(DefaultAdapter, orb.Bound{Max: orb.Point{1, 89}}, WGS84(), WebMercator())
	require.ErrorIs(t, err, ErrGeometryTransform)

	_, err = ReprojectBound(DefaultAdapter, bound, &CRS{Code: 2154}, WGS84())
	require.ErrorIs(t, err, ErrTransformResolution)
}
