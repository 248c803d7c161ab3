package pointpack

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// SRID is a spatial reference identifier, normally an EPSG code.
//
// The zero value means the reference system is unknown.
type SRID int32

// Common SRIDs.
const (
	UnknownSRID     = SRID(0)
	WGS84SRID       = SRID(4326)
	WebMercatorSRID = SRID(3857)
)

// MaxMercatorLatitude bounds the latitudes Web Mercator can represent.
const MaxMercatorLatitude = 85.05112878

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
	WKT         string // Well-Known Text representation
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{Code: 4326, Name: "WGS 84"}
}

// WebMercator returns the spherical Web Mercator CRS (EPSG:3857).
func WebMercator() *CRS {
	return &CRS{Code: 3857, Name: "WGS 84 / Pseudo-Mercator"}
}

// aliases maps deprecated or vendor codes onto their canonical EPSG code.
var aliases = map[int]int{
	900913: 3857,
	3785:   3857,
	102100: 3857,
	102113: 3857,
	84:     4326, // CRS:84, lon/lat axis order
}

func canonicalCode(code int) int {
	if c, ok := aliases[code]; ok {
		return c
	}
	return code
}

// ParseCRS parses "EPSG:4326", "4326", "CRS:84" or an OGC URN such as
// "urn:ogc:def:crs:EPSG::3857".
func ParseCRS(s string) (*CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("pointpack: empty CRS")
	}

	code := s
	if i := strings.LastIndex(s, ":"); i >= 0 {
		code = s[i+1:]
	}
	n, err := strconv.Atoi(code)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("pointpack: unrecognized CRS %q", s)
	}

	switch {
	case n == 4326 || (n == 84 && strings.HasPrefix(strings.ToUpper(s), "CRS")):
		return WGS84(), nil
	case canonicalCode(n) == 3857:
		return &CRS{Code: n, Name: "WGS 84 / Pseudo-Mercator"}, nil
	}
	return &CRS{Code: n}, nil
}

// SRID returns the canonical spatial reference identifier of c.
func (c *CRS) SRID() SRID {
	if c == nil || c.Code <= 0 {
		return UnknownSRID
	}
	return SRID(canonicalCode(c.Code))
}

// Equivalent reports whether c and o describe the same reference system,
// ignoring names and aliases.
func (c *CRS) Equivalent(o *CRS) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Code > 0 || o.Code > 0 {
		return c.SRID() == o.SRID()
	}
	return c.WKT != "" && c.WKT == o.WKT
}

func (c *CRS) String() string {
	if c == nil {
		return "<nil>"
	}
	if c.Code > 0 {
		return "EPSG:" + strconv.Itoa(c.Code)
	}
	return c.Name
}

// Transform maps a point from one reference system into another. A nil
// Transform is the identity.
type Transform func(orb.Point) (orb.Point, error)

// Apply runs t on p, treating a nil t as the identity.
func (t Transform) Apply(p orb.Point) (orb.Point, error) {
	if t == nil {
		return p, nil
	}
	return t(p)
}

// CoordinateAdapter resolves reference system capabilities for packaging.
type CoordinateAdapter interface {
	// ResolveTransform returns the transform from source to target. It returns
	// a nil Transform when either system is absent or both are equivalent.
	ResolveTransform(source, target *CRS) (Transform, error)

	// ResolveSRID returns the identifier for crs, or UnknownSRID.
	ResolveSRID(crs *CRS) SRID
}

// ProjectionAdapter is a CoordinateAdapter backed by the orb projections. It
// supports WGS84 and spherical Web Mercator.
type ProjectionAdapter struct{}

var _ CoordinateAdapter = ProjectionAdapter{}

// DefaultAdapter is used when Options carries no adapter.
var DefaultAdapter CoordinateAdapter = ProjectionAdapter{}

// ResolveTransform implements CoordinateAdapter.
func (ProjectionAdapter) ResolveTransform(source, target *CRS) (Transform, error) {
	if source == nil || target == nil || source.Equivalent(target) {
		return nil, nil
	}

	switch {
	case source.SRID() == WGS84SRID && target.SRID() == WebMercatorSRID:
		return toMercator, nil
	case source.SRID() == WebMercatorSRID && target.SRID() == WGS84SRID:
		return toWGS84, nil
	}
	return nil, fmt.Errorf("%w: %s to %s", ErrTransformResolution, source, target)
}

// ResolveSRID implements CoordinateAdapter.
func (ProjectionAdapter) ResolveSRID(crs *CRS) SRID {
	return crs.SRID()
}

// ReprojectBound expresses bound, given in from, in the reference system to by
// transforming its corners with adapter.
func ReprojectBound(adapter CoordinateAdapter, bound orb.Bound, from, to *CRS) (orb.Bound, error) {
	transform, err := adapter.ResolveTransform(from, to)
	if err != nil {
		return orb.Bound{}, err
	}
	if transform == nil {
		return bound, nil
	}

	corners := []orb.Point{
		bound.Min,
		{bound.Max[0], bound.Min[1]},
		bound.Max,
		{bound.Min[0], bound.Max[1]},
	}

	out := make(orb.MultiPoint, 0, len(corners))
	for _, p := range corners {
		q, err := transform.Apply(p)
		if err != nil {
			return orb.Bound{}, err
		}
		out = append(out, q)
	}
	return out.Bound(), nil
}

func toMercator(p orb.Point) (orb.Point, error) {
	if math.Abs(p.Lat()) > MaxMercatorLatitude {
		return orb.Point{}, fmt.Errorf("%w: latitude %v outside Web Mercator range", ErrGeometryTransform, p.Lat())
	}
	return finite(project.Point(p, project.WGS84.ToMercator))
}

func toWGS84(p orb.Point) (orb.Point, error) {
	return finite(project.Point(p, project.Mercator.ToWGS84))
}

func finite(p orb.Point) (orb.Point, error) {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return orb.Point{}, fmt.Errorf("%w: non-finite result %v", ErrGeometryTransform, p)
		}
	}
	return p, nil
}

// resolveCoordinates applies the SRID rule: a reference system is looked up
// only if the source or the target is known, preferring the target.
func resolveCoordinates(adapter CoordinateAdapter, source, target *CRS) (Transform, SRID, error) {
	transform, err := adapter.ResolveTransform(source, target)
	if err != nil {
		return nil, UnknownSRID, err
	}

	srid := UnknownSRID
	switch {
	case target != nil:
		srid = adapter.ResolveSRID(target)
	case source != nil:
		srid = adapter.ResolveSRID(source)
	}
	return transform, srid, nil
}
