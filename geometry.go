package pointpack

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// isEmptyGeometry reports whether geom has no coordinates to package.
func isEmptyGeometry(geom orb.Geometry) bool {
	switch g := geom.(type) {
	case nil:
		return true
	case orb.Point, orb.Bound:
		return false
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) == 0
	case orb.Ring:
		return len(g) == 0
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) == 0
	case orb.MultiPolygon:
		for _, p := range g {
			if !isEmptyGeometry(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, child := range g {
			if !isEmptyGeometry(child) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// checkGeometry rejects geometry implementations outside the orb types,
// including inside collections.
func checkGeometry(geom orb.Geometry) error {
	switch g := geom.(type) {
	case orb.Point, orb.MultiPoint, orb.LineString, orb.MultiLineString,
		orb.Ring, orb.Polygon, orb.MultiPolygon, orb.Bound:
		return nil
	case orb.Collection:
		for _, child := range g {
			if err := checkGeometry(child); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedGeometry, geom)
	}
}

// representativePoint reduces geom to a single point: points are kept as is,
// everything else is replaced by its centroid.
func representativePoint(geom orb.Geometry) orb.Point {
	switch g := geom.(type) {
	case orb.Point:
		return g
	case orb.Bound:
		return g.Center()
	}

	c, _ := planar.CentroidArea(geom)
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		// Degenerate shapes can yield no centroid.
		return geom.Bound().Center()
	}
	return c
}
