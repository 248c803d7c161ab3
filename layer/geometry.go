package layer

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// geometryType returns the FlatGeobuf geometry type of geom.
func geometryType(geom orb.Geometry) flattypes.GeometryType {
	switch geom.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Ring, orb.Polygon, orb.Bound:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// layerGeometryType returns the common geometry type of features, or Unknown
// when they mix types.
func layerGeometryType(geoms []orb.Geometry) flattypes.GeometryType {
	if len(geoms) == 0 {
		return flattypes.GeometryTypeUnknown
	}
	t := geometryType(geoms[0])
	for _, g := range geoms[1:] {
		if geometryType(g) != t {
			return flattypes.GeometryTypeUnknown
		}
	}
	return t
}

// geometryToFGB converts an orb.Geometry to a FlatGeobuf writer.Geometry.
func geometryToFGB(geom orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	g := writer.NewGeometry(builder)

	switch v := geom.(type) {
	case orb.Point:
		g.SetType(flattypes.GeometryTypePoint)
		g.SetXY([]float64{v[0], v[1]})

	case orb.MultiPoint:
		g.SetType(flattypes.GeometryTypeMultiPoint)
		g.SetXY(appendXY(nil, v))

	case orb.LineString:
		g.SetType(flattypes.GeometryTypeLineString)
		g.SetXY(appendXY(nil, v))

	case orb.MultiLineString:
		runs := make([][]orb.Point, len(v))
		for i, ls := range v {
			runs[i] = ls
		}
		g.SetType(flattypes.GeometryTypeMultiLineString)
		setRuns(g, runs)

	case orb.Ring:
		g.SetType(flattypes.GeometryTypePolygon)
		setRuns(g, [][]orb.Point{v})

	case orb.Polygon:
		g.SetType(flattypes.GeometryTypePolygon)
		setRuns(g, polygonRuns(v))

	case orb.Bound:
		g.SetType(flattypes.GeometryTypePolygon)
		setRuns(g, polygonRuns(v.ToPolygon()))

	case orb.MultiPolygon:
		g.SetType(flattypes.GeometryTypeMultiPolygon)
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			part := writer.NewGeometry(builder)
			part.SetType(flattypes.GeometryTypePolygon)
			setRuns(part, polygonRuns(poly))
			parts = append(parts, *part)
		}
		g.SetParts(parts)

	case orb.Collection:
		g.SetType(flattypes.GeometryTypeGeometryCollection)
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			if part := geometryToFGB(child, builder); part != nil {
				parts = append(parts, *part)
			}
		}
		g.SetParts(parts)

	default:
		return nil
	}

	return g
}

func polygonRuns(poly orb.Polygon) [][]orb.Point {
	runs := make([][]orb.Point, len(poly))
	for i, ring := range poly {
		runs[i] = ring
	}
	return runs
}

// setRuns stores consecutive point runs as one flat XY array with cumulative
// end offsets.
func setRuns(g *writer.Geometry, runs [][]orb.Point) {
	var xy []float64
	ends := make([]uint32, 0, len(runs))
	for _, run := range runs {
		xy = appendXY(xy, run)
		ends = append(ends, uint32(len(xy)/2))
	}
	g.SetXY(xy)
	g.SetEnds(ends)
}

func appendXY(xy []float64, pts []orb.Point) []float64 {
	for _, p := range pts {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

// geometryFromFGB converts a FlatGeobuf geometry to an orb.Geometry. It
// returns nil for unsupported geometry types.
func geometryFromFGB(g *flattypes.Geometry) orb.Geometry {
	switch g.Type() {
	case flattypes.GeometryTypePoint:
		if g.XyLength() < 2 {
			return orb.Point{}
		}
		return orb.Point{g.Xy(0), g.Xy(1)}

	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(pointRun(g, 0, g.XyLength()/2))

	case flattypes.GeometryTypeLineString:
		return orb.LineString(pointRun(g, 0, g.XyLength()/2))

	case flattypes.GeometryTypeMultiLineString:
		runs := pointRuns(g)
		mls := make(orb.MultiLineString, len(runs))
		for i, run := range runs {
			mls[i] = run
		}
		return mls

	case flattypes.GeometryTypePolygon:
		return polygonFromFGB(g)

	case flattypes.GeometryTypeMultiPolygon:
		n := g.PartsLength()
		if n == 0 {
			// Single polygon stored without parts.
			if poly := polygonFromFGB(g); len(poly) > 0 {
				return orb.MultiPolygon{poly}
			}
			return orb.MultiPolygon{}
		}
		mp := make(orb.MultiPolygon, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if poly := polygonFromFGB(&part); len(poly) > 0 {
					mp = append(mp, poly)
				}
			}
		}
		return mp

	case flattypes.GeometryTypeGeometryCollection:
		n := g.PartsLength()
		coll := make(orb.Collection, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if child := geometryFromFGB(&part); child != nil {
					coll = append(coll, child)
				}
			}
		}
		return coll

	default:
		return nil
	}
}

func polygonFromFGB(g *flattypes.Geometry) orb.Polygon {
	runs := pointRuns(g)
	poly := make(orb.Polygon, len(runs))
	for i, run := range runs {
		poly[i] = run
	}
	return poly
}

// pointRuns splits the XY array of g at its end offsets. Without ends the
// whole array is one run.
func pointRuns(g *flattypes.Geometry) [][]orb.Point {
	total := g.XyLength() / 2
	if total == 0 {
		return nil
	}

	n := g.EndsLength()
	if n == 0 {
		return [][]orb.Point{pointRun(g, 0, total)}
	}

	runs := make([][]orb.Point, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := int(g.Ends(i))
		if end > total {
			end = total
		}
		if end < start {
			end = start
		}
		runs = append(runs, pointRun(g, start, end))
		start = end
	}
	return runs
}

// pointRun reads points [start, end) of the XY array of g.
func pointRun(g *flattypes.Geometry, start, end int) []orb.Point {
	pts := make([]orb.Point, 0, end-start)
	for i := start; i < end; i++ {
		pts = append(pts, orb.Point{g.Xy(2 * i), g.Xy(2*i + 1)})
	}
	return pts
}
