package layer

import (
	"errors"
	"fmt"
	"io"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	pointpack "github.com/tingold/orb-pointpack"
)

// magicSize is the length of the FlatGeobuf file signature.
const magicSize = 8

// Reader provides read access to a FlatGeobuf layer.
type Reader struct {
	fgb    *flatgeobuf.FlatGeoBuf
	path   string
	data   []byte
	count  uint64
	schema *pointpack.Schema
}

var _ pointpack.Source = (*Reader)(nil)

// Open opens the layer stored at path.
// The file is memory-mapped for efficient access.
func Open(path string) (*Reader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}

	return newReader(fgb, path, nil)
}

// OpenData opens a layer held in memory.
func OpenData(data []byte) (*Reader, error) {
	if len(data) < magicSize+4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidData, len(data))
	}

	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, err
	}

	return newReader(fgb, "", data)
}

func newReader(fgb *flatgeobuf.FlatGeoBuf, path string, data []byte) (*Reader, error) {
	r := &Reader{fgb: fgb, path: path, data: data}
	fh := fgb.Header()
	if fh == nil {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidData)
	}

	r.count = fh.FeaturesCount()
	if fh.IndexNodeSize() == 0 && r.count == 0 {
		n, err := r.countFeatures()
		if err != nil {
			return nil, err
		}
		r.count = n
	}

	h := r.Header()

	r.schema = &pointpack.Schema{CRS: h.CRS}
	for _, col := range h.Columns {
		r.schema.Attributes = append(r.schema.Attributes, pointpack.Attribute{
			Name:    col.Name,
			Kind:    col.Kind,
			Integer: col.Integer,
		})
	}

	return r, nil
}

// Header returns metadata about the layer. FeaturesCount is counted from the
// feature section when an unindexed file leaves it unset.
func (r *Reader) Header() *Header {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	header := &Header{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: r.count,
		HasIndex:      h.IndexNodeSize() > 0,
	}

	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil && (crs.Code() > 0 || len(crs.Name()) > 0) {
		header.CRS = &pointpack.CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	colLen := h.ColumnsLength()
	for i := 0; i < colLen; i++ {
		var col flattypes.Column
		if !h.Columns(&col, i) {
			continue
		}
		kind, integer := columnKind(col.Type())
		header.Columns = append(header.Columns, ColumnInfo{
			Name:     string(col.Name()),
			Type:     flattypes.EnumNamesColumnType[col.Type()],
			Kind:     kind,
			Integer:  integer,
			Nullable: col.Nullable(),
		})
	}

	return header
}

// Schema implements pointpack.Source. Integer column types map to integer
// Numeric attributes, Float and Double to float Numeric attributes and
// DateTime to Temporal attributes.
func (r *Reader) Schema() *pointpack.Schema {
	return r.schema
}

// Features implements pointpack.Source and iterates every feature of the
// layer.
func (r *Reader) Features() (pointpack.Cursor, error) {
	h := r.fgb.Header()

	// Features of indexed layers are reached through the index.
	if h.IndexNodeSize() > 0 {
		if h.FeaturesCount() == 0 {
			return pointpack.NewSliceCursor(nil), nil
		}
		if h.EnvelopeLength() < 4 {
			return nil, fmt.Errorf("%w: indexed layer without envelope", ErrInvalidData)
		}
		bound := orb.Bound{
			Min: orb.Point{h.Envelope(0), h.Envelope(1)},
			Max: orb.Point{h.Envelope(2), h.Envelope(3)},
		}
		return r.Search(bound)
	}

	return r.scan(nil)
}

// Search returns a cursor over the features whose bounding boxes intersect
// bound, using the layer's spatial index.
func (r *Reader) Search(bound orb.Bound) (pointpack.Cursor, error) {
	h := r.fgb.Header()
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}
	if h.FeaturesCount() == 0 {
		return pointpack.NewSliceCursor(nil), nil
	}

	found, err := r.fgb.Search(bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1])
	if err != nil {
		return nil, fmt.Errorf("layer: index search: %w", err)
	}

	return &cursor{header: h, found: found}, nil
}

// Within returns a source restricted to the features intersecting bound,
// expressed in the layer's reference system. Layers without an index are
// filtered with a full scan.
func (r *Reader) Within(bound orb.Bound) pointpack.Source {
	return &window{r: r, bound: bound}
}

// Close releases resources associated with the reader.
func (r *Reader) Close() error {
	// FlatGeoBuf has no Close; dropping the reference lets the mapping be
	// collected.
	r.fgb = nil
	r.data = nil
	return nil
}

// scan walks the feature section of an unindexed layer in file order.
func (r *Reader) scan(filter *orb.Bound) (pointpack.Cursor, error) {
	stream, err := r.openStream()
	if err != nil {
		return nil, err
	}
	return &cursor{header: r.fgb.Header(), stream: stream, filter: filter}, nil
}

type window struct {
	r     *Reader
	bound orb.Bound
}

func (w *window) Schema() *pointpack.Schema { return w.r.Schema() }

func (w *window) Features() (pointpack.Cursor, error) {
	cur, err := w.r.Search(w.bound)
	if errors.Is(err, ErrNoIndex) {
		return w.r.scan(&w.bound)
	}
	return cur, err
}

// cursor converts FlatGeobuf features to GeoJSON features one at a time,
// either from index search results or by walking the feature section.
type cursor struct {
	header *flattypes.Header

	found []*flattypes.Feature

	stream featureStream
	filter *orb.Bound

	current *geojson.Feature
	err     error
	closed  bool
}

func (c *cursor) Next() bool {
	c.current = nil
	if c.closed || c.err != nil {
		return false
	}

	for {
		f, ok := c.advance()
		if !ok {
			return false
		}

		feature, err := c.convert(f)
		if err != nil {
			c.err = err
			return false
		}
		if c.filter != nil && (feature.Geometry == nil || !c.filter.Intersects(feature.Geometry.Bound())) {
			continue
		}

		c.current = feature
		return true
	}
}

func (c *cursor) advance() (*flattypes.Feature, bool) {
	if c.stream == nil {
		if len(c.found) == 0 {
			return nil, false
		}
		f := c.found[0]
		c.found = c.found[1:]
		return f, true
	}

	buf, err := c.stream.next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			c.err = err
		}
		return nil, false
	}
	return flattypes.GetRootAsFeature(buf, 0), true
}

func (c *cursor) convert(f *flattypes.Feature) (feature *geojson.Feature, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: corrupt feature: %v", ErrInvalidData, r)
		}
	}()
	return convertFeature(f, c.header), nil
}

func (c *cursor) Feature() *geojson.Feature { return c.current }

func (c *cursor) Err() error { return c.err }

func (c *cursor) Close() error {
	c.closed = true
	c.current = nil
	c.found = nil
	if c.stream != nil {
		err := c.stream.Close()
		c.stream = nil
		return err
	}
	return nil
}

// convertFeature converts a FlatGeobuf feature to a geojson.Feature. Features
// stored without a geometry are returned with a nil Geometry.
func convertFeature(fgbFeature *flattypes.Feature, header *flattypes.Header) *geojson.Feature {
	var geomObj flattypes.Geometry
	var geom orb.Geometry
	if g := fgbFeature.Geometry(&geomObj); g != nil {
		geom = geometryFromFGB(g)
	}

	feature := geojson.NewFeature(geom)

	propsLen := fgbFeature.PropertiesLength()
	if propsLen > 0 && header.ColumnsLength() > 0 {
		propsBytes := make([]byte, propsLen)
		for i := 0; i < propsLen; i++ {
			propsBytes[i] = byte(fgbFeature.Properties(i))
		}
		feature.Properties = decodeProperties(propsBytes, header)
	}

	return feature
}
