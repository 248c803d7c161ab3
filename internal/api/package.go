package api

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	pointpack "github.com/tingold/orb-pointpack"
	"github.com/tingold/orb-pointpack/layer"
)

// CompressedHeader tells clients whether the package body is zlib framed.
const CompressedHeader = "X-Package-Compressed"

// PackageHandler serves the packaging endpoints.
type PackageHandler struct {
	catalog  *layer.Catalog
	compress bool
	logger   zerolog.Logger
}

// LayerInfo describes one catalog layer.
type LayerInfo struct {
	Name         string       `json:"name"`
	GeometryType string       `json:"geometry_type"`
	Features     uint64       `json:"features"`
	SRID         int32        `json:"srid"`
	Bbox         [4]float64   `json:"bbox"`
	Attributes   []ColumnInfo `json:"attributes"`
}

// ColumnInfo describes one layer attribute.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Kind string `json:"kind"`
}

// LayerListResponse represents the response for listing layers
type LayerListResponse struct {
	Layers []LayerInfo `json:"layers"`
	Count  int         `json:"count"`
}

// NewPackageHandler creates a handler serving layers from catalog. compress is
// the default when a request does not say.
func NewPackageHandler(catalog *layer.Catalog, compress bool, logger zerolog.Logger) *PackageHandler {
	return &PackageHandler{
		catalog:  catalog,
		compress: compress,
		logger:   logger.With().Str("component", "package-handler").Logger(),
	}
}

// RegisterRoutes registers the packaging routes
func (h *PackageHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/v1/layers", h.handleLayers)
	app.Get("/api/v1/package/layer", h.handlePackageLayer)
	app.Post("/api/v1/package/layer", h.handlePackageLayer)
	app.Post("/api/v1/package/collection", h.handlePackageCollection)
}

// handleLayers handles GET /api/v1/layers
func (h *PackageHandler) handleLayers(c *fiber.Ctx) error {
	names, err := h.catalog.Names()
	if err != nil {
		return err
	}

	infos := make([]LayerInfo, 0, len(names))
	for _, name := range names {
		r, err := h.catalog.Open(name)
		if err != nil {
			h.logger.Warn().Err(err).Str("layer", name).Msg("Skipping unreadable layer")
			continue
		}
		hdr := r.Header()
		info := LayerInfo{
			Name:         name,
			GeometryType: hdr.GeometryType,
			Features:     hdr.FeaturesCount,
			SRID:         int32(hdr.CRS.SRID()),
			Bbox:         hdr.Envelope,
			Attributes:   make([]ColumnInfo, 0, len(hdr.Columns)),
		}
		for _, col := range hdr.Columns {
			info.Attributes = append(info.Attributes, ColumnInfo{Name: col.Name, Type: col.Type, Kind: col.Kind.String()})
		}
		_ = r.Close()
		infos = append(infos, info)
	}

	return c.JSON(LayerListResponse{Layers: infos, Count: len(infos)})
}

// handlePackageLayer handles GET|POST /api/v1/package/layer
//
// Parameters: layer (required), bbox=minx,miny,maxx,maxy, srid (reference
// system of bbox and of the output), timeAttribute, outputAttributes and
// compress.
func (h *PackageHandler) handlePackageLayer(c *fiber.Ctx) error {
	name := param(c, "layer")
	if name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "layer is required")
	}

	req, err := h.parseRequest(c)
	if err != nil {
		return err
	}

	bound, hasBound, err := ParseBbox(param(c, "bbox"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	r, err := h.catalog.Open(name)
	if err != nil {
		return err
	}
	defer r.Close()

	var src pointpack.Source = r
	if hasBound {
		layerBound, err := reprojectBound(bound, req.TargetCRS, r.Schema().CRS)
		if err != nil {
			return err
		}
		src = r.Within(layerBound)
	}

	return h.send(c, src, req, name)
}

// handlePackageCollection handles POST /api/v1/package/collection with a
// GeoJSON FeatureCollection body.
func (h *PackageHandler) handlePackageCollection(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		return err
	}

	fc, err := geojson.UnmarshalFeatureCollection(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid feature collection: "+err.Error())
	}

	return h.send(c, pointpack.NewCollectionSource(fc), req, "collection")
}

func (h *PackageHandler) parseRequest(c *fiber.Ctx) (pointpack.Request, error) {
	req := pointpack.Request{
		ValueAttributes: pointpack.ParseAttributeList(param(c, "outputAttributes")),
		TimeAttribute:   strings.TrimSpace(param(c, "timeAttribute")),
		Compress:        h.compress,
	}

	if s := param(c, "srid"); s != "" {
		crs, err := pointpack.ParseCRS(s)
		if err != nil {
			return req, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.TargetCRS = crs
	}

	if s := param(c, "compress"); s != "" {
		compress, err := strconv.ParseBool(s)
		if err != nil {
			return req, fiber.NewError(fiber.StatusBadRequest, "invalid compress value: "+s)
		}
		req.Compress = compress
	}

	return req, nil
}

func (h *PackageHandler) send(c *fiber.Ctx, src pointpack.Source, req pointpack.Request, name string) error {
	logger := h.logger.With().Str("source", name).Logger()

	data, err := pointpack.PackSource(src, req, &pointpack.Options{Logger: &logger})
	if err != nil {
		return err
	}

	logger.Debug().
		Int("bytes", len(data)).
		Bool("compressed", req.Compress).
		Msg("Sending package")

	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	c.Set(CompressedHeader, strconv.FormatBool(req.Compress))
	return c.Send(data)
}

// param reads a parameter from the query string, falling back to a form body.
func param(c *fiber.Ctx, key string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	if c.Method() == fiber.MethodPost && strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEApplicationForm) {
		return c.FormValue(key)
	}
	return ""
}

// ParseBbox parses "minx,miny,maxx,maxy". An empty string means no bound.
func ParseBbox(s string) (orb.Bound, bool, error) {
	if strings.TrimSpace(s) == "" {
		return orb.Bound{}, false, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, false, fmt.Errorf("bbox must be minx,miny,maxx,maxy: %q", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return orb.Bound{}, false, fmt.Errorf("invalid bbox coordinate %q", p)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, false, fmt.Errorf("bbox minimum exceeds maximum: %q", s)
	}

	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, true, nil
}

// reprojectBound expresses a request bbox in the layer reference system.
func reprojectBound(bound orb.Bound, from, to *pointpack.CRS) (orb.Bound, error) {
	out, err := pointpack.ReprojectBound(pointpack.DefaultAdapter, bound, from, to)
	if errors.Is(err, pointpack.ErrGeometryTransform) {
		return orb.Bound{}, fiber.NewError(fiber.StatusBadRequest, "bbox cannot be expressed in the layer reference system")
	}
	return out, err
}
