package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	pointpack "github.com/tingold/orb-pointpack"
	"github.com/tingold/orb-pointpack/internal/api"
	"github.com/tingold/orb-pointpack/layer"
)

type packCommand struct {
	timeAttr string
	values   string
	srid     string
	bbox     string
	compress bool
	output   string
}

var (
	packer  = &packCommand{}
	packCmd = &cobra.Command{
		Use:   "pack <file.geojson|file.fgb>",
		Short: "build a package from a GeoJSON or FlatGeobuf file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return packer.Run(cmd, args[0])
		},
	}
)

func (p *packCommand) Init(cmd *cobra.Command) {
	packFlag := cmd.Flags()
	packFlag.StringVar(&p.timeAttr, "time", "", "Temporal attribute to emit as the record timestamp.")
	packFlag.StringVar(&p.values, "values", "", "Numeric attributes to emit, comma-separated.")
	packFlag.StringVar(&p.srid, "srid", "", "Output reference system (e.g. 3857, EPSG:4326). Also the reference system of --bbox.")
	packFlag.StringVar(&p.bbox, "bbox", "", "Only package records intersecting minx,miny,maxx,maxy.")
	packFlag.BoolVar(&p.compress, "compress", false, "Wrap the package in a zlib stream (default: package.compress).")
	packFlag.StringVarP(&p.output, "output", "o", "-", "Output file, - for stdout.")
}

func init() {
	packer.Init(packCmd)
	rootCmd.AddCommand(packCmd)
}

func (p *packCommand) Run(cmd *cobra.Command, path string) error {
	cfg, err := setupCLI()
	if err != nil {
		return err
	}

	req := pointpack.Request{
		ValueAttributes: pointpack.ParseAttributeList(p.values),
		TimeAttribute:   strings.TrimSpace(p.timeAttr),
		Compress:        cfg.Package.Compress,
	}
	if cmd.Flags().Changed("compress") {
		req.Compress = p.compress
	}
	if p.srid != "" {
		if req.TargetCRS, err = pointpack.ParseCRS(p.srid); err != nil {
			return err
		}
	}

	bound, hasBound, err := api.ParseBbox(p.bbox)
	if err != nil {
		return err
	}

	var src pointpack.Source
	switch strings.ToLower(filepath.Ext(path)) {
	case layer.Extension:
		r, err := layer.Open(path)
		if err != nil {
			return err
		}
		defer r.Close()

		src = r
		if hasBound {
			if src, err = layerWindow(r, bound, req.TargetCRS); err != nil {
				return err
			}
		}
	case ".geojson", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return fmt.Errorf("%s: invalid feature collection: %w", path, err)
		}

		src = pointpack.NewCollectionSource(fc)
		if hasBound {
			if src, err = collectionWindow(src.Schema(), fc, bound, req.TargetCRS); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%s: unsupported input, want .geojson, .json or %s", path, layer.Extension)
	}

	l := log.With().Str("source", filepath.Base(path)).Logger()
	data, err := pointpack.PackSource(src, req, &pointpack.Options{Logger: &l})
	if err != nil {
		return err
	}

	if err := writeOutput(p.output, data); err != nil {
		return err
	}

	l.Info().
		Int("bytes", len(data)).
		Bool("compressed", req.Compress).
		Str("output", p.output).
		Msg("Package written")
	return nil
}

// layerWindow restricts r to bound, given in crs or, when crs is nil, in the
// layer reference system.
func layerWindow(r *layer.Reader, bound orb.Bound, crs *pointpack.CRS) (pointpack.Source, error) {
	layerCRS := r.Schema().CRS
	if crs == nil {
		crs = layerCRS
	}
	b, err := pointpack.ReprojectBound(pointpack.DefaultAdapter, bound, crs, layerCRS)
	if err != nil {
		return nil, err
	}
	return r.Within(b), nil
}

// collectionWindow keeps the features of fc whose extent intersects bound.
// The schema stays the one of the whole collection.
func collectionWindow(schema *pointpack.Schema, fc *geojson.FeatureCollection, bound orb.Bound, crs *pointpack.CRS) (pointpack.Source, error) {
	if crs == nil {
		crs = schema.CRS
	}
	b, err := pointpack.ReprojectBound(pointpack.DefaultAdapter, bound, crs, schema.CRS)
	if err != nil {
		return nil, err
	}

	features := make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f != nil && f.Geometry != nil && f.Geometry.Bound().Intersects(b) {
			features = append(features, f)
		}
	}
	return &filteredSource{schema: schema, features: features}, nil
}

type filteredSource struct {
	schema   *pointpack.Schema
	features []*geojson.Feature
}

func (s *filteredSource) Schema() *pointpack.Schema { return s.schema }

func (s *filteredSource) Features() (pointpack.Cursor, error) {
	return pointpack.NewSliceCursor(s.features), nil
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
