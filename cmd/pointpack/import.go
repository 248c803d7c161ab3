package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	pointpack "github.com/tingold/orb-pointpack"
	"github.com/tingold/orb-pointpack/layer"
)

type importCommand struct {
	name        string
	description string
	noIndex     bool
}

var (
	importer  = &importCommand{}
	importCmd = &cobra.Command{
		Use:   "import <file.geojson|->",
		Short: "import a GeoJSON feature collection as a catalog layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return importer.Run(args[0])
		},
	}
)

func (i *importCommand) Init(cmd *cobra.Command) {
	importFlag := cmd.Flags()
	importFlag.StringVar(&i.name, "name", "", "Layer name (default: input file name without extension).")
	importFlag.StringVar(&i.description, "description", "", "Layer description.")
	importFlag.BoolVar(&i.noIndex, "no-index", false, "Do not write a spatial index.")
}

func init() {
	importer.Init(importCmd)
	rootCmd.AddCommand(importCmd)
}

func (i *importCommand) Run(path string) error {
	cfg, err := setupCLI()
	if err != nil {
		return err
	}

	name := i.name
	if name == "" {
		if path == "-" {
			return fmt.Errorf("--name is required when reading stdin")
		}
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	data, err := readInput(path)
	if err != nil {
		return err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("%s: invalid feature collection: %w", path, err)
	}

	catalog, err := layer.NewCatalog(cfg.Catalog.Dir)
	if err != nil {
		return err
	}

	opts := layer.DefaultOptions()
	opts.Description = i.description
	opts.IncludeIndex = !i.noIndex
	opts.CRS = pointpack.WGS84()
	if err := catalog.Import(name, fc, opts); err != nil {
		return err
	}

	log.Info().
		Str("layer", name).
		Str("dir", catalog.Dir()).
		Int("features", len(fc.Features)).
		Bool("index", opts.IncludeIndex).
		Msg("Layer imported")
	return nil
}
