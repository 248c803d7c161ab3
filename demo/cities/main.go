// Command cities seeds a catalog with a small layer of world cities so that
// "pointpack serve" has something to package.
package main

import (
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	pointpack "github.com/tingold/orb-pointpack"
	"github.com/tingold/orb-pointpack/internal/logger"
	"github.com/tingold/orb-pointpack/layer"
)

type City struct {
	Name       string
	Country    string
	Longitude  float64
	Latitude   float64
	Population int
	Capital    bool
	Census     string
}

var cities = []City{
	{"Tokyo", "Japan", 139.6917, 35.6895, 13960000, true, "2020-10-01"},
	{"New York", "United States", -73.9857, 40.7484, 8336817, false, "2020-04-01"},
	{"London", "United Kingdom", -0.1276, 51.5074, 8982000, true, "2021-03-21"},
	{"Paris", "France", 2.3522, 48.8566, 2161000, true, "2019-01-01"},
	{"Beijing", "China", 116.4074, 39.9042, 21540000, true, "2020-11-01"},
	{"Moscow", "Russia", 37.6173, 55.7558, 12615000, true, "2021-10-01"},
	{"São Paulo", "Brazil", -46.6333, -23.5505, 12300000, false, "2022-08-01"},
	{"Mumbai", "India", 72.8777, 19.0760, 12400000, false, "2011-03-01"},
	{"Los Angeles", "United States", -118.2437, 34.0522, 3971883, false, "2020-04-01"},
	{"Shanghai", "China", 121.4737, 31.2304, 24870000, false, "2020-11-01"},
	{"Istanbul", "Turkey", 28.9784, 41.0082, 15520000, false, "2021-12-31"},
	{"Buenos Aires", "Argentina", -58.3816, -34.6037, 3075646, true, "2022-05-18"},
	{"Cairo", "Egypt", 31.2357, 30.0444, 10230000, true, "2017-04-01"},
	{"Sydney", "Australia", 151.2093, -33.8688, 5312000, false, "2021-08-10"},
	{"Berlin", "Germany", 13.4050, 52.5200, 3669491, true, "2022-05-15"},
}

var (
	dir     string
	rootCmd = &cobra.Command{
		Use:   "cities",
		Short: "seed a catalog with the world_cities layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(dir)
		},
	}
)

func init() {
	rootCmd.Flags().StringVar(&dir, "dir", "./data/layers", "Catalog directory.")
}

func seed(dir string) error {
	logger.Setup("info", "console")
	log := logger.Get("cities")

	fc := geojson.NewFeatureCollection()
	for _, city := range cities {
		f := geojson.NewFeature(orb.Point{city.Longitude, city.Latitude})
		f.Properties = geojson.Properties{
			"name":       city.Name,
			"country":    city.Country,
			"population": city.Population,
			"capital":    city.Capital,
			"census":     city.Census,
		}
		fc.Append(f)
	}

	catalog, err := layer.NewCatalog(dir)
	if err != nil {
		return err
	}

	opts := layer.DefaultOptions()
	opts.Description = "Major world cities"
	if err := catalog.Import("world_cities", fc, opts); err != nil {
		return err
	}

	// Package once so the log shows what a client would receive.
	r, err := catalog.Open("world_cities")
	if err != nil {
		return err
	}
	defer r.Close()

	data, err := pointpack.PackSource(r, pointpack.Request{
		ValueAttributes: []string{"population"},
		TimeAttribute:   "census",
	}, nil)
	if err != nil {
		return err
	}

	log.Info().
		Str("dir", catalog.Dir()).
		Int("features", len(fc.Features)).
		Int("package_bytes", len(data)).
		Msg("Seeded world_cities")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
