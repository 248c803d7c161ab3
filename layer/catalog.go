package layer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Catalog is a directory of FlatGeobuf layers addressed by name. A layer named
// "stations" is stored as stations.fgb.
type Catalog struct {
	dir string
}

// NewCatalog opens the catalog rooted at dir, creating the directory when it
// does not exist.
func NewCatalog(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("layer: catalog %s: %w", dir, err)
	}
	return &Catalog{dir: dir}, nil
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string { return c.dir }

// Names lists the catalog layers in sorted order.
func (c *Catalog) Names() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("layer: catalog %s: %w", c.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := layerName(e); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names, nil
}

// Open opens the layer called name. Names are compared case-insensitively.
func (c *Catalog) Open(name string) (*Reader, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("layer: catalog %s: %w", c.dir, err)
	}
	for _, e := range entries {
		if n, ok := layerName(e); ok && strings.EqualFold(n, name) {
			return Open(filepath.Join(c.dir, e.Name()))
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrLayerNotFound, name)
}

// Import writes fc as the layer called name, replacing any layer of the same
// name. The file is written next to its final location and renamed into
// place, so readers never see a partial layer.
func (c *Catalog) Import(name string, fc *geojson.FeatureCollection, opts *Options) error {
	if err := validName(name); err != nil {
		return err
	}

	o := DefaultOptions()
	if opts != nil {
		o = &Options{}
		*o = *opts
	}
	if o.Name == "" {
		o.Name = name
	}

	tmp, err := os.CreateTemp(c.dir, ".import-*"+Extension)
	if err != nil {
		return fmt.Errorf("layer: import %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, fc, o); err != nil {
		tmp.Close()
		return fmt.Errorf("layer: import %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("layer: import %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(c.dir, name+Extension)); err != nil {
		return fmt.Errorf("layer: import %s: %w", name, err)
	}
	return nil
}

// layerName returns the layer name of a catalog entry. Hidden files, such as
// imports in progress, are not layers.
func layerName(e os.DirEntry) (string, bool) {
	file := e.Name()
	ext := filepath.Ext(file)
	if e.IsDir() || strings.HasPrefix(file, ".") || !strings.EqualFold(ext, Extension) {
		return "", false
	}
	return strings.TrimSuffix(file, ext), true
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidLayerName, name)
	}
	return nil
}
