package pointpack

import (
	"fmt"
)

// Pack packages the records of cur as described by req. The coordinate
// transform is resolved before the first record is read. Pack does not close
// cur; see PackSource.
func Pack(schema *Schema, cur Cursor, req Request, opts *Options) ([]byte, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	sel := Select(schema, req.ValueAttributes, req.TimeAttribute)

	var source *CRS
	if schema != nil {
		source = schema.CRS
	}
	transform, srid, err := resolveCoordinates(opts.Adapter, source, req.TargetCRS)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("time_index", sel.TimeIndex).
		Ints("value_indexes", sel.ValueIndexes).
		Bool("integer", sel.Integer).
		Int32("srid", int32(srid)).
		Bool("transform", transform != nil).
		Msg("resolved package layout")

	buf, count, err := Encode(schema, cur, sel, transform, srid)
	if err != nil {
		return nil, err
	}
	if err := PatchCount(buf, count); err != nil {
		return nil, err
	}

	if !req.Compress {
		log.Debug().Int("records", count).Int("bytes", len(buf)).Msg("packaged records")
		return buf, nil
	}

	compressed, err := Compress(buf)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("records", count).
		Int("bytes", len(buf)).
		Int("compressed_bytes", len(compressed)).
		Msg("packaged records")
	return compressed, nil
}

// PackSource packages every record of src. The cursor is closed on all
// paths; a close failure is reported when packaging itself succeeded.
func PackSource(src Source, req Request, opts *Options) (data []byte, err error) {
	cur, err := src.Features()
	if err != nil {
		return nil, fmt.Errorf("pointpack: opening records: %w", err)
	}
	defer func() {
		if cerr := cur.Close(); cerr != nil && err == nil {
			data, err = nil, fmt.Errorf("pointpack: closing records: %w", cerr)
		}
	}()

	return Pack(src.Schema(), cur, req, opts)
}
