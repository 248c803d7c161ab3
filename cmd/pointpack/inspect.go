package main

import (
	"encoding/json"
	"io"
	"math"

	"github.com/spf13/cobra"
	pointpack "github.com/tingold/orb-pointpack"
)

type inspectCommand struct {
	compressed bool
	limit      int
}

type inspectHeader struct {
	Count      int32      `json:"count"`
	FieldCount int16      `json:"field_count"`
	Flags      int16      `json:"flags"`
	HasTime    bool       `json:"has_time"`
	Integer    bool       `json:"integer"`
	Null       float64    `json:"null"`
	SRID       int32      `json:"srid"`
	Origin     [2]float64 `json:"origin"`
	RecordSize int        `json:"record_size"`
}

type inspectRecord struct {
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	DX     float32    `json:"dx"`
	DY     float32    `json:"dy"`
	Time   *int64     `json:"time,omitempty"`
	Values []*float64 `json:"values"`
}

type inspectOutput struct {
	Header  inspectHeader   `json:"header"`
	Records []inspectRecord `json:"records"`
}

var (
	inspector  = &inspectCommand{}
	inspectCmd = &cobra.Command{
		Use:   "inspect [package|-]",
		Short: "decode a package and print its header and first records as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return inspector.Run(path, cmd.OutOrStdout())
		},
	}
)

func (i *inspectCommand) Init(cmd *cobra.Command) {
	inspectFlag := cmd.Flags()
	inspectFlag.BoolVar(&i.compressed, "compressed", false, "The package is wrapped in a zlib stream.")
	inspectFlag.IntVarP(&i.limit, "limit", "n", 10, "Number of records to print, negative for all.")
}

func init() {
	inspector.Init(inspectCmd)
	rootCmd.AddCommand(inspectCmd)
}

func (i *inspectCommand) Run(path string, out io.Writer) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}
	if i.compressed {
		if data, err = pointpack.Decompress(data); err != nil {
			return err
		}
	}

	pkg, err := pointpack.Decode(data)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(describePackage(pkg, i.limit))
}

func describePackage(pkg *pointpack.Package, limit int) inspectOutput {
	h := pkg.Header
	null := float64(h.NullFloat)
	if h.Integer() {
		null = float64(h.NullInt)
	}

	records := pkg.Records
	if limit >= 0 && limit < len(records) {
		records = records[:limit]
	}

	desc := inspectOutput{
		Header: inspectHeader{
			Count:      h.Count,
			FieldCount: h.FieldCount,
			Flags:      h.Flags,
			HasTime:    h.HasTime(),
			Integer:    h.Integer(),
			Null:       null,
			SRID:       int32(h.SRID),
			Origin:     [2]float64{h.OriginX, h.OriginY},
			RecordSize: h.RecordSize(),
		},
		Records: make([]inspectRecord, 0, len(records)),
	}

	for _, r := range records {
		rec := inspectRecord{
			X:      r.Point[0],
			Y:      r.Point[1],
			DX:     r.DeltaX,
			DY:     r.DeltaY,
			Values: make([]*float64, len(r.Values)),
		}
		if h.HasTime() {
			t := r.Time
			rec.Time = &t
		}
		for j, v := range r.Values {
			// JSON has no representation for NaN or infinities.
			if !h.IsNull(v) && !math.IsNaN(v) && !math.IsInf(v, 0) {
				v := v
				rec.Values[j] = &v
			}
		}
		desc.Records = append(desc.Records, rec)
	}
	return desc
}
