package pointpack

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeMillis(t *testing.T) {
	ts := time.Date(2021, 3, 4, 5, 6, 7, 8e6, time.UTC)

	tests := []struct {
		name  string
		value interface{}
		want  int64
	}{
		{"nil", nil, 0},
		{"time", ts, ts.UnixMilli()},
		{"time pointer", &ts, ts.UnixMilli()},
		{"nil time pointer", (*time.Time)(nil), 0},
		{"rfc3339", "2021-03-04T05:06:07.008Z", ts.UnixMilli()},
		{"local datetime", "2021-03-04T05:06:07", time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC).UnixMilli()},
		{"date", "2021-03-04", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC).UnixMilli()},
		{"millis", int64(1234), 1234},
		{"json number", json.Number("99"), 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := timeMillis(tt.value)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := timeMillis("yesterday")
	require.ErrorIs(t, err, ErrInvalidValue)
	_, err = timeMillis(true)
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestInt32Value(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  int32
	}{
		{"int", 12, 12},
		{"wrapping int64", int64(math.MaxInt32) + 1, math.MinInt32},
		{"truncate positive", 2.9, 2},
		{"truncate negative", float32(-2.9), -2},
		{"saturate high", 1e20, math.MaxInt32},
		{"saturate low", -1e20, math.MinInt32},
		{"nan", math.NaN(), 0},
		{"json int", json.Number("-5"), -5},
		{"json float", json.Number("5.5"), 5},
		{"uint8", uint8(200), 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := int32Value(tt.value)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := int32Value("12")
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestFloat32Value(t *testing.T) {
	got, err := float32Value(3)
	require.NoError(t, err)
	require.Equal(t, float32(3), got)

	got, err = float32Value(json.Number("0.5"))
	require.NoError(t, err)
	require.Equal(t, float32(0.5), got)

	_, err = float32Value(false)
	require.ErrorIs(t, err, ErrInvalidValue)
}
