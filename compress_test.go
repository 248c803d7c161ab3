package pointpack

import (
	"bytes"
	stdzlib "compress/zlib"
	"io"
	"math/rand"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"
)

func randomFeatures(r *rand.Rand, n int) []*geojson.Feature {
	features := make([]*geojson.Feature, n)
	for i := range features {
		features[i] = pointFeature(
			2.0+r.Float64(),
			41.0+r.Float64(),
			geojson.Properties{"value": r.Intn(1000)},
		)
	}
	return features
}

func TestCompress_Identity(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	schema := &Schema{Attributes: []Attribute{{Name: "value", Kind: KindNumeric, Integer: true}}}
	sel := Select(schema, []string{"value"}, "")
	raw := encodePatched(t, schema, randomFeatures(r, 1000), sel, nil, WGS84SRID)

	compressed, err := Compress(raw)
	require.NoError(t, err)
	require.Less(t, len(compressed), len(raw))

	// zlib framing at best compression: CMF 0x78, FLG 0xDA.
	require.Equal(t, byte(0x78), compressed[0])
	require.Equal(t, byte(0xDA), compressed[1])

	out, err := Decompress(compressed)
	require.NoError(t, err)
	require.True(t, bytes.Equal(raw, out), "decompressed bytes differ from the uncompressed package")
}

func TestCompress_ReadableByStandardZlib(t *testing.T) {
	data := bytes.Repeat([]byte("pointpack"), 500)

	compressed, err := Compress(data)
	require.NoError(t, err)

	zr, err := stdzlib.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.NoError(t, zr.Close())
	require.Equal(t, data, out)
}

func TestCompress_Empty(t *testing.T) {
	compressed, err := Compress(nil)
	require.NoError(t, err)
	require.NotEmpty(t, compressed)

	out, err := Decompress(compressed)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestCompress_PoolReuse(t *testing.T) {
	a := bytes.Repeat([]byte{1, 2, 3}, 1000)
	b := bytes.Repeat([]byte{9}, 10)

	for i := 0; i < 3; i++ {
		ca, err := Compress(a)
		require.NoError(t, err)
		cb, err := Compress(b)
		require.NoError(t, err)

		outA, err := Decompress(ca)
		require.NoError(t, err)
		require.Equal(t, a, outA)
		outB, err := Decompress(cb)
		require.NoError(t, err)
		require.Equal(t, b, outB)
	}
}

func TestDecompress_Invalid(t *testing.T) {
	_, err := Decompress([]byte("not zlib"))
	require.ErrorIs(t, err, ErrInvalidData)

	compressed, err := Compress(bytes.Repeat([]byte("x"), 100))
	require.NoError(t, err)
	_, err = Decompress(compressed[:len(compressed)-3])
	require.ErrorIs(t, err, ErrInvalidData)
}
