package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"places-sweep/types"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func sampleBusinesses() []types.Business {
	return []types.Business{
		{
			ID:               "b-2",
			Name:             strPtr("Zeta Café & Bar"),
			FormattedAddress: strPtr("1 <Main> St"),
			Latitude:         floatPtr(35.123456),
			Longitude:        floatPtr(-80.654321),
			Categories:       []string{"catering", "catering.cafe", "catering"},
			City:             strPtr("Charlotte"),
			DistanceMeters:   floatPtr(12.5),
			Raw: types.RawRecord{
				"type":       "Feature",
				"properties": map[string]any{"place_id": "b-2", "rank": map[string]any{"importance": 0.4}},
			},
		},
		{ID: "a-1", Categories: []string{}},
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	for _, name := range []string{"sweep.json", "sweep.json.gz", "sweep.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, WriteDocument(path, sampleBusinesses()))

			got, err := ReadDocument(path)
			require.NoError(t, err)
			assert.Equal(t, sampleBusinesses(), got)
		})
	}
}

func TestDocumentIsCompressedByExtension(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "sweep.json")
	gz := filepath.Join(dir, "sweep.json.gz")
	require.NoError(t, WriteDocument(plain, sampleBusinesses()))
	require.NoError(t, WriteDocument(gz, sampleBusinesses()))

	plainData, err := os.ReadFile(plain)
	require.NoError(t, err)
	gzData, err := os.ReadFile(gz)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(plainData, []byte("[")))
	assert.Contains(t, string(plainData), "Zeta Café & Bar", "non-ASCII and HTML characters are written as is")
	assert.Equal(t, []byte{0x1f, 0x8b}, gzData[:2])
}

func TestEncodeEmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeDocument(&buf, nil, CompressionNone))
	assert.JSONEq(t, "[]", buf.String())

	got, err := DecodeDocument(&buf, CompressionNone)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDecodeDocumentRejectsNonArray(t *testing.T) {
	_, err := DecodeDocument(bytes.NewBufferString(`{"id": "x"}`), CompressionNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON array")
}

func TestReadDocumentMissingFile(t *testing.T) {
	_, err := ReadDocument(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompressionFromPath(t *testing.T) {
	assert.Equal(t, CompressionNone, CompressionFromPath("out/sweep.json"))
	assert.Equal(t, CompressionGzip, CompressionFromPath("out/sweep.json.GZ"))
	assert.Equal(t, CompressionZstd, CompressionFromPath("sweep.zst"))
}

func TestUnsupportedCompression(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EncodeDocument(&buf, nil, Compression("brotli")))
	_, err := DecodeDocument(&buf, Compression("brotli"))
	assert.Error(t, err)
}
