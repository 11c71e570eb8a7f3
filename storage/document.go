/*
# Module: storage/document.go
JSON document form of a sweep: an array of businesses in first-seen order,
optionally gzip or zstd compressed.

## Linked Modules
- [types/business](../types/business.go) - Business data structure

## Tags
storage, json, compression, persistence

## Exports
Compression, CompressionFromPath, EncodeDocument, DecodeDocument, WriteDocument, ReadDocument

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "storage/document.go" ;
    code:description "JSON document form of a sweep, optionally gzip or zstd compressed" ;
    code:linksTo [
        code:name "types/business" ;
        code:path "../types/business.go" ;
        code:relationship "Business data structure"
    ] ;
    code:exports :Compression, :CompressionFromPath, :EncodeDocument, :DecodeDocument, :WriteDocument, :ReadDocument ;
    code:tags "storage", "json", "compression", "persistence" .
<!-- End LinkedDoc RDF -->
*/
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"places-sweep/types"
)

// Compression selects how a document is compressed on disk
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// CompressionFromPath picks compression from the file extension (.gz, .zst)
func CompressionFromPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// EncodeDocument writes businesses as an indented JSON array
func EncodeDocument(w io.Writer, businesses []types.Business, compression Compression) error {
	if businesses == nil {
		businesses = []types.Business{}
	}

	var (
		out    io.Writer = w
		closer io.Closer
	)
	switch compression {
	case CompressionGzip:
		gz := gzip.NewWriter(w)
		out, closer = gz, gz
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		out, closer = enc, enc
	case CompressionNone, "":
	default:
		return fmt.Errorf("unsupported compression %q", compression)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(businesses); err != nil {
		if closer != nil {
			closer.Close()
		}
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to finish %s stream: %w", compression, err)
		}
	}
	return nil
}

// DecodeDocument reads a JSON array of businesses
func DecodeDocument(r io.Reader, compression Compression) ([]types.Business, error) {
	in := r
	switch compression {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		in = gz
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer dec.Close()
		in = dec
	case CompressionNone, "":
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}

	var businesses []types.Business
	if err := json.NewDecoder(in).Decode(&businesses); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "" {
			return nil, fmt.Errorf("document must be a JSON array of businesses: %w", err)
		}
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if businesses == nil {
		businesses = []types.Business{}
	}
	return businesses, nil
}

// WriteDocument writes businesses to path, compressing by extension
func WriteDocument(path string, businesses []types.Business) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	defer file.Close()

	if err := EncodeDocument(file, businesses, CompressionFromPath(path)); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close document: %w", err)
	}

	log.Printf("💾 Saved %d businesses to %s", len(businesses), path)
	return nil
}

// ReadDocument reads businesses from path, decompressing by extension
func ReadDocument(path string) ([]types.Business, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("document %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer file.Close()

	return DecodeDocument(file, CompressionFromPath(path))
}
