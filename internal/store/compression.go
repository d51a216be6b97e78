package store

// compression.go picks a stream codec from the snapshot file extension.

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies how a snapshot file is encoded on disk.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGZ
	CompressionZSTD
	CompressionXZ
)

// String returns the file extension for the compression, without the dot.
func (c Compression) String() string {
	switch c {
	case CompressionGZ:
		return "gz"
	case CompressionZSTD:
		return "zst"
	case CompressionXZ:
		return "xz"
	default:
		return ""
	}
}

// CompressionFromPath detects the compression of a snapshot path.
func CompressionFromPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGZ
	case ".zst":
		return CompressionZSTD
	case ".xz":
		return CompressionXZ
	default:
		return CompressionNone
	}
}

// NewReader wraps r with a decompressor. The returned cleanup releases
// decoder state and must be called once reading is done.
func (c Compression) NewReader(r io.Reader) (io.Reader, func() error, error) {
	switch c {
	case CompressionGZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gz, gz.Close, nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, func() error { dec.Close(); return nil }, nil
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, func() error { return nil }, nil
	default:
		return r, func() error { return nil }, nil
	}
}

// NewWriter wraps w with a compressor. Closing the returned writer flushes
// the compressed stream but leaves w open.
func (c Compression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionGZ:
		return gzip.NewWriter(w), nil
	case CompressionZSTD:
		return zstd.NewWriter(w)
	case CompressionXZ:
		return xz.NewWriter(w)
	default:
		return nopWriteCloser{w}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
