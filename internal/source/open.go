package source

import (
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Compression identifies the codec applied to a CSV stream.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionXZ
	CompressionBzip2
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionXZ:
		return "xz"
	case CompressionBzip2:
		return "bzip2"
	default:
		return "none"
	}
}

// DetectCompression picks the codec from the file extension of location.
// Query strings and fragments of URLs are ignored.
func DetectCompression(location string) Compression {
	p := location
	if isRemote(location) {
		if u, err := url.Parse(location); err == nil {
			p = u.Path
		}
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".xz":
		return CompressionXZ
	case ".bz2":
		return CompressionBzip2
	default:
		return CompressionNone
	}
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// stream is an opened, decompressed byte stream plus everything that has to
// be closed with it, innermost first.
type stream struct {
	io.Reader
	closers []func() error
}

func (s *stream) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// openStream opens location (local path or http(s) URL) and layers the
// decompressor implied by its extension on top.
func openStream(ctx context.Context, location string, client *http.Client) (*stream, error) {
	raw, err := openRaw(ctx, location, client)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %w", pgload.ErrSourceRead, location, err)
	}

	s := &stream{Reader: raw, closers: []func() error{raw.Close}}

	switch DetectCompression(location) {
	case CompressionGzip:
		gz, err := gzip.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("%w: failed to create gzip reader: %w", pgload.ErrSourceRead, err)
		}
		s.Reader = gz
		s.closers = append([]func() error{gz.Close}, s.closers...)
	case CompressionZstd:
		dec, err := zstd.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("%w: failed to create zstd reader: %w", pgload.ErrSourceRead, err)
		}
		s.Reader = dec
		s.closers = append([]func() error{func() error { dec.Close(); return nil }}, s.closers...)
	case CompressionXZ:
		xr, err := xz.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("%w: failed to create xz reader: %w", pgload.ErrSourceRead, err)
		}
		s.Reader = xr
	case CompressionBzip2:
		s.Reader = bzip2.NewReader(raw)
	}

	return s, nil
}

func openRaw(ctx context.Context, location string, client *http.Client) (io.ReadCloser, error) {
	if !isRemote(location) {
		return os.Open(location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}
	return resp.Body, nil
}
