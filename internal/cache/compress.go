package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/pierrec/lz4/v4"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

// CompressionMinSize is the smallest payload worth compressing
const CompressionMinSize = 1024

// Compression markers stored in the entry header
const (
	codecNone   byte = '0'
	codecSnappy byte = 's'
	codecLZ4    byte = 'l'
)

// ErrDecompression is returned when a stored payload cannot be decompressed.
// Use errors.Is(err, ErrDecompression) to check for it.
var ErrDecompression = errors.New("decompression failed")

// compress returns the encoded body and the marker describing it.
// Payloads below CompressionMinSize and unknown algorithms are stored as-is.
func compress(content []byte, algorithm string) ([]byte, byte, error) {
	if len(content) < CompressionMinSize {
		return content, codecNone, nil
	}

	switch algorithm {
	case configtypes.CompressionSnappy:
		return snappy.Encode(nil, content), codecSnappy, nil

	case configtypes.CompressionLZ4:
		// stream format embeds the size, so decode needs no extra header
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(content); err != nil {
			w.Close()
			return nil, 0, fmt.Errorf("lz4 compression failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, 0, fmt.Errorf("lz4 compression close failed: %w", err)
		}
		return buf.Bytes(), codecLZ4, nil

	default:
		return content, codecNone, nil
	}
}

func decompress(body []byte, codec byte) ([]byte, error) {
	switch codec {
	case codecNone:
		return body, nil

	case codecSnappy:
		decoded, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("%w: snappy: %v", ErrDecompression, err)
		}
		return decoded, nil

	case codecLZ4:
		decoded, err := io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrDecompression, err)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: unknown codec %q", ErrDecompression, codec)
	}
}
