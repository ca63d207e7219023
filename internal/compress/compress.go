// Package compress implements framed block compression for on-disk ordinal data.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used for a block.
type Type uint8

const (
	// None stores blocks raw.
	None Type = 0
	// LZ4 uses LZ4 block compression (fast, moderate ratio).
	LZ4 Type = 1
	// Zstd uses Zstandard (slower, better ratio).
	Zstd Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compress.Type(%d)", uint8(t))
	}
}

// HeaderSize is the size of the frame header.
// Format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// A CompressedSize of 0 marks a raw payload.
const HeaderSize = 8

var (
	// ErrCorrupt is returned when a frame cannot be decoded.
	ErrCorrupt = errors.New("compress: corrupt block")
	// ErrUnknownType is returned for an unsupported compression type.
	ErrUnknownType = errors.New("compress: unknown compression type")
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode frames data, compressing it with t when that shrinks it by at least 10%.
func Encode(data []byte, t Type) ([]byte, error) {
	var packed []byte
	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case Zstd:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}

	out := make([]byte, HeaderSize, HeaderSize+len(data))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		return append(out, data...), nil
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	return append(out, packed...), nil
}

// Decode reverses Encode. t must match the type the frame was written with.
func Decode(frame []byte, t Type) ([]byte, error) {
	if len(frame) < HeaderSize {
		return nil, fmt.Errorf("%w: frame shorter than header", ErrCorrupt)
	}
	rawSize := binary.LittleEndian.Uint32(frame[0:])
	packedSize := binary.LittleEndian.Uint32(frame[4:])
	body := frame[HeaderSize:]

	if packedSize == 0 {
		if uint64(len(body)) < uint64(rawSize) {
			return nil, fmt.Errorf("%w: raw payload truncated", ErrCorrupt)
		}
		return body[:rawSize], nil
	}
	if uint64(len(body)) < uint64(packedSize) {
		return nil, fmt.Errorf("%w: compressed payload truncated", ErrCorrupt)
	}
	body = body[:packedSize]

	switch t {
	case LZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if n != int(rawSize) {
			return nil, fmt.Errorf("%w: lz4 size mismatch", ErrCorrupt)
		}
		return out, nil
	case Zstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if len(out) != int(rawSize) {
			return nil, fmt.Errorf("%w: zstd size mismatch", ErrCorrupt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
}

// FrameSize returns the total length of the frame starting at frame[0],
// or an error if the header is incomplete.
func FrameSize(frame []byte) (int, error) {
	if len(frame) < HeaderSize {
		return 0, fmt.Errorf("%w: frame shorter than header", ErrCorrupt)
	}
	rawSize := binary.LittleEndian.Uint32(frame[0:])
	packedSize := binary.LittleEndian.Uint32(frame[4:])
	if packedSize == 0 {
		return HeaderSize + int(rawSize), nil
	}
	return HeaderSize + int(packedSize), nil
}
