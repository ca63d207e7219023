package ordinal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/segread/internal/compress"
	"github.com/hupe1980/segread/internal/hash"
)

const (
	magic         = "ORDX"
	formatVersion = 1
	headerSize    = 16
	trailerSize   = hash.TrailerSize
)

var (
	// ErrCorrupt is returned when encoded ordinal data fails validation.
	ErrCorrupt = errors.New("ordinal: corrupt index data")
	// ErrVersion is returned for an unsupported format version.
	ErrVersion = errors.New("ordinal: unsupported format version")
)

// Compression selects how the term and ordinal blocks are stored.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZstd = compress.Zstd
)

// Encode writes idx to w.
//
// Layout:
//
//	magic[4] version[1] compression[1] width[1] bpv[1] numTerms[4] numDocs[4]
//	termFrame ordFrame crc32c[4]
//
// Both frames use the internal/compress framing.
func Encode(w io.Writer, idx *Index, c Compression) error {
	var termBlock []byte
	for _, t := range idx.Dict.terms {
		termBlock = binary.AppendUvarint(termBlock, uint64(len(t)))
		termBlock = append(termBlock, t...)
	}

	var (
		ordBlock []byte
		bpv      uint8
	)
	switch o := idx.Ords.(type) {
	case Uint8s:
		ordBlock = append(ordBlock, o...)
	case Uint16s:
		ordBlock = make([]byte, 2*len(o))
		for i, v := range o {
			binary.LittleEndian.PutUint16(ordBlock[2*i:], v)
		}
	case Int32s:
		ordBlock = make([]byte, 4*len(o))
		for i, v := range o {
			binary.LittleEndian.PutUint32(ordBlock[4*i:], uint32(v))
		}
	case *Packed:
		bpv = uint8(o.bpv)
		ordBlock = make([]byte, 8*len(o.data))
		for i, v := range o.data {
			binary.LittleEndian.PutUint64(ordBlock[8*i:], v)
		}
	default:
		packed := make([]int, idx.Ords.Len())
		for doc := range packed {
			packed[doc] = idx.Ords.Ord(doc)
		}
		return Encode(w, &Index{Dict: idx.Dict, Ords: NewPacked(packed)}, c)
	}

	termFrame, err := compress.Encode(termBlock, c)
	if err != nil {
		return err
	}
	ordFrame, err := compress.Encode(ordBlock, c)
	if err != nil {
		return err
	}

	buf := make([]byte, headerSize, headerSize+len(termFrame)+len(ordFrame)+trailerSize)
	copy(buf, magic)
	buf[4] = formatVersion
	buf[5] = byte(c)
	buf[6] = byte(idx.Ords.Width())
	buf[7] = bpv
	binary.LittleEndian.PutUint32(buf[8:], uint32(idx.Dict.Size()))
	binary.LittleEndian.PutUint32(buf[12:], uint32(idx.Ords.Len()))
	buf = append(buf, termFrame...)
	buf = append(buf, ordFrame...)
	buf = hash.Append(buf)

	_, err = w.Write(buf)
	return err
}

// ReadFrom decodes an index from the first size bytes of r.
func ReadFrom(r io.ReaderAt, size int64) (*Index, error) {
	if size < headerSize+trailerSize {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrCorrupt, size)
	}
	data := make([]byte, size)
	if _, err := r.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return Decode(data)
}

// Decode parses an index previously written by Encode.
func Decode(data []byte) (*Index, error) {
	if len(data) < headerSize+trailerSize {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrCorrupt, len(data))
	}
	if string(data[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if data[4] != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, data[4])
	}
	body, ok := hash.Verify(data)
	if !ok {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	c := compress.Type(data[5])
	width := Width(data[6])
	bpv := uint(data[7])
	numTerms := int(binary.LittleEndian.Uint32(data[8:]))
	numDocs := int(binary.LittleEndian.Uint32(data[12:]))

	rest := body[headerSize:]
	termLen, err := compress.FrameSize(rest)
	if err != nil || termLen > len(rest) {
		return nil, fmt.Errorf("%w: term frame", ErrCorrupt)
	}
	termBlock, err := compress.Decode(rest[:termLen], c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	rest = rest[termLen:]
	ordLen, err := compress.FrameSize(rest)
	if err != nil || ordLen != len(rest) {
		return nil, fmt.Errorf("%w: ord frame", ErrCorrupt)
	}
	ordBlock, err := compress.Decode(rest, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	terms := make([][]byte, 0, numTerms)
	for len(termBlock) > 0 {
		n, k := binary.Uvarint(termBlock)
		if k <= 0 || uint64(len(termBlock)-k) < n {
			return nil, fmt.Errorf("%w: term block", ErrCorrupt)
		}
		terms = append(terms, termBlock[k:k+int(n)])
		termBlock = termBlock[k+int(n):]
	}
	if len(terms) != numTerms {
		return nil, fmt.Errorf("%w: expected %d terms, found %d", ErrCorrupt, numTerms, len(terms))
	}
	dict, err := NewDictionary(terms)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	ords, err := decodeOrds(ordBlock, width, bpv, numDocs)
	if err != nil {
		return nil, err
	}
	for doc := 0; doc < numDocs; doc++ {
		if ord := ords.Ord(doc); ord < 0 || ord > numTerms {
			return nil, fmt.Errorf("%w: doc %d has ordinal %d outside [0, %d]", ErrCorrupt, doc, ord, numTerms)
		}
	}
	return &Index{Dict: dict, Ords: ords}, nil
}

func decodeOrds(block []byte, width Width, bpv uint, numDocs int) (Reader, error) {
	switch width {
	case Width8:
		if len(block) != numDocs {
			return nil, fmt.Errorf("%w: uint8 table size", ErrCorrupt)
		}
		return Uint8s(block), nil
	case Width16:
		if len(block) != 2*numDocs {
			return nil, fmt.Errorf("%w: uint16 table size", ErrCorrupt)
		}
		o := make(Uint16s, numDocs)
		for i := range o {
			o[i] = binary.LittleEndian.Uint16(block[2*i:])
		}
		return o, nil
	case Width32:
		if len(block) != 4*numDocs {
			return nil, fmt.Errorf("%w: int32 table size", ErrCorrupt)
		}
		o := make(Int32s, numDocs)
		for i := range o {
			o[i] = int32(binary.LittleEndian.Uint32(block[4*i:]))
		}
		return o, nil
	case WidthPacked:
		if bpv == 0 || bpv > 32 {
			return nil, fmt.Errorf("%w: bits per value %d", ErrCorrupt, bpv)
		}
		p := newPacked(bpv, numDocs)
		if len(block) != 8*len(p.data) {
			return nil, fmt.Errorf("%w: packed table size", ErrCorrupt)
		}
		for i := range p.data {
			p.data[i] = binary.LittleEndian.Uint64(block[8*i:])
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: width %d", ErrCorrupt, width)
	}
}
