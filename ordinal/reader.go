package ordinal

import (
	"fmt"
	"math/bits"
)

// Width names the physical representation of a doc-to-ordinal table.
type Width uint8

const (
	// WidthPacked is the generic bit-packed representation.
	WidthPacked Width = iota
	// Width8 stores one uint8 per document.
	Width8
	// Width16 stores one uint16 per document.
	Width16
	// Width32 stores one int32 per document.
	Width32
)

func (w Width) String() string {
	switch w {
	case WidthPacked:
		return "packed"
	case Width8:
		return "uint8"
	case Width16:
		return "uint16"
	case Width32:
		return "int32"
	default:
		return fmt.Sprintf("ordinal.Width(%d)", uint8(w))
	}
}

// Reader maps a segment-local doc id to its ordinal (0 = no value).
type Reader interface {
	Ord(doc int) int
	Len() int
	Width() Width
}

// Uint8s is a flat table for dictionaries with at most 255 terms.
type Uint8s []uint8

func (o Uint8s) Ord(doc int) int { return int(o[doc]) }
func (o Uint8s) Len() int        { return len(o) }
func (o Uint8s) Width() Width    { return Width8 }

// Uint16s is a flat table for dictionaries with at most 65535 terms.
type Uint16s []uint16

func (o Uint16s) Ord(doc int) int { return int(o[doc]) }
func (o Uint16s) Len() int        { return len(o) }
func (o Uint16s) Width() Width    { return Width16 }

// Int32s is a flat table for any dictionary size.
type Int32s []int32

func (o Int32s) Ord(doc int) int { return int(o[doc]) }
func (o Int32s) Len() int        { return len(o) }
func (o Int32s) Width() Width    { return Width32 }

// Packed stores ordinals with a fixed number of bits per value.
type Packed struct {
	bpv  uint
	mask uint64
	n    int
	data []uint64
}

// NewPacked packs ords using the minimum number of bits for the largest value.
func NewPacked(ords []int) *Packed {
	maxOrd := 0
	for _, o := range ords {
		if o > maxOrd {
			maxOrd = o
		}
	}
	bpv := uint(bits.Len(uint(maxOrd)))
	if bpv == 0 {
		bpv = 1
	}
	p := newPacked(bpv, len(ords))
	for doc, o := range ords {
		p.set(doc, uint64(o))
	}
	return p
}

func newPacked(bpv uint, n int) *Packed {
	words := (uint64(n)*uint64(bpv) + 63) / 64
	return &Packed{
		bpv:  bpv,
		mask: (uint64(1) << bpv) - 1,
		n:    n,
		data: make([]uint64, words),
	}
}

func (p *Packed) set(doc int, v uint64) {
	pos := uint64(doc) * uint64(p.bpv)
	word, shift := pos/64, uint(pos%64)
	p.data[word] &^= p.mask << shift
	p.data[word] |= (v & p.mask) << shift
	if shift+p.bpv > 64 {
		spill := 64 - shift
		p.data[word+1] &^= p.mask >> spill
		p.data[word+1] |= (v & p.mask) >> spill
	}
}

// Ord returns the ordinal stored for doc.
func (p *Packed) Ord(doc int) int {
	pos := uint64(doc) * uint64(p.bpv)
	word, shift := pos/64, uint(pos%64)
	v := p.data[word] >> shift
	if shift+p.bpv > 64 {
		v |= p.data[word+1] << (64 - shift)
	}
	return int(v & p.mask)
}

func (p *Packed) Len() int     { return p.n }
func (p *Packed) Width() Width { return WidthPacked }

// BitsPerValue returns the number of bits used per document.
func (p *Packed) BitsPerValue() int { return int(p.bpv) }
