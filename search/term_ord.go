package search

import (
	"bytes"
	"cmp"
	"math"

	"github.com/hupe1980/segread/index"
	"github.com/hupe1980/segread/ordinal"
)

// NullOrd is the slot ordinal of a document without a value. It sorts after
// every real ordinal.
const NullOrd = math.MaxInt32

// TermOrdValComparator sorts by the term of a field, comparing segment
// ordinals where possible and term bytes across segments. Documents
// without a value sort last.
//
// Every slot remembers the generation (segment) its ordinal belongs to.
// Ordinals of equal generations are directly comparable; otherwise the
// copied term bytes decide.
type TermOrdValComparator struct {
	field   string
	missing []byte

	ords      []int
	values    [][]byte
	readerGen []int

	currentGen int
	idx        *ordinal.Index
	seg        segmentComparator

	bottomSlot       int
	bottomOrd        int
	bottomValue      []byte
	bottomSameReader bool
}

// NewTermOrdValComparator creates a comparator over field with numHits
// slots. missing, when non-nil, is reported by Value as a MissingTerm for
// documents without a value; those documents still sort last.
func NewTermOrdValComparator(numHits int, field string, missing []byte) *TermOrdValComparator {
	return &TermOrdValComparator{
		field:      field,
		missing:    missing,
		ords:       make([]int, numHits),
		values:     make([][]byte, numHits),
		readerGen:  make([]int, numHits),
		bottomSlot: -1,
	}
}

// segmentComparator reads the ordinals of one segment.
type segmentComparator interface {
	compareBottom(doc int) int
	copy(slot, doc int)
	compareDocToValue(doc int, value any) int
	width() ordinal.Width
}

// flatComparator reads a flat ordinal table without interface dispatch per
// document.
type flatComparator[T uint8 | uint16 | int32] struct {
	parent *TermOrdValComparator
	ords   []T
	w      ordinal.Width
}

func (s *flatComparator[T]) compareBottom(doc int) int {
	return s.parent.compareBottomOrd(int(s.ords[doc]))
}

func (s *flatComparator[T]) copy(slot, doc int) {
	s.parent.copyOrd(slot, int(s.ords[doc]))
}

func (s *flatComparator[T]) compareDocToValue(doc int, value any) int {
	return s.parent.compareOrdToValue(int(s.ords[doc]), value)
}

func (s *flatComparator[T]) width() ordinal.Width { return s.w }

// anyComparator handles every other ordinal representation.
type anyComparator struct {
	parent *TermOrdValComparator
	ords   ordinal.Reader
}

func (s *anyComparator) compareBottom(doc int) int {
	return s.parent.compareBottomOrd(s.ords.Ord(doc))
}

func (s *anyComparator) copy(slot, doc int) {
	s.parent.copyOrd(slot, s.ords.Ord(doc))
}

func (s *anyComparator) compareDocToValue(doc int, value any) int {
	return s.parent.compareOrdToValue(s.ords.Ord(doc), value)
}

func (s *anyComparator) width() ordinal.Width { return ordinal.WidthPacked }

func newSegmentComparator(parent *TermOrdValComparator, ords ordinal.Reader) segmentComparator {
	switch o := ords.(type) {
	case ordinal.Uint8s:
		return &flatComparator[uint8]{parent: parent, ords: o, w: ordinal.Width8}
	case ordinal.Uint16s:
		return &flatComparator[uint16]{parent: parent, ords: o, w: ordinal.Width16}
	case ordinal.Int32s:
		return &flatComparator[int32]{parent: parent, ords: o, w: ordinal.Width32}
	default:
		return &anyComparator{parent: parent, ords: ords}
	}
}

// SegmentWidth reports the ordinal table the current segment is read
// through. The width-agnostic path reports ordinal.WidthPacked.
func (c *TermOrdValComparator) SegmentWidth() ordinal.Width {
	if c.seg == nil {
		return ordinal.WidthPacked
	}
	return c.seg.width()
}

func (c *TermOrdValComparator) SetNextReader(ctx index.LeafContext) error {
	idx, err := ctx.Reader.SortedOrds(c.field)
	if err != nil {
		return err
	}
	if idx == nil {
		idx = ordinal.Empty(ctx.Reader.MaxDoc())
	}
	c.currentGen++
	c.idx = idx
	c.seg = newSegmentComparator(c, idx.Ords)
	if c.bottomSlot != -1 {
		c.SetBottom(c.bottomSlot)
	}
	return nil
}

func (c *TermOrdValComparator) Compare(slot1, slot2 int) int {
	if c.readerGen[slot1] == c.readerGen[slot2] {
		return cmp.Compare(c.ords[slot1], c.ords[slot2])
	}
	return compareNilLast(c.values[slot1], c.values[slot2])
}

func (c *TermOrdValComparator) SetBottom(slot int) {
	c.bottomSlot = slot
	c.bottomValue = c.values[slot]

	if c.readerGen[slot] == c.currentGen {
		c.bottomOrd = c.ords[slot]
		c.bottomSameReader = true
		return
	}
	if c.bottomValue == nil {
		c.ords[slot] = NullOrd
		c.bottomOrd = NullOrd
		c.bottomSameReader = true
		c.readerGen[slot] = c.currentGen
		return
	}

	i := c.idx.Dict.BinarySearch(c.bottomValue)
	if i < 0 {
		// The bottom falls between ordinals -i-2 and -i-1 of this segment.
		c.bottomOrd = -i - 2
		c.bottomSameReader = false
		return
	}
	c.bottomOrd = i
	c.bottomSameReader = true
	c.readerGen[slot] = c.currentGen
	c.ords[slot] = i
}

func (c *TermOrdValComparator) CompareBottom(doc int) int {
	return c.seg.compareBottom(doc)
}

func (c *TermOrdValComparator) compareBottomOrd(ord int) int {
	if ord == 0 {
		ord = NullOrd
	}
	r := cmp.Compare(c.bottomOrd, ord)
	if c.bottomSameReader || r != 0 {
		return r
	}
	if ord == NullOrd {
		return 0
	}
	return bytes.Compare(c.bottomValue, c.idx.Dict.Lookup(ord))
}

func (c *TermOrdValComparator) Copy(slot, doc int) {
	c.seg.copy(slot, doc)
}

func (c *TermOrdValComparator) copyOrd(slot, ord int) {
	if ord == 0 {
		c.ords[slot] = NullOrd
		c.values[slot] = nil
	} else {
		term := c.idx.Dict.Lookup(ord)
		buf := c.values[slot]
		if buf == nil {
			buf = make([]byte, 0, len(term))
		}
		c.ords[slot] = ord
		c.values[slot] = append(buf[:0], term...)
	}
	c.readerGen[slot] = c.currentGen
}

// Value returns the slot's term bytes, a MissingTerm for an empty slot when
// a missing value is set, or nil. The slice is reused by later copies.
func (c *TermOrdValComparator) Value(slot int) any {
	if v := c.values[slot]; v != nil {
		return v
	}
	if c.missing != nil {
		return MissingTerm(c.missing)
	}
	return nil
}

func (c *TermOrdValComparator) CompareValues(a, b any) int {
	return compareTerms(a, b)
}

func (c *TermOrdValComparator) CompareDocToValue(doc int, value any) int {
	return c.seg.compareDocToValue(doc, value)
}

func (c *TermOrdValComparator) compareOrdToValue(ord int, value any) int {
	var term any
	if ord != 0 {
		term = c.idx.Dict.Lookup(ord)
	}
	return compareTerms(term, value)
}

func compareNilLast(a, b []byte) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return bytes.Compare(a, b)
}
