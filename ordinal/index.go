package ordinal

import (
	"bytes"
	"math"
	"slices"
)

// Index pairs a segment's term dictionary with its per-document ordinals.
type Index struct {
	Dict *Dictionary
	Ords Reader
}

// Empty returns an index with no terms where every one of maxDoc documents
// has ordinal 0.
func Empty(maxDoc int) *Index {
	return &Index{Dict: &Dictionary{}, Ords: make(Uint8s, maxDoc)}
}

// Ord returns the ordinal of doc.
func (x *Index) Ord(doc int) int {
	return x.Ords.Ord(doc)
}

// Term returns the term of doc, or nil when the document has no value.
func (x *Index) Term(doc int) []byte {
	return x.Dict.Lookup(x.Ords.Ord(doc))
}

// MaxDoc returns the number of documents covered.
func (x *Index) MaxDoc() int {
	return x.Ords.Len()
}

// Build creates an index from per-document values, where values[doc] == nil
// means the document has no value. The narrowest flat table that can hold
// every ordinal is chosen.
func Build(values [][]byte) *Index {
	dict, ords := assign(values)
	numOrd := dict.NumOrd()

	switch {
	case numOrd-1 <= math.MaxUint8:
		table := make(Uint8s, len(ords))
		for i, o := range ords {
			table[i] = uint8(o)
		}
		return &Index{Dict: dict, Ords: table}
	case numOrd-1 <= math.MaxUint16:
		table := make(Uint16s, len(ords))
		for i, o := range ords {
			table[i] = uint16(o)
		}
		return &Index{Dict: dict, Ords: table}
	default:
		table := make(Int32s, len(ords))
		for i, o := range ords {
			table[i] = int32(o)
		}
		return &Index{Dict: dict, Ords: table}
	}
}

// BuildPacked is like Build but always uses the bit-packed representation.
func BuildPacked(values [][]byte) *Index {
	dict, ords := assign(values)
	return &Index{Dict: dict, Ords: NewPacked(ords)}
}

func assign(values [][]byte) (*Dictionary, []int) {
	uniq := make([][]byte, 0, len(values))
	for _, v := range values {
		if v != nil {
			uniq = append(uniq, v)
		}
	}
	slices.SortFunc(uniq, bytes.Compare)
	uniq = slices.CompactFunc(uniq, bytes.Equal)

	terms := make([][]byte, len(uniq))
	for i, t := range uniq {
		terms[i] = bytes.Clone(t)
		if terms[i] == nil {
			terms[i] = []byte{}
		}
	}
	dict := &Dictionary{terms: terms}

	ords := make([]int, len(values))
	for doc, v := range values {
		if v != nil {
			ords[doc] = dict.BinarySearch(v)
		}
	}
	return dict, ords
}
