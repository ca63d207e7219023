package ordinal

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrUnsorted is returned when dictionary terms are not strictly ascending.
var ErrUnsorted = errors.New("ordinal: terms must be strictly ascending")

// Dictionary is the sorted term table of one segment.
// Term i (0-based) has ordinal i+1; ordinal 0 is reserved for "no value".
//
// A Dictionary is immutable once built and safe for concurrent reads.
type Dictionary struct {
	terms [][]byte
}

// NewDictionary creates a dictionary over terms, which must be strictly
// ascending by unsigned byte order. The slice is retained, not copied.
func NewDictionary(terms [][]byte) (*Dictionary, error) {
	for i := 1; i < len(terms); i++ {
		if bytes.Compare(terms[i-1], terms[i]) >= 0 {
			return nil, fmt.Errorf("%w: term %d (%q) >= term %d (%q)", ErrUnsorted, i-1, terms[i-1], i, terms[i])
		}
	}
	for i, t := range terms {
		if t == nil {
			terms[i] = []byte{}
		}
	}
	return &Dictionary{terms: terms}, nil
}

// Lookup returns the term for ord, or nil for ordinal 0 or an out-of-range ordinal.
func (d *Dictionary) Lookup(ord int) []byte {
	if ord <= 0 || ord > len(d.terms) {
		return nil
	}
	return d.terms[ord-1]
}

// Size returns the number of real terms.
func (d *Dictionary) Size() int {
	return len(d.terms)
}

// NumOrd returns Size()+1, counting the reserved ordinal 0.
func (d *Dictionary) NumOrd() int {
	return len(d.terms) + 1
}

// BinarySearch looks up key among ordinals [1, NumOrd-1].
// It returns the ordinal on a hit and -(insertionPoint+1) on a miss,
// where insertionPoint is the ordinal key would occupy. A nil key returns 0.
func (d *Dictionary) BinarySearch(key []byte) int {
	if key == nil {
		return 0
	}
	lo, hi := 1, len(d.terms)
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch c := bytes.Compare(d.terms[mid-1], key); {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid - 1
		default:
			return mid
		}
	}
	return -(lo + 1)
}

// Terms returns the backing term slice in ordinal order (ordinal i+1 at index i).
// Callers must not modify it.
func (d *Dictionary) Terms() [][]byte {
	return d.terms
}
