package index

import (
	"io"
	"math"

	"github.com/hupe1980/segread/ordinal"
)

// NoMoreDocs is returned by PostingsEnum once it is exhausted.
const NoMoreDocs = math.MaxInt32

// Bits is a read-only bit set over doc ids. For live docs, true means the
// document is not deleted.
type Bits interface {
	Get(index int) bool
	Len() int
}

// PostingsEnum iterates the documents of one term in increasing doc order.
type PostingsEnum interface {
	// NextDoc advances to the next document and returns its id, or NoMoreDocs.
	NextDoc() (int, error)
	// Advance moves to the first document >= target and returns its id, or NoMoreDocs.
	Advance(target int) (int, error)
	// DocID returns the current document, -1 before the first NextDoc.
	DocID() int
	// Freq returns the term frequency in the current document.
	Freq() int
}

// SeekStatus is the outcome of TermsEnum.SeekCeil.
type SeekStatus int

const (
	// SeekEnd means no term is >= the target.
	SeekEnd SeekStatus = iota
	// SeekFound means the exact target was found.
	SeekFound
	// SeekNotFound means the enum is positioned on the next larger term.
	SeekNotFound
)

// TermsEnum iterates the terms of one field in unsigned byte order.
type TermsEnum interface {
	// Next advances to the next term. It returns nil when exhausted.
	Next() ([]byte, error)
	SeekCeil(term []byte) (SeekStatus, error)
	SeekExact(term []byte) (bool, error)
	// Term returns the current term. Callers must not modify it.
	Term() []byte
	DocFreq() int
	Postings(liveDocs Bits) (PostingsEnum, error)
}

// Terms is the term space of one field.
type Terms interface {
	Iterator() (TermsEnum, error)
	// Size returns the number of unique terms, or -1 when unknown.
	Size() int64
	DocCount() int
	SumDocFreq() int64
}

// FieldsEnum iterates field names in ascending order.
type FieldsEnum interface {
	// Next advances to the next field. ok is false once exhausted.
	Next() (field string, ok bool)
	// Terms returns the terms of the current field.
	Terms() (Terms, error)
}

// Fields is the set of indexed fields of a reader.
type Fields interface {
	Iterator() FieldsEnum
	// Terms returns nil, nil when the field does not exist.
	Terms(field string) (Terms, error)
	// Size returns the number of fields, or -1 when unknown.
	Size() int
}

// Reader is the common surface of leaf and composite readers.
type Reader interface {
	MaxDoc() int
	NumDocs() int
}

// LeafReader reads a single segment. Doc ids are segment-local.
type LeafReader interface {
	Reader
	// Fields returns nil when the segment has no postings.
	Fields() Fields
	// LiveDocs returns nil when the segment has no deletions.
	LiveDocs() Bits
	// SortedOrds returns the per-document ordinal index of field.
	// A field without values yields an index where every document has ordinal 0.
	SortedOrds(field string) (*ordinal.Index, error)
	io.Closer
}

// LeafContext places a LeafReader inside a composite reader.
type LeafContext struct {
	Reader LeafReader
	// Ord is the position of this leaf among its siblings.
	Ord int
	// DocBase is added to segment-local doc ids to form global ids.
	DocBase int
}

// ReaderSlice locates one sub-reader within the global doc id space.
type ReaderSlice struct {
	Start       int
	Length      int
	ReaderIndex int
}

// Leaves returns the leaf contexts of r. A LeafReader is its own single leaf.
func Leaves(r Reader) []LeafContext {
	switch v := r.(type) {
	case interface{ Leaves() []LeafContext }:
		return v.Leaves()
	case LeafReader:
		return []LeafContext{{Reader: v}}
	default:
		return nil
	}
}

// SubIndex returns the index of the sub-reader containing doc, given the
// starting doc of each sub-reader. Empty sub-readers share a start with
// their successor; the last match wins.
func SubIndex(doc int, docStarts []int) int {
	lo, hi := 0, len(docStarts)-1
	for hi >= lo {
		mid := int(uint(lo+hi) >> 1)
		v := docStarts[mid]
		switch {
		case doc < v:
			hi = mid - 1
		case doc > v:
			lo = mid + 1
		default:
			for mid+1 < len(docStarts) && docStarts[mid+1] == v {
				mid++
			}
			return mid
		}
	}
	return hi
}
