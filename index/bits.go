package index

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// MatchAllBits reports every document in [0, n) as set.
type MatchAllBits int

func (b MatchAllBits) Get(int) bool { return true }
func (b MatchAllBits) Len() int     { return int(b) }

// LiveDocs tracks deletions of one segment in a roaring bitmap.
// Get reports whether a document is still live.
type LiveDocs struct {
	deleted *roaring.Bitmap
	maxDoc  int
}

// NewLiveDocs creates live docs for maxDoc documents with nothing deleted.
func NewLiveDocs(maxDoc int) *LiveDocs {
	return &LiveDocs{deleted: roaring.New(), maxDoc: maxDoc}
}

// Delete marks doc deleted. It reports whether doc was live before.
func (l *LiveDocs) Delete(doc int) bool {
	return l.deleted.CheckedAdd(uint32(doc))
}

func (l *LiveDocs) Get(doc int) bool { return !l.deleted.Contains(uint32(doc)) }
func (l *LiveDocs) Len() int         { return l.maxDoc }

// NumDeleted returns the number of deleted documents.
func (l *LiveDocs) NumDeleted() int {
	return int(l.deleted.GetCardinality())
}

// MultiBits concatenates the live docs of several segments into one global view.
// A nil sub means every document of that segment has defaultValue.
type MultiBits struct {
	subs         []Bits
	starts       []int
	defaultValue bool
}

// NewMultiBits creates a MultiBits. starts has len(subs)+1 entries, the last
// being the total document count.
func NewMultiBits(subs []Bits, starts []int, defaultValue bool) *MultiBits {
	return &MultiBits{subs: subs, starts: starts, defaultValue: defaultValue}
}

func (m *MultiBits) Get(doc int) bool {
	reader := SubIndex(doc, m.starts[:len(m.subs)])
	sub := m.subs[reader]
	if sub == nil {
		return m.defaultValue
	}
	return sub.Get(doc - m.starts[reader])
}

func (m *MultiBits) Len() int {
	return m.starts[len(m.starts)-1]
}

// MatchingSub returns the sub-bits that cover exactly slice, if any.
// A nil result with ok=true means every document in the slice has the default value.
func (m *MultiBits) MatchingSub(slice ReaderSlice) (Bits, bool) {
	i := slice.ReaderIndex
	if i < 0 || i >= len(m.subs) {
		return nil, false
	}
	if m.starts[i] != slice.Start || m.starts[i+1]-m.starts[i] != slice.Length {
		return nil, false
	}
	if m.subs[i] == nil && !m.defaultValue {
		return nil, false
	}
	return m.subs[i], true
}

// bitsSlice exposes a window of a parent Bits with local indexing.
type bitsSlice struct {
	parent Bits
	start  int
	length int
}

func (b *bitsSlice) Get(doc int) bool { return b.parent.Get(doc + b.start) }
func (b *bitsSlice) Len() int         { return b.length }
