package index

import (
	"bytes"
	"slices"
	"sort"
	"sync"

	"github.com/hupe1980/segread/ordinal"
)

// Document maps field names to the terms a document holds in that field.
// Repeated terms count towards the term frequency.
type Document map[string][]string

// MemoryReader is an in-memory segment built from documents. It is safe for
// concurrent reads. Delete must not race with postings iteration.
type MemoryReader struct {
	maxDoc int
	fields *memoryFields
	// first value per document and field, the sort value of the document
	sortValues map[string][][]byte
	packed     bool

	ordsMu sync.Mutex
	ords   map[string]*ordinal.Index

	liveMu sync.RWMutex
	live   *LiveDocs
}

// MemoryOption configures a MemoryReader.
type MemoryOption func(*MemoryReader)

// WithPackedOrds stores sorted ordinals bit-packed instead of in the
// narrowest flat table.
func WithPackedOrds() MemoryOption {
	return func(r *MemoryReader) {
		r.packed = true
	}
}

// NewMemoryReader indexes docs. Document i gets segment-local id i.
func NewMemoryReader(docs []Document, opts ...MemoryOption) *MemoryReader {
	r := &MemoryReader{
		maxDoc:     len(docs),
		sortValues: make(map[string][][]byte),
		ords:       make(map[string]*ordinal.Index),
	}
	for _, opt := range opts {
		opt(r)
	}

	inverted := make(map[string]map[string][]posting)
	for doc, d := range docs {
		for field, terms := range d {
			if len(terms) == 0 {
				continue
			}
			vals, ok := r.sortValues[field]
			if !ok {
				vals = make([][]byte, len(docs))
				r.sortValues[field] = vals
			}
			vals[doc] = []byte(terms[0])

			byTerm, ok := inverted[field]
			if !ok {
				byTerm = make(map[string][]posting)
				inverted[field] = byTerm
			}
			for _, term := range terms {
				ps := byTerm[term]
				if n := len(ps); n > 0 && ps[n-1].doc == doc {
					ps[n-1].freq++
				} else {
					ps = append(ps, posting{doc: doc, freq: 1})
				}
				byTerm[term] = ps
			}
		}
	}

	r.fields = &memoryFields{byName: make(map[string]*memoryTerms, len(inverted))}
	for field, byTerm := range inverted {
		t := &memoryTerms{}
		keys := make([]string, 0, len(byTerm))
		for k := range byTerm {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		docsWithField := make(map[int]struct{})
		for _, k := range keys {
			ps := byTerm[k]
			t.terms = append(t.terms, []byte(k))
			t.postings = append(t.postings, ps)
			t.sumDocFreq += int64(len(ps))
			for _, p := range ps {
				docsWithField[p.doc] = struct{}{}
			}
		}
		t.docCount = len(docsWithField)
		r.fields.byName[field] = t
		r.fields.names = append(r.fields.names, field)
	}
	slices.Sort(r.fields.names)
	return r
}

func (r *MemoryReader) MaxDoc() int { return r.maxDoc }

func (r *MemoryReader) NumDocs() int {
	r.liveMu.RLock()
	defer r.liveMu.RUnlock()
	if r.live == nil {
		return r.maxDoc
	}
	return r.maxDoc - r.live.NumDeleted()
}

// Fields returns nil when no document has an indexed term.
func (r *MemoryReader) Fields() Fields {
	if len(r.fields.names) == 0 {
		return nil
	}
	return r.fields
}

// LiveDocs returns nil until the first deletion.
func (r *MemoryReader) LiveDocs() Bits {
	r.liveMu.RLock()
	defer r.liveMu.RUnlock()
	if r.live == nil {
		return nil
	}
	return r.live
}

// Delete marks doc deleted. It reports whether doc was live before.
func (r *MemoryReader) Delete(doc int) bool {
	if doc < 0 || doc >= r.maxDoc {
		return false
	}
	r.liveMu.Lock()
	defer r.liveMu.Unlock()
	if r.live == nil {
		r.live = NewLiveDocs(r.maxDoc)
	}
	return r.live.Delete(doc)
}

// SortedOrds returns the ordinal index over the first value of field in
// each document. The index is built on first use.
func (r *MemoryReader) SortedOrds(field string) (*ordinal.Index, error) {
	r.ordsMu.Lock()
	defer r.ordsMu.Unlock()

	if idx, ok := r.ords[field]; ok {
		return idx, nil
	}
	vals, ok := r.sortValues[field]
	var idx *ordinal.Index
	switch {
	case !ok:
		idx = ordinal.Empty(r.maxDoc)
	case r.packed:
		idx = ordinal.BuildPacked(vals)
	default:
		idx = ordinal.Build(vals)
	}
	r.ords[field] = idx
	return idx, nil
}

// Close is a no-op.
func (r *MemoryReader) Close() error { return nil }

type posting struct {
	doc  int
	freq int
}

type memoryFields struct {
	names  []string
	byName map[string]*memoryTerms
}

func (f *memoryFields) Iterator() FieldsEnum {
	return &memoryFieldsEnum{f: f, pos: -1}
}

func (f *memoryFields) Terms(field string) (Terms, error) {
	t, ok := f.byName[field]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (f *memoryFields) Size() int { return len(f.names) }

type memoryFieldsEnum struct {
	f   *memoryFields
	pos int
}

func (e *memoryFieldsEnum) Next() (string, bool) {
	if e.pos+1 >= len(e.f.names) {
		e.pos = len(e.f.names)
		return "", false
	}
	e.pos++
	return e.f.names[e.pos], true
}

func (e *memoryFieldsEnum) Terms() (Terms, error) {
	if e.pos < 0 || e.pos >= len(e.f.names) {
		return nil, nil
	}
	return e.f.byName[e.f.names[e.pos]], nil
}

type memoryTerms struct {
	terms      [][]byte
	postings   [][]posting
	docCount   int
	sumDocFreq int64
}

func (t *memoryTerms) Iterator() (TermsEnum, error) {
	return &memoryTermsEnum{t: t, pos: -1}, nil
}

func (t *memoryTerms) Size() int64       { return int64(len(t.terms)) }
func (t *memoryTerms) DocCount() int     { return t.docCount }
func (t *memoryTerms) SumDocFreq() int64 { return t.sumDocFreq }

type memoryTermsEnum struct {
	t   *memoryTerms
	pos int
}

func (e *memoryTermsEnum) Next() ([]byte, error) {
	if e.pos+1 >= len(e.t.terms) {
		e.pos = len(e.t.terms)
		return nil, nil
	}
	e.pos++
	return e.t.terms[e.pos], nil
}

func (e *memoryTermsEnum) SeekCeil(term []byte) (SeekStatus, error) {
	i := sort.Search(len(e.t.terms), func(i int) bool {
		return bytes.Compare(e.t.terms[i], term) >= 0
	})
	e.pos = i
	switch {
	case i == len(e.t.terms):
		return SeekEnd, nil
	case bytes.Equal(e.t.terms[i], term):
		return SeekFound, nil
	default:
		return SeekNotFound, nil
	}
}

func (e *memoryTermsEnum) SeekExact(term []byte) (bool, error) {
	status, err := e.SeekCeil(term)
	return status == SeekFound, err
}

func (e *memoryTermsEnum) Term() []byte {
	if e.pos < 0 || e.pos >= len(e.t.terms) {
		return nil
	}
	return e.t.terms[e.pos]
}

func (e *memoryTermsEnum) DocFreq() int {
	if e.pos < 0 || e.pos >= len(e.t.terms) {
		return 0
	}
	return len(e.t.postings[e.pos])
}

func (e *memoryTermsEnum) Postings(liveDocs Bits) (PostingsEnum, error) {
	if e.pos < 0 || e.pos >= len(e.t.terms) {
		return nil, nil
	}
	return &memoryPostingsEnum{postings: e.t.postings[e.pos], live: liveDocs, pos: -1}, nil
}

type memoryPostingsEnum struct {
	postings []posting
	live     Bits
	pos      int
}

func (p *memoryPostingsEnum) NextDoc() (int, error) {
	for p.pos++; p.pos < len(p.postings); p.pos++ {
		if p.live == nil || p.live.Get(p.postings[p.pos].doc) {
			return p.postings[p.pos].doc, nil
		}
	}
	return NoMoreDocs, nil
}

func (p *memoryPostingsEnum) Advance(target int) (int, error) {
	for {
		doc, err := p.NextDoc()
		if err != nil || doc >= target {
			return doc, err
		}
	}
}

func (p *memoryPostingsEnum) DocID() int {
	switch {
	case p.pos < 0:
		return -1
	case p.pos >= len(p.postings):
		return NoMoreDocs
	default:
		return p.postings[p.pos].doc
	}
}

func (p *memoryPostingsEnum) Freq() int {
	if p.pos < 0 || p.pos >= len(p.postings) {
		return 0
	}
	return p.postings[p.pos].freq
}

var _ LeafReader = (*MemoryReader)(nil)
