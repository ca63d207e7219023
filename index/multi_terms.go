package index

import (
	"bytes"
	"slices"
)

// MultiTerms merges the terms of one field across segments.
type MultiTerms struct {
	subs   []Terms
	slices []ReaderSlice
}

// NewMultiTerms creates a merged view; slices[i] locates subs[i].
func NewMultiTerms(subs []Terms, slices []ReaderSlice) *MultiTerms {
	return &MultiTerms{subs: subs, slices: slices}
}

func (m *MultiTerms) Iterator() (TermsEnum, error) {
	enums := make([]TermsEnum, len(m.subs))
	for i, sub := range m.subs {
		it, err := sub.Iterator()
		if err != nil {
			return nil, err
		}
		enums[i] = it
	}
	return NewMultiTermsEnum(enums, m.slices), nil
}

// Size is unknown because segments share terms; it always returns -1.
func (m *MultiTerms) Size() int64 { return -1 }

func (m *MultiTerms) DocCount() int {
	total := 0
	for _, sub := range m.subs {
		total += sub.DocCount()
	}
	return total
}

func (m *MultiTerms) SumDocFreq() int64 {
	var total int64
	for _, sub := range m.subs {
		total += sub.SumDocFreq()
	}
	return total
}

type termsEnumWithSlice struct {
	terms   TermsEnum
	slice   ReaderSlice
	index   int
	current []byte
}

// MultiTermsEnum merges per-segment term enumerations in byte order.
// Every segment positioned on the current term is in top.
type MultiTermsEnum struct {
	subs  []*termsEnumWithSlice
	queue *mergeQueue[*termsEnumWithSlice]
	top   []*termsEnumWithSlice

	current       []byte
	lastSeekExact bool
	started       bool
}

// NewMultiTermsEnum creates a merged enum; subs must be unpositioned.
func NewMultiTermsEnum(subs []TermsEnum, slices []ReaderSlice) *MultiTermsEnum {
	e := &MultiTermsEnum{
		subs: make([]*termsEnumWithSlice, len(subs)),
		queue: newMergeQueue(len(subs), func(a, b *termsEnumWithSlice) bool {
			if c := bytes.Compare(a.current, b.current); c != 0 {
				return c < 0
			}
			return a.index < b.index
		}),
		top: make([]*termsEnumWithSlice, 0, len(subs)),
	}
	for i, sub := range subs {
		e.subs[i] = &termsEnumWithSlice{terms: sub, slice: slices[i], index: i}
	}
	return e
}

// Next returns the next term present in any segment, or nil when exhausted.
func (e *MultiTermsEnum) Next() ([]byte, error) {
	if !e.started {
		e.started = true
		for _, s := range e.subs {
			e.top = append(e.top, s)
		}
	}
	if e.lastSeekExact {
		if _, err := e.SeekCeil(e.current); err != nil {
			return nil, err
		}
		e.lastSeekExact = false
	}

	for _, s := range e.top {
		term, err := s.terms.Next()
		if err != nil {
			return nil, err
		}
		if term != nil {
			s.current = term
			e.queue.Push(s)
		}
	}
	e.top = e.top[:0]

	if e.queue.Len() == 0 {
		e.current = nil
		return nil, nil
	}
	e.pullTop()
	return e.current, nil
}

func (e *MultiTermsEnum) pullTop() {
	e.current = e.queue.Top().current
	for e.queue.Len() > 0 && bytes.Equal(e.queue.Top().current, e.current) {
		e.top = append(e.top, e.queue.Pop())
	}
}

// SeekCeil positions every segment on its smallest term >= term.
func (e *MultiTermsEnum) SeekCeil(term []byte) (SeekStatus, error) {
	e.started = true
	e.lastSeekExact = false
	e.queue.Reset()
	e.top = e.top[:0]

	target := bytes.Clone(term)
	for _, s := range e.subs {
		status, err := s.terms.SeekCeil(target)
		if err != nil {
			return SeekEnd, err
		}
		switch status {
		case SeekFound:
			s.current = s.terms.Term()
			e.top = append(e.top, s)
		case SeekNotFound:
			s.current = s.terms.Term()
			e.queue.Push(s)
		}
	}

	if len(e.top) > 0 {
		e.current = target
		return SeekFound, nil
	}
	if e.queue.Len() > 0 {
		e.pullTop()
		return SeekNotFound, nil
	}
	e.current = nil
	return SeekEnd, nil
}

// SeekExact positions on term if any segment has it.
func (e *MultiTermsEnum) SeekExact(term []byte) (bool, error) {
	e.started = true
	e.queue.Reset()
	e.top = e.top[:0]

	target := bytes.Clone(term)
	for _, s := range e.subs {
		ok, err := s.terms.SeekExact(target)
		if err != nil {
			return false, err
		}
		if ok {
			s.current = s.terms.Term()
			e.top = append(e.top, s)
		}
	}
	if len(e.top) == 0 {
		e.current = nil
		e.lastSeekExact = false
		return false, nil
	}
	e.current = target
	e.lastSeekExact = true
	return true, nil
}

func (e *MultiTermsEnum) Term() []byte { return e.current }

// DocFreq sums the document frequency of the current term over segments.
func (e *MultiTermsEnum) DocFreq() int {
	total := 0
	for _, s := range e.top {
		total += s.terms.DocFreq()
	}
	return total
}

// Postings iterates the current term's documents across segments with
// global doc ids. liveDocs is global; it is sliced per segment.
func (e *MultiTermsEnum) Postings(liveDocs Bits) (PostingsEnum, error) {
	matching := slices.Clone(e.top)
	slices.SortFunc(matching, func(a, b *termsEnumWithSlice) int { return a.index - b.index })

	subs := make([]postingsWithSlice, 0, len(matching))
	for _, s := range matching {
		var subLive Bits
		if liveDocs != nil {
			if mb, ok := liveDocs.(*MultiBits); ok {
				if sub, ok := mb.MatchingSub(s.slice); ok {
					subLive = sub
				} else {
					subLive = &bitsSlice{parent: liveDocs, start: s.slice.Start, length: s.slice.Length}
				}
			} else {
				subLive = &bitsSlice{parent: liveDocs, start: s.slice.Start, length: s.slice.Length}
			}
		}
		p, err := s.terms.Postings(subLive)
		if err != nil {
			return nil, err
		}
		if p != nil {
			subs = append(subs, postingsWithSlice{postings: p, slice: s.slice})
		}
	}
	return newMultiPostingsEnum(subs), nil
}

type postingsWithSlice struct {
	postings PostingsEnum
	slice    ReaderSlice
}

// MultiPostingsEnum concatenates per-segment postings, translating doc ids
// by each segment's start.
type MultiPostingsEnum struct {
	subs    []postingsWithSlice
	upto    int
	current PostingsEnum
	base    int
	doc     int
}

func newMultiPostingsEnum(subs []postingsWithSlice) *MultiPostingsEnum {
	return &MultiPostingsEnum{subs: subs, upto: -1, doc: -1}
}

func (m *MultiPostingsEnum) DocID() int { return m.doc }

func (m *MultiPostingsEnum) Freq() int {
	if m.current == nil {
		return 0
	}
	return m.current.Freq()
}

func (m *MultiPostingsEnum) NextDoc() (int, error) {
	for {
		if m.current == nil {
			if m.upto == len(m.subs)-1 {
				m.doc = NoMoreDocs
				return m.doc, nil
			}
			m.upto++
			m.current = m.subs[m.upto].postings
			m.base = m.subs[m.upto].slice.Start
		}
		d, err := m.current.NextDoc()
		if err != nil {
			return 0, err
		}
		if d != NoMoreDocs {
			m.doc = m.base + d
			return m.doc, nil
		}
		m.current = nil
	}
}

func (m *MultiPostingsEnum) Advance(target int) (int, error) {
	for {
		if m.current != nil {
			local := target - m.base
			if local < 0 {
				local = 0
			}
			d, err := m.current.Advance(local)
			if err != nil {
				return 0, err
			}
			if d != NoMoreDocs {
				m.doc = m.base + d
				return m.doc, nil
			}
			m.current = nil
		} else {
			if m.upto == len(m.subs)-1 {
				m.doc = NoMoreDocs
				return m.doc, nil
			}
			m.upto++
			m.current = m.subs[m.upto].postings
			m.base = m.subs[m.upto].slice.Start
		}
	}
}
