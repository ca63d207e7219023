package index

import (
	"sync"
)

// MultiFields merges the Fields of several segments into one view.
// Doc ids surfaced through it are global (segment id + slice start).
//
// Merged terms are built on first request per field and cached; fields that
// no segment has are not cached.
type MultiFields struct {
	subs   []Fields
	slices []ReaderSlice

	mu    sync.Mutex
	terms map[string]*MultiTerms
}

// NewMultiFields creates a merged view over subs; slices[i] locates subs[i].
func NewMultiFields(subs []Fields, slices []ReaderSlice) *MultiFields {
	return &MultiFields{
		subs:   subs,
		slices: slices,
		terms:  make(map[string]*MultiTerms),
	}
}

// Iterator returns a duplicate-free, ascending enumeration of every field
// present in at least one segment.
func (m *MultiFields) Iterator() FieldsEnum {
	enums := make([]FieldsEnum, len(m.subs))
	for i, sub := range m.subs {
		enums[i] = sub.Iterator()
	}
	return NewMultiFieldsEnum(m, enums, m.slices)
}

// Terms returns the merged terms of field over exactly the segments that
// contain it, or nil if none does.
func (m *MultiFields) Terms(field string) (Terms, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.terms[field]; ok {
		return t, nil
	}

	var (
		subs   []Terms
		slices []ReaderSlice
	)
	for i, sub := range m.subs {
		t, err := sub.Terms(field)
		if err != nil {
			return nil, err
		}
		if t != nil {
			subs = append(subs, t)
			slices = append(slices, m.slices[i])
		}
	}
	if len(subs) == 0 {
		return nil, nil
	}

	t := NewMultiTerms(subs, slices)
	m.terms[field] = t
	return t, nil
}

// Size is unknown without a full enumeration and always returns -1.
func (m *MultiFields) Size() int {
	return -1
}

type fieldsEnumWithSlice struct {
	fields  FieldsEnum
	slice   ReaderSlice
	index   int
	current string
}

// MultiFieldsEnum merges per-segment field enumerations by name.
type MultiFieldsEnum struct {
	fields *MultiFields
	queue  *mergeQueue[*fieldsEnumWithSlice]
	top    []*fieldsEnumWithSlice

	currentField string
}

// NewMultiFieldsEnum creates an enum over subs, which must be positioned
// before their first field. fields resolves Terms for the current field.
func NewMultiFieldsEnum(fields *MultiFields, subs []FieldsEnum, slices []ReaderSlice) *MultiFieldsEnum {
	e := &MultiFieldsEnum{
		fields: fields,
		queue: newMergeQueue(len(subs), func(a, b *fieldsEnumWithSlice) bool {
			if a.current != b.current {
				return a.current < b.current
			}
			return a.index < b.index
		}),
		top: make([]*fieldsEnumWithSlice, 0, len(subs)),
	}
	for i, sub := range subs {
		s := &fieldsEnumWithSlice{fields: sub, slice: slices[i], index: i}
		if name, ok := sub.Next(); ok {
			s.current = name
			e.queue.Push(s)
		}
	}
	return e
}

// Next advances every cursor that produced the previous field and returns
// the smallest field name among all cursors.
func (e *MultiFieldsEnum) Next() (string, bool) {
	for _, s := range e.top {
		if name, ok := s.fields.Next(); ok {
			s.current = name
			e.queue.Push(s)
		}
	}
	e.top = e.top[:0]

	if e.queue.Len() == 0 {
		e.currentField = ""
		return "", false
	}

	e.currentField = e.queue.Top().current
	for e.queue.Len() > 0 && e.queue.Top().current == e.currentField {
		e.top = append(e.top, e.queue.Pop())
	}
	return e.currentField, true
}

// Terms returns the merged terms of the current field.
func (e *MultiFieldsEnum) Terms() (Terms, error) {
	if len(e.top) == 0 {
		return nil, nil
	}
	if e.fields != nil {
		return e.fields.Terms(e.currentField)
	}
	subs := make([]Terms, 0, len(e.top))
	slices := make([]ReaderSlice, 0, len(e.top))
	for _, s := range e.top {
		t, err := s.fields.Terms()
		if err != nil {
			return nil, err
		}
		if t != nil {
			subs = append(subs, t)
			slices = append(slices, s.slice)
		}
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return NewMultiTerms(subs, slices), nil
}

// GetFields returns the merged Fields of r. A reader with no leaves yields
// nil; a single leaf is returned unwrapped.
func GetFields(r Reader) Fields {
	leaves := Leaves(r)
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return leaves[0].Reader.Fields()
	}

	var (
		subs   []Fields
		slices []ReaderSlice
	)
	for _, leaf := range leaves {
		f := leaf.Reader.Fields()
		if f == nil {
			continue
		}
		subs = append(subs, f)
		slices = append(slices, ReaderSlice{
			Start:       leaf.DocBase,
			Length:      leaf.Reader.MaxDoc(),
			ReaderIndex: leaf.Ord,
		})
	}
	if len(subs) == 0 {
		return nil
	}
	return NewMultiFields(subs, slices)
}

// GetLiveDocs returns the global live docs of r, or nil if no leaf has deletions.
func GetLiveDocs(r Reader) Bits {
	leaves := Leaves(r)
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return leaves[0].Reader.LiveDocs()
	}

	subs := make([]Bits, len(leaves))
	starts := make([]int, len(leaves)+1)
	hasDeletions := false
	for i, leaf := range leaves {
		if live := leaf.Reader.LiveDocs(); live != nil {
			subs[i] = live
			hasDeletions = true
		}
		starts[i] = leaf.DocBase
	}
	last := leaves[len(leaves)-1]
	starts[len(leaves)] = last.DocBase + last.Reader.MaxDoc()
	if !hasDeletions {
		return nil
	}
	return NewMultiBits(subs, starts, true)
}

// GetTerms returns the merged terms of field in r, or nil.
func GetTerms(r Reader, field string) (Terms, error) {
	fields := GetFields(r)
	if fields == nil {
		return nil, nil
	}
	return fields.Terms(field)
}

// FieldNames returns every indexed field of r in ascending order.
func FieldNames(r Reader) []string {
	fields := GetFields(r)
	if fields == nil {
		return nil
	}
	var names []string
	it := fields.Iterator()
	for name, ok := it.Next(); ok; name, ok = it.Next() {
		names = append(names, name)
	}
	return names
}
