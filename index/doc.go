// Package index defines the segment reader contracts and presents several
// independently built segments as one logical field and term space.
//
// A [LeafReader] reads one segment with segment-local doc ids. A
// [CompositeReader] concatenates leaves and assigns each a doc base; global
// doc id = doc base + local id.
//
// # Merged Views
//
//	fields := index.GetFields(reader)   // nil, the leaf's own Fields, or a *MultiFields
//	it := fields.Iterator()
//	for name, ok := it.Next(); ok; name, ok = it.Next() {
//		terms, _ := it.Terms()
//		...
//	}
//
// [MultiFieldsEnum] merges field names with a priority queue so each name
// appears once, in ascending order. [MultiFields.Terms] builds a
// [MultiTerms] over exactly the segments containing the field and caches
// it; absent fields are not cached. Postings obtained from merged terms
// report global doc ids.
//
// # In-Memory Segments and Stored Ordinals
//
// [MemoryReader] indexes documents in memory and supports deletions through
// roaring bitmap backed [LiveDocs]. [WriteSegmentOrdinals] persists its
// sorted ordinals through a directory.Directory, and [WithStoredOrdinals]
// serves them back from there.
package index
