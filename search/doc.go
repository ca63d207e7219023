// Package search sorts hits by field values across segments and merges
// ranked results from several shards.
//
// Sorting by a string field works on per-segment ordinals. Ordinals of
// different segments are not comparable, so TermOrdValComparator tags each
// queue slot with the segment generation it was filled from and compares
// term bytes when generations differ:
//
//	sort := search.NewSort(search.StringField("title", false))
//	col, err := search.NewTopFieldCollector(sort, 10)
//	if err != nil {
//		return err
//	}
//	if err := search.Search(reader, col, nil); err != nil {
//		return err
//	}
//	top := col.TopDocs()
//
// Shard results collected this way carry their sort values and can be
// combined with Merge:
//
//	merged, err := search.Merge(sort, 10, []*search.TopDocs{top0, top1, top2})
//
// Ties are broken by shard index, then by rank within the shard, so a merge
// is deterministic for deterministic inputs.
package search
