package search

import (
	"cmp"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segread/index"
	"github.com/hupe1980/segread/testutil"
)

// corpus is a multi-segment reader together with the flat per-doc values
// it was built from.
type corpus struct {
	reader *index.CompositeReader
	values [][]byte
}

func newCorpus(t *testing.T, rng *testutil.RNG, segments int, vocab []string) corpus {
	t.Helper()
	var (
		leaves []index.LeafReader
		all    [][]byte
	)
	for s := 0; s < segments; s++ {
		vals := rng.Values(50+rng.Intn(300), vocab, 0.1)
		docs := make([]index.Document, len(vals))
		for i, v := range vals {
			if v != nil {
				docs[i] = index.Document{"f": {string(v)}}
			}
		}
		var opts []index.MemoryOption
		if s%2 == 1 {
			opts = append(opts, index.WithPackedOrds())
		}
		leaves = append(leaves, index.NewMemoryReader(docs, opts...))
		all = append(all, vals...)
	}
	r, err := index.NewCompositeReader(leaves...)
	require.NoError(t, err)
	return corpus{reader: r, values: all}
}

// ranking sorts every doc by value with nil last (or first when reversed),
// breaking ties by doc id.
func ranking(values [][]byte, reverse bool) []int {
	docs := make([]int, len(values))
	for i := range docs {
		docs[i] = i
	}
	slices.SortFunc(docs, func(a, b int) int {
		r := compareNilLast(values[a], values[b])
		if reverse {
			r = -r
		}
		if r != 0 {
			return r
		}
		return cmp.Compare(a, b)
	})
	return docs
}

func TestTopFieldCollector_MatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(42)
	// More than 255 terms so that some segments need 16-bit ordinals.
	vocab := rng.Vocabulary(400, 2, 6)
	c := newCorpus(t, rng, 5, vocab)

	for _, reverse := range []bool{false, true} {
		for _, numHits := range []int{1, 7, 40, len(c.values) + 10} {
			col, err := NewTopFieldCollector(NewSort(StringField("f", reverse)), numHits)
			require.NoError(t, err)
			require.NoError(t, Search(c.reader, col, nil))

			td := col.TopDocs()
			want := ranking(c.values, reverse)[:min(numHits, len(c.values))]
			require.Equal(t, want, docIDs(td), "reverse=%v numHits=%d", reverse, numHits)
			assert.Equal(t, len(c.values), td.TotalHits)

			for _, hit := range td.ScoreDocs {
				require.Len(t, hit.Fields, 1)
				assert.Equal(t, -1, hit.ShardIndex)
				if v := c.values[hit.Doc]; v == nil {
					assert.Nil(t, hit.Fields[0])
				} else {
					assert.Equal(t, v, hit.Fields[0])
				}
			}
		}
	}
}

func TestTopFieldCollector_SearchAfter(t *testing.T) {
	rng := testutil.NewRNG(7)
	c := newCorpus(t, rng, 3, rng.Vocabulary(30, 1, 3))
	sort := NewSort(StringField("f", false))
	want := ranking(c.values, false)

	col, err := NewTopFieldCollector(sort, 10)
	require.NoError(t, err)
	require.NoError(t, Search(c.reader, col, nil))
	page := col.TopDocs()
	assert.Equal(t, want[:10], docIDs(page))

	var got []int
	got = append(got, docIDs(page)...)
	for len(page.ScoreDocs) > 0 {
		last := page.ScoreDocs[len(page.ScoreDocs)-1]
		col, err = NewTopFieldCollector(sort, 10, WithSearchAfter(last))
		require.NoError(t, err)
		require.NoError(t, Search(c.reader, col, nil))
		page = col.TopDocs()
		got = append(got, docIDs(page)...)
	}
	assert.Equal(t, want, got)
}

func TestTopFieldCollector_MultipleFields(t *testing.T) {
	seg := index.NewMemoryReader([]index.Document{
		{"cat": {"b"}},
		{"cat": {"a"}},
		{"cat": {"b"}},
		{},
		{"cat": {"a"}},
	})
	scores := []float32{1, 2, 3, 9, 2}
	byDocScore := func(doc int) float32 { return scores[doc] }

	col, err := NewTopFieldCollector(NewSort(StringField("cat", false), ScoreField()), 5)
	require.NoError(t, err)
	require.NoError(t, Search(seg, col, byDocScore))

	td := col.TopDocs()
	assert.Equal(t, []int{1, 4, 2, 0, 3}, docIDs(td))
	assert.Equal(t, float32(9), td.MaxScore)
	assert.Equal(t, []any{[]byte("b"), float32(3)}, td.ScoreDocs[2].Fields)
	assert.Equal(t, float32(3), td.ScoreDocs[2].Score)

	col, err = NewTopFieldCollector(NewSort(ScoreField()), 2)
	require.NoError(t, err)
	require.NoError(t, Search(seg, col, byDocScore))
	assert.Equal(t, []int{3, 2}, docIDs(col.TopDocs()))

	col, err = NewTopFieldCollector(NewSort(DocField()), 2)
	require.NoError(t, err)
	require.NoError(t, Search(seg, col, byDocScore))
	assert.Equal(t, []int{0, 1}, docIDs(col.TopDocs()))

	col, err = NewTopFieldCollector(NewSort(SortField{Type: SortDoc, Reverse: true}), 3)
	require.NoError(t, err)
	require.NoError(t, Search(seg, col, byDocScore))
	assert.Equal(t, []int{4, 3, 2}, docIDs(col.TopDocs()))
}

func TestTopFieldCollector_DeletedDocsAndEmpty(t *testing.T) {
	seg := index.NewMemoryReader([]index.Document{{"f": {"a"}}, {"f": {"b"}}})
	seg.Delete(0)

	col, err := NewTopFieldCollector(NewSort(StringField("f", false)), 3)
	require.NoError(t, err)
	require.NoError(t, Search(seg, col, nil))
	td := col.TopDocs()
	assert.Equal(t, []int{1}, docIDs(td))
	assert.Equal(t, 1, td.TotalHits)

	col, err = NewTopFieldCollector(NewSort(StringField("f", false)), 3)
	require.NoError(t, err)
	require.NoError(t, Search(index.NewMemoryReader(nil), col, nil))
	td = col.TopDocs()
	assert.Empty(t, td.ScoreDocs)
	assert.Zero(t, td.TotalHits)
	assert.True(t, math.IsNaN(float64(td.MaxScore)))
}

func TestTopFieldCollector_Errors(t *testing.T) {
	_, err := NewTopFieldCollector(nil, 3)
	assert.ErrorIs(t, err, ErrEmptySort)

	_, err = NewTopFieldCollector(NewSort(), 3)
	assert.ErrorIs(t, err, ErrEmptySort)

	_, err = NewTopFieldCollector(NewSort(DocField()), 0)
	assert.ErrorIs(t, err, ErrInvalidNumHits)

	_, err = NewTopFieldCollector(NewSort(SortField{Type: SortType(9)}), 1)
	assert.ErrorIs(t, err, ErrUnknownSortType)

	_, err = NewTopFieldCollector(NewSort(DocField()), 1, WithSearchAfter(ScoreDoc{Doc: 3}))
	assert.ErrorIs(t, err, ErrSortValuesNotFilled)
}

func TestSort_String(t *testing.T) {
	s := NewSort(StringField("title", true), ScoreField(), DocField())
	assert.Equal(t, `"title"!,<score>,<doc>`, s.String())
	assert.True(t, s.NeedsScores())
	assert.False(t, NewSort(DocField()).NeedsScores())
	assert.Equal(t, "score", SortScore.String())
}

// pageAll pages through r one hit at a time with WithSearchAfter and
// returns the docs in order together with every page's TotalHits.
func pageAll(t *testing.T, r index.Reader, sort *Sort) ([]int, []int) {
	t.Helper()
	var (
		docs   []int
		totals []int
		opts   []CollectorOption
	)
	for {
		col, err := NewTopFieldCollector(sort, 1, opts...)
		require.NoError(t, err)
		require.NoError(t, Search(r, col, nil))
		page := col.TopDocs()
		totals = append(totals, page.TotalHits)
		if len(page.ScoreDocs) == 0 {
			return docs, totals
		}
		docs = append(docs, page.ScoreDocs[0].Doc)
		opts = []CollectorOption{WithSearchAfter(page.ScoreDocs[0])}
	}
}

func TestTopFieldCollector_MissingValueSortsLast(t *testing.T) {
	seg := index.NewMemoryReader([]index.Document{{"f": {"b"}}, {}, {"f": {"c"}}})
	field := SortField{Field: "f", Type: SortString, MissingValue: []byte("a")}

	col, err := NewTopFieldCollector(NewSort(field), 3)
	require.NoError(t, err)
	require.NoError(t, Search(seg, col, nil))
	td := col.TopDocs()
	assert.Equal(t, []int{0, 2, 1}, docIDs(td))
	assert.Equal(t, MissingTerm("a"), td.ScoreDocs[2].Fields[0])

	docs, totals := pageAll(t, seg, NewSort(field))
	assert.Equal(t, []int{0, 2, 1}, docs)
	assert.Equal(t, []int{3, 3, 3, 3}, totals)

	// Reversal includes missing values: they come first.
	field.Reverse = true
	docs, _ = pageAll(t, seg, NewSort(field))
	assert.Equal(t, []int{1, 2, 0}, docs)
}

func TestTopFieldCollector_SearchAfterKeepsTotalHits(t *testing.T) {
	seg := index.NewMemoryReader([]index.Document{
		{"f": {"a"}}, {"f": {"b"}}, {"f": {"c"}}, {"f": {"d"}},
	})
	sort := NewSort(StringField("f", false))

	col, err := NewTopFieldCollector(sort, 2)
	require.NoError(t, err)
	require.NoError(t, Search(seg, col, func(doc int) float32 { return float32(doc + 1) }))
	first := col.TopDocs()
	require.Equal(t, []int{0, 1}, docIDs(first))
	assert.Equal(t, 4, first.TotalHits)

	col, err = NewTopFieldCollector(sort, 2, WithSearchAfter(first.ScoreDocs[1]))
	require.NoError(t, err)
	require.NoError(t, Search(seg, col, func(doc int) float32 { return float32(doc + 1) }))
	second := col.TopDocs()
	assert.Equal(t, []int{2, 3}, docIDs(second))
	assert.Equal(t, 4, second.TotalHits)
	assert.Equal(t, float32(4), second.MaxScore)

	col, err = NewTopFieldCollector(sort, 2, WithSearchAfter(second.ScoreDocs[1]))
	require.NoError(t, err)
	require.NoError(t, Search(seg, col, nil))
	last := col.TopDocs()
	assert.Empty(t, last.ScoreDocs)
	assert.Equal(t, 4, last.TotalHits)
}
