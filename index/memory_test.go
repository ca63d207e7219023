package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segread/directory"
	"github.com/hupe1980/segread/internal/cache"
	"github.com/hupe1980/segread/ordinal"
)

func TestMemoryReader_SortedOrds(t *testing.T) {
	r := NewMemoryReader([]Document{
		{"title": {"pear", "apple"}},
		{},
		{"title": {"apple"}},
		{"title": {"fig"}},
	})

	idx, err := r.SortedOrds("title")
	require.NoError(t, err)
	assert.IsType(t, ordinal.Uint8s{}, idx.Ords)
	assert.Equal(t, 4, idx.MaxDoc())
	assert.Equal(t, 3, idx.Dict.Size())

	assert.Equal(t, "pear", string(idx.Term(0)))
	assert.Equal(t, 0, idx.Ord(1))
	assert.Nil(t, idx.Term(1))
	assert.Equal(t, 1, idx.Ord(2))
	assert.Equal(t, 2, idx.Ord(3))

	again, err := r.SortedOrds("title")
	require.NoError(t, err)
	assert.Same(t, idx, again)

	missing, err := r.SortedOrds("nope")
	require.NoError(t, err)
	assert.Equal(t, 4, missing.MaxDoc())
	assert.Equal(t, 0, missing.Dict.Size())
	for doc := 0; doc < 4; doc++ {
		assert.Equal(t, 0, missing.Ord(doc))
	}

	packed := NewMemoryReader([]Document{{"f": {"b"}}, {"f": {"a"}}}, WithPackedOrds())
	idx, err = packed.SortedOrds("f")
	require.NoError(t, err)
	assert.IsType(t, &ordinal.Packed{}, idx.Ords)
	assert.Equal(t, 2, idx.Ord(0))
}

func TestMemoryReader_TermsAndDeletes(t *testing.T) {
	r := NewMemoryReader([]Document{
		{"body": {"go", "go", "rust"}},
		{"body": {"go"}},
		{"tags": {"x"}},
	})
	assert.Equal(t, 3, r.MaxDoc())
	assert.Equal(t, 3, r.NumDocs())
	assert.Nil(t, r.LiveDocs())
	assert.Equal(t, 2, r.Fields().Size())

	terms, err := r.Fields().Terms("body")
	require.NoError(t, err)
	assert.Equal(t, int64(2), terms.Size())
	assert.Equal(t, 2, terms.DocCount())
	assert.Equal(t, int64(3), terms.SumDocFreq())

	te, err := terms.Iterator()
	require.NoError(t, err)
	assert.Nil(t, te.Term())
	ok, err := te.SeekExact([]byte("go"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, te.DocFreq())

	p, err := te.Postings(nil)
	require.NoError(t, err)
	doc, err := p.NextDoc()
	require.NoError(t, err)
	assert.Equal(t, 0, doc)
	assert.Equal(t, 2, p.Freq())

	assert.True(t, r.Delete(0))
	assert.False(t, r.Delete(0))
	assert.False(t, r.Delete(99))
	assert.Equal(t, 2, r.NumDocs())

	p, err = te.Postings(r.LiveDocs())
	require.NoError(t, err)
	doc, err = p.NextDoc()
	require.NoError(t, err)
	assert.Equal(t, 1, doc)
	doc, err = p.NextDoc()
	require.NoError(t, err)
	assert.Equal(t, NoMoreDocs, doc)
	assert.Equal(t, NoMoreDocs, p.DocID())

	none, err := r.Fields().Terms("missing")
	require.NoError(t, err)
	assert.Nil(t, none)
	require.NoError(t, r.Close())
}

func TestStoredOrdinals_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemoryDirectory()
	src := NewMemoryReader([]Document{
		{"title": {"kiwi"}, "tags": {"b"}},
		{"title": {"apple"}},
		{},
	})

	require.NoError(t, WriteSegmentOrdinals(ctx, dir, "_0", src, ordinal.CompressionZstd))
	names, err := dir.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"_0_tags.ord", "_0_title.ord"}, names)

	idx, err := ReadOrdinals(ctx, dir, OrdinalsFileName("_0", "title"))
	require.NoError(t, err)
	assert.Equal(t, "kiwi", string(idx.Term(0)))

	lc := cache.NewLRUBlockCache(1<<20, nil)
	stored := WithStoredOrdinals(src, dir, "_0", WithOrdinalCache(lc, "/mem"))
	idx, err = stored.SortedOrds("title")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Ord(0))
	assert.Equal(t, 1, idx.Ord(1))
	assert.Equal(t, 0, idx.Ord(2))
	assert.Equal(t, 1, lc.Len())

	// A second reader over the same scope decodes from the cache even after
	// the file is gone.
	require.NoError(t, dir.DeleteFile(ctx, OrdinalsFileName("_0", "title")))
	other := WithStoredOrdinals(src, dir, "_0", WithOrdinalCache(lc, "/mem"))
	idx, err = other.SortedOrds("title")
	require.NoError(t, err)
	assert.Equal(t, "kiwi", string(idx.Term(0)))
	hits, _ := lc.Stats()
	assert.Equal(t, int64(1), hits)

	empty, err := stored.SortedOrds("body")
	require.NoError(t, err)
	assert.Equal(t, 3, empty.MaxDoc())
	assert.Equal(t, 0, empty.Dict.Size())

	// Non-ordinal calls go to the wrapped reader.
	assert.Equal(t, 3, stored.MaxDoc())
	assert.Equal(t, []string{"tags", "title"}, FieldNames(stored))
}

func TestStoredOrdinals_Mismatch(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemoryDirectory()
	require.NoError(t, WriteOrdinals(ctx, dir, OrdinalsFileName("_1", "f"),
		ordinal.Build([][]byte{[]byte("a")}), ordinal.CompressionNone))

	r := WithStoredOrdinals(NewMemoryReader([]Document{{}, {}}), dir, "_1")
	_, err := r.SortedOrds("f")
	assert.ErrorIs(t, err, ordinal.ErrCorrupt)

	require.NoError(t, directory.WriteFile(ctx, dir, OrdinalsFileName("_1", "g"), []byte("garbage data that is long")))
	_, err = r.SortedOrds("g")
	assert.ErrorIs(t, err, ordinal.ErrCorrupt)
}
