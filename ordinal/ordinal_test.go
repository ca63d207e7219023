package ordinal

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/hupe1980/segread/internal/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terms(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func TestDictionary(t *testing.T) {
	d, err := NewDictionary(terms("apple", "banana", "cherry"))
	require.NoError(t, err)

	assert.Equal(t, 3, d.Size())
	assert.Equal(t, 4, d.NumOrd())
	assert.Nil(t, d.Lookup(0))
	assert.Equal(t, "apple", string(d.Lookup(1)))
	assert.Equal(t, "cherry", string(d.Lookup(3)))
	assert.Nil(t, d.Lookup(4))
	assert.Nil(t, d.Lookup(-1))
}

func TestDictionaryRejectsUnsorted(t *testing.T) {
	_, err := NewDictionary(terms("b", "a"))
	assert.ErrorIs(t, err, ErrUnsorted)

	_, err = NewDictionary(terms("a", "a"))
	assert.ErrorIs(t, err, ErrUnsorted)
}

func TestBinarySearch(t *testing.T) {
	d, err := NewDictionary(terms("apple", "banana", "cherry"))
	require.NoError(t, err)

	tests := []struct {
		key  []byte
		want int
	}{
		{nil, 0},
		{[]byte("apple"), 1},
		{[]byte("banana"), 2},
		{[]byte("cherry"), 3},
		{[]byte("aardvark"), -(1 + 1)},
		{[]byte("blueberry"), -(3 + 1)},
		{[]byte("date"), -(4 + 1)},
		{[]byte{}, -(1 + 1)},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.key), func(t *testing.T) {
			assert.Equal(t, tt.want, d.BinarySearch(tt.key))
		})
	}
}

func TestBinarySearchEmptyDictionary(t *testing.T) {
	d, err := NewDictionary(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, d.NumOrd())
	assert.Equal(t, -(1 + 1), d.BinarySearch([]byte("x")))
}

func TestBuildChoosesWidth(t *testing.T) {
	small := Build(terms("b", "a", "b"))
	assert.Equal(t, Width8, small.Ords.Width())
	assert.Equal(t, 2, small.Dict.Size())
	assert.Equal(t, []int{2, 1, 2}, []int{small.Ord(0), small.Ord(1), small.Ord(2)})

	mid := make([][]byte, 300)
	for i := range mid {
		mid[i] = []byte(fmt.Sprintf("t%05d", i))
	}
	assert.Equal(t, Width16, Build(mid).Ords.Width())

	big := make([][]byte, 70000)
	for i := range big {
		big[i] = []byte(fmt.Sprintf("t%06d", i))
	}
	idx := Build(big)
	assert.Equal(t, Width32, idx.Ords.Width())
	assert.Equal(t, "t069999", string(idx.Term(69999)))
}

func TestBuildMissingValues(t *testing.T) {
	idx := Build([][]byte{[]byte("x"), nil, []byte("")})
	assert.Equal(t, 2, idx.Dict.Size())
	assert.Equal(t, 2, idx.Ord(0))
	assert.Equal(t, 0, idx.Ord(1))
	assert.Nil(t, idx.Term(1))
	assert.Equal(t, 1, idx.Ord(2))
	assert.NotNil(t, idx.Term(2))
}

func TestPacked(t *testing.T) {
	ords := make([]int, 1000)
	for i := range ords {
		ords[i] = (i * 7919) % 1500
	}
	ords[len(ords)-1] = 1499
	p := NewPacked(ords)
	assert.Equal(t, 11, p.BitsPerValue())
	assert.Equal(t, len(ords), p.Len())
	for doc, want := range ords {
		require.Equal(t, want, p.Ord(doc), "doc %d", doc)
	}
}

func TestBuildPackedMatchesBuild(t *testing.T) {
	values := terms("m", "c", "", "z", "c")
	values[2] = nil
	flat, packed := Build(values), BuildPacked(values)
	assert.Equal(t, WidthPacked, packed.Ords.Width())
	for doc := range values {
		assert.Equal(t, flat.Ord(doc), packed.Ord(doc))
	}
}

func TestCodecRoundTrip(t *testing.T) {
	values := make([][]byte, 2000)
	for i := range values {
		if i%13 == 0 {
			continue
		}
		values[i] = []byte(fmt.Sprintf("value-%04d", i%400))
	}

	builds := map[string]*Index{
		"uint16": Build(values),
		"packed": BuildPacked(values),
		"uint8":  Build(terms("a", "b", "a")),
		"empty":  Empty(4),
	}

	for name, idx := range builds {
		for _, c := range []compress.Type{compress.None, compress.LZ4, compress.Zstd} {
			t.Run(name+"/"+c.String(), func(t *testing.T) {
				var buf bytes.Buffer
				require.NoError(t, Encode(&buf, idx, c))

				got, err := ReadFrom(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
				require.NoError(t, err)

				assert.Equal(t, idx.Ords.Width(), got.Ords.Width())
				assert.Equal(t, idx.Dict.Size(), got.Dict.Size())
				require.Equal(t, idx.MaxDoc(), got.MaxDoc())
				for doc := 0; doc < idx.MaxDoc(); doc++ {
					require.Equal(t, idx.Term(doc), got.Term(doc))
				}
			})
		}
	}
}

func TestDecodeCorrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Build(terms("a", "b")), compress.None))
	data := buf.Bytes()

	_, err := Decode(data[:10])
	assert.ErrorIs(t, err, ErrCorrupt)

	flipped := bytes.Clone(data)
	flipped[len(flipped)-6] ^= 0xff
	_, err = Decode(flipped)
	assert.ErrorIs(t, err, ErrCorrupt)

	badMagic := bytes.Clone(data)
	badMagic[0] = 'X'
	_, err = Decode(badMagic)
	assert.ErrorIs(t, err, ErrCorrupt)

	dict, err := NewDictionary(terms("a"))
	require.NoError(t, err)
	for _, ords := range []Int32s{{1, -1}, {2, 0}} {
		buf.Reset()
		require.NoError(t, Encode(&buf, &Index{Dict: dict, Ords: ords}, compress.None))
		_, err = Decode(buf.Bytes())
		assert.ErrorIs(t, err, ErrCorrupt, "ords %v", ords)
	}
}
