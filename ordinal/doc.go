// Package ordinal provides per-segment term dictionaries and document-to-ordinal tables.
//
// Each segment assigns its distinct indexed values dense ordinals in sorted
// order. Ordinal 0 means "document has no value". Ordinals from different
// segments live in different spaces and are never compared directly.
//
// # Usage
//
//	idx := ordinal.Build([][]byte{[]byte("pear"), nil, []byte("apple")})
//	idx.Ord(0)                        // 2
//	idx.Term(2)                       // "apple"
//	idx.Dict.BinarySearch([]byte("b")) // -(2+1): would sit at ordinal 2
//
// # Storage Widths
//
// Build picks the narrowest flat table (Uint8s, Uint16s, Int32s) that holds
// every ordinal. BuildPacked produces a bit-packed table instead. Consumers
// can type-switch on the concrete Reader to use a width-specialized path.
//
// # Persistence
//
// Encode and Decode read and write a checksummed binary form whose term and
// ordinal blocks are optionally LZ4 or Zstd compressed.
package ordinal
