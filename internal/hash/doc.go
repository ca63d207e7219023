// Package hash checksums ordinal files and blob uploads with
// CRC32-Castagnoli.
//
// Files carry a 4-byte little-endian trailer:
//
//	buf = hash.Append(buf)
//	body, ok := hash.Verify(buf)
//
// S3 uploads send the same checksum in the header encoding S3 uses:
//
//	input.ChecksumCRC32C = aws.String(hash.S3Checksum(data))
package hash
