package hash

import (
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
)

// TrailerSize is the length of the checksum Append adds.
const TrailerSize = 4

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// Append appends the little-endian CRC32C of buf to buf.
func Append(buf []byte) []byte {
	return binary.LittleEndian.AppendUint32(buf, CRC32C(buf))
}

// Verify splits data into body and trailer as written by Append and
// reports whether the checksum matches.
func Verify(data []byte) (body []byte, ok bool) {
	if len(data) < TrailerSize {
		return nil, false
	}
	body = data[:len(data)-TrailerSize]
	return body, CRC32C(body) == binary.LittleEndian.Uint32(data[len(body):])
}

// S3Checksum returns the base64 big-endian CRC32C that S3 expects in
// x-amz-checksum-crc32c.
func S3Checksum(data []byte) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], CRC32C(data))
	return base64.StdEncoding.EncodeToString(b[:])
}
