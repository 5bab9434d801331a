// Package hashutil implements the name-hash and small persisted hash-map
// primitives shared by the PDB info stream, TPI/IPI hash sidecars, and the
// global/public symbol indices.
package hashutil

import "encoding/binary"

// HashV1 computes the 32-bit "v1" name hash used throughout the PDB format
// for case-insensitive name lookups (named-stream table, TPI hash values,
// GSI/PSI buckets).
func HashV1(data []byte) uint32 {
	var hash uint32

	for len(data) >= 4 {
		hash ^= binary.LittleEndian.Uint32(data)
		data = data[4:]
	}

	if len(data) >= 2 {
		hash ^= uint32(binary.LittleEndian.Uint16(data))
		data = data[2:]
	}

	if len(data) == 1 {
		hash ^= uint32(data[0])
	}

	const toLowerMask = 0x20202020
	hash |= toLowerMask
	hash ^= hash >> 11

	return hash ^ (hash >> 16)
}

// HashV1String is a convenience wrapper around HashV1 for string keys.
func HashV1String(s string) uint32 {
	return HashV1([]byte(s))
}
