// Package hash provides the non-cryptographic hashing used for payload entry
// naming. Entry names derived from hostile mapping keys get a short hash
// suffix so two keys that sanitize to the same characters still map to
// distinct container members.
package hash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Sum64 computes the xxHash64 of the given string.
func Sum64(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Suffix returns the fixed-width hex suffix appended to sanitized entry
// names: the low 32 bits of the path's xxHash64.
func Suffix(path string) string {
	return fmt.Sprintf("%08x", uint32(Sum64(path)))
}
