// Package kmer implements the record and key collaborator types assumed by
// the distributed table. A real assembler plugs in its own key encoding and
// hash function; this package is a faithful stand-in with the same contract:
// a 64-bit digest over the key, value equality, and byte-copyable storage.
package kmer

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// KeyBytes is the fixed encoded width of a k-mer key. 32 bytes covers a
// packed 2-bit encoding of k-mers up to length 128, comfortably above the
// lengths used by short-read assemblers.
const KeyBytes = 32

// Key is the packed, fixed-width identity of a k-mer. Two keys are equal iff
// their bytes are equal; no canonicalization happens here, matching
// spec.md's "opaque... assumed given" treatment of the key type.
type Key [KeyBytes]byte

// Hash returns the 64-bit digest that the partitioner and probe engine key
// off of. Grounded on zeebo/gofaster's concurrent hash table (retrieval
// pack's other_examples/zeebo-gofaster__table.go), which hashes its keys
// with github.com/cespare/xxhash before splitting the digest into bucket
// and tag bits — the same role this digest plays for owner/initial_index.
func (k Key) Hash() uint64 {
	return xxhash.Sum64(k[:])
}

// Equal reports byte-for-byte key equality.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k[:], other[:])
}

// ExtBytes is the width of the forward/backward extension payload carried
// alongside every key, modeled after the two-character extension encoding
// used by de Bruijn contig walkers (one byte forward, one byte backward).
const ExtBytes = 2

// Pair is the record type stored in the table: a key plus its payload. It
// is trivially copyable and its zero value is distinguishable from any
// inserted record only by the slot's occupancy flag, never by its own
// contents — this mirrors spec.md §3's "record contents are indeterminate
// until used is observed 1" rule.
//
// Grounded on the teacher's Pool struct in main.go: a small, fixed,
// cache-friendly record with an explicit size comment instead of a
// variable-length or pointer-bearing representation.
type Pair struct {
	Key Key            // 32B — packed k-mer identity
	Ext [ExtBytes]byte // 2B  — forward/backward extension characters
	_   [6]byte        // pad to 40B, 8-byte aligned
}

// Hash forwards to the key's digest; the table's probe engine only ever
// needs the record's key hash, never the payload.
func (p Pair) Hash() uint64 { return p.Key.Hash() }
