// Package segment implements the local segment (spec.md C2) and the slot
// protocol (spec.md C3): the only place table records physically live, and
// the atomic claim-then-write / occupancy-then-read discipline that governs
// them.
//
// Grounded on the teacher's ring/ring_atomic_fallback.go, which wraps
// sync/atomic in named acquire/release helpers with the comment "Seq-cst is
// a conservative superset of the required order" — exactly the guarantee
// spec.md §4.3 asks for between a claiming CAS and the record write it
// authorizes.
package segment

import (
	"sync/atomic"

	"github.com/codewanderer/kmertable/kmer"
)

// Empty and Occupied are the only two legal values of a slot's used flag.
// spec.md §3 invariant 1: used is monotone non-decreasing, so Occupied is
// the only transition ever made after construction.
const (
	Empty    uint32 = 0
	Occupied uint32 = 1
)

// Segment is one rank's slice of the table: two co-indexed arrays, used[]
// and record[], long enough to be addressed by any rank's (rank, index)
// handle once published (see pgas.Directory). Segment never grows or
// shrinks after New — spec.md's Non-goals exclude resizing.
type Segment struct {
	used   []uint32
	record []kmer.Pair
}

// New allocates a zero-filled segment of length l. The used array starts
// zeroed so that slot 0..l-1 all read Empty before the opening barrier,
// satisfying spec.md §3's lifecycle rule.
func New(l int) *Segment {
	return &Segment{
		used:   make([]uint32, l),
		record: make([]kmer.Pair, l),
	}
}

// Len returns this segment's slot count (the rank's L_r).
func (s *Segment) Len() int { return len(s.used) }

// loadAcquire is a named acquire load of a used cell. Go's sync/atomic
// load already provides the happens-before guarantee this needs; the
// wrapper exists to document the role at each call site, matching the
// teacher's loadAcquireUint64 naming convention.
func loadAcquire(p *uint32) uint32 { return atomic.LoadUint32(p) }

// storeRelease is a named release store, paired with loadAcquire above.
func storeRelease(p *uint32, v uint32) { atomic.StoreUint32(p, v) }

// TryClaim performs the slot protocol's step 1-2 (spec.md §4.3): an atomic
// CAS of used[i] from Empty to Occupied. true means this call claimed the
// slot and the caller must now write the record (step 3); false means some
// other claimant got there first and the caller must probe onward.
func (s *Segment) TryClaim(i int) bool {
	return atomic.CompareAndSwapUint32(&s.used[i], Empty, Occupied)
}

// WriteRecord performs step 3 of the slot protocol: an ordinary, non-atomic
// write of the record, valid only immediately after a successful TryClaim
// on the same index by the same caller. The preceding CAS's release
// semantics make this store visible to any reader that later observes
// used[i] == Occupied via LoadUsed.
func (s *Segment) WriteRecord(i int, p kmer.Pair) {
	s.record[i] = p
}

// LoadUsed is the find path's step 1: an acquire load of used[i]. Pairing
// this acquire with the claim's CAS release is what makes the subsequent
// ReadRecord safe without any extra fence (spec.md §4.3 step 4).
func (s *Segment) LoadUsed(i int) uint32 {
	return loadAcquire(&s.used[i])
}

// ReadRecord reads the record at i. Callers must have just observed
// LoadUsed(i) == Occupied; reading before that observation is a race and
// its result is the "indeterminate" state spec.md §3 warns about.
func (s *Segment) ReadRecord(i int) kmer.Pair {
	return s.record[i]
}

// ForceClaimUnsynchronized performs a plain, non-atomic store to used[i],
// bypassing the CAS discipline entirely. It is the CAS-free fallback
// variant spec.md §4.3 allows "only when a single rank performs all
// writes to its own segment" — i.e. no remote atomic or RPC handler may
// ever target this segment concurrently with its owner. Callers that
// enable this mode take on that proof obligation themselves; the default
// dispatcher never calls it.
func (s *Segment) ForceClaimUnsynchronized(i int) bool {
	if s.used[i] != Empty {
		return false
	}
	s.used[i] = Occupied
	return true
}

// Occupied reports how many slots in this segment carry used == Occupied.
// Collective callers (table.Table.Occupied) sum this across ranks after a
// barrier; used for operational visibility only, not correctness.
func (s *Segment) OccupiedCount() int {
	n := 0
	for i := range s.used {
		if atomic.LoadUint32(&s.used[i]) == Occupied {
			n++
		}
	}
	return n
}
