// Package probe implements the probe engine (spec.md C4): the
// deterministic linear-probing sequence of (rank, local index) candidates
// a key's hash maps to, and the termination rules for insert and find.
//
// Grounded on the teacher's pairidx/map.go probeSeq + GetView/PutView
// loops (an open-addressing probe over a fixed cluster, terminating on
// either a match or a tombstone-free empty slot) and localidx/hash.go's
// Get/Put loop (linear probe with an explicit probe-bound for-loop rather
// than recursion).
package probe

import "github.com/codewanderer/kmertable/partition"

// Candidate is one step of a probe sequence: the (rank, local index) pair
// spec.md's glossary calls a "probe".
type Candidate struct {
	Rank  int
	Index int
}

// Sequence is the full, precomputed list of candidates a key's hash will
// visit, in order, up to the probe bound spec.md §4.4 requires:
//   - scheme A: p in [0, L_home)
//   - scheme B: p in [0, N)
//
// The sequence is materialized eagerly (rather than generated lazily)
// because both the remote-atomic dispatcher and the RPC dispatcher need
// to hand a full candidate list to a single remote call (see pgas.Runtime
// InsertRPC/FindRPC, which run the whole local probe loop in one round
// trip).
func Sequence(scheme partition.Scheme, h uint64) []Candidate {
	if global, ok := scheme.(globalScheme); ok {
		return globalSequence(global, h)
	}
	return homeSequence(scheme, h)
}

// globalScheme is implemented by partitioners whose probe sequence walks
// the entire table's slot space rather than staying within one rank
// (spec.md §4.1 scheme B).
type globalScheme interface {
	partition.Scheme
	TotalSlots() int
	GlobalToLocal(global int) (rank, index int)
}

func homeSequence(scheme partition.Scheme, h uint64) []Candidate {
	home := scheme.Owner(h)
	l := scheme.LocalLen(home)
	if l == 0 {
		return nil
	}
	seq := make([]Candidate, l)
	base := scheme.InitialIndex(h)
	for p := 0; p < l; p++ {
		seq[p] = Candidate{Rank: home, Index: (base + p) % l}
	}
	return seq
}

func globalSequence(scheme globalScheme, h uint64) []Candidate {
	n := scheme.TotalSlots()
	if n == 0 {
		return nil
	}
	base := int(h % uint64(n))
	seq := make([]Candidate, n)
	for p := 0; p < n; p++ {
		global := (base + p) % n
		rank, index := scheme.GlobalToLocal(global)
		seq[p] = Candidate{Rank: rank, Index: index}
	}
	return seq
}

// RankIndices extracts the bare local indices from a candidate sequence
// that all share the same rank — the shape pgas.Runtime's RPC handlers
// want, since an RPC call is already addressed to one rank and only
// needs its own local probe order. Scheme A's sequence is always
// single-rank; scheme B's is not and must be split with SplitByRank
// before any one candidate range is shipped as a single RPC.
func RankIndices(seq []Candidate) (rank int, indices []int) {
	if len(seq) == 0 {
		return 0, nil
	}
	rank = seq[0].Rank
	indices = make([]int, len(seq))
	for i, c := range seq {
		indices[i] = c.Index
	}
	return rank, indices
}
