package probe

import (
	"testing"

	"github.com/codewanderer/kmertable/partition"
)

// TestSchemeASequenceStaysHome covers spec.md S2: four hash-0 keys on a
// single rank, table size 4, producing probe order 0,1,2,3.
func TestSchemeASequenceStaysHome(t *testing.T) {
	s := partition.NewSchemeA(4, 1)
	seq := Sequence(s, 0)
	if len(seq) != 4 {
		t.Fatalf("len(seq) = %d, want 4", len(seq))
	}
	for p, c := range seq {
		if c.Rank != 0 {
			t.Fatalf("probe %d: rank %d, want 0 (scheme A never leaves home rank)", p, c.Rank)
		}
		if c.Index != p {
			t.Fatalf("probe %d: index %d, want %d", p, c.Index, p)
		}
	}
}

// TestSchemeASequenceWraps covers spec.md S1: hash 8 on an 8-slot single
// rank wraps to index 0.
func TestSchemeASequenceWraps(t *testing.T) {
	s := partition.NewSchemeA(8, 1)
	seq := Sequence(s, 8)
	if seq[0].Index != 0 {
		t.Fatalf("initial index for hash 8 on 8 slots = %d, want 0", seq[0].Index)
	}
}

func TestSchemeBSequenceCrossesRanks(t *testing.T) {
	s := partition.NewSchemeB(8, 2) // perRank=4
	seq := Sequence(s, 3)           // base global slot 3, rank 0
	if len(seq) != 8 {
		t.Fatalf("len(seq) = %d, want 8 (full global bound)", len(seq))
	}
	if seq[0].Rank != 0 || seq[0].Index != 3 {
		t.Fatalf("seq[0] = %+v, want {Rank:0 Index:3}", seq[0])
	}
	if seq[1].Rank != 1 || seq[1].Index != 0 {
		t.Fatalf("seq[1] = %+v, want {Rank:1 Index:0} (wrap into next rank)", seq[1])
	}
}

func TestRankIndices(t *testing.T) {
	seq := []Candidate{{Rank: 2, Index: 5}, {Rank: 2, Index: 6}}
	rank, idx := RankIndices(seq)
	if rank != 2 {
		t.Fatalf("rank = %d, want 2", rank)
	}
	if len(idx) != 2 || idx[0] != 5 || idx[1] != 6 {
		t.Fatalf("idx = %v, want [5 6]", idx)
	}
}
