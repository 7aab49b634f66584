package partition

import "testing"

func TestSchemeALoadBalance(t *testing.T) {
	s := NewSchemeA(10, 3) // 4,3,3
	want := []int{4, 3, 3}
	for r, w := range want {
		if got := s.LocalLen(r); got != w {
			t.Fatalf("rank %d: LocalLen=%d want %d", r, got, w)
		}
	}
}

func TestSchemeAOwnerAndIndexStability(t *testing.T) {
	s1 := NewSchemeA(8, 2)
	s2 := NewSchemeA(8, 2)

	for h := uint64(0); h < 64; h++ {
		if s1.Owner(h) != s2.Owner(h) {
			t.Fatalf("owner(%d) differs between identically constructed schemes", h)
		}
		if s1.InitialIndex(h) != s2.InitialIndex(h) {
			t.Fatalf("initial_index(%d) differs between identically constructed schemes", h)
		}
	}
}

func TestSchemeASingleRank(t *testing.T) {
	s := NewSchemeA(8, 1)
	for h := uint64(0); h < 16; h++ {
		if s.Owner(h) != 0 {
			t.Fatalf("single-rank owner(%d) = %d, want 0", h, s.Owner(h))
		}
	}
	// S1: hashes 0, 1, 2, 8 all map into the single 8-slot segment.
	if idx := s.InitialIndex(0); idx != 0 {
		t.Fatalf("InitialIndex(0) = %d, want 0", idx)
	}
	if idx := s.InitialIndex(8); idx != 0 {
		t.Fatalf("InitialIndex(8) = %d, want 0 (8 mod 8)", idx)
	}
}

func TestSchemeBGlobalRoundTrip(t *testing.T) {
	s := NewSchemeB(10, 3) // perRank = 4: ranks own [0,4) [4,8) [8,10)
	cases := []struct {
		global   int
		wantRank int
		wantIdx  int
	}{
		{0, 0, 0},
		{3, 0, 3},
		{4, 1, 0},
		{8, 2, 0},
		{9, 2, 1},
	}
	for _, c := range cases {
		r, i := s.GlobalToLocal(c.global)
		if r != c.wantRank || i != c.wantIdx {
			t.Fatalf("GlobalToLocal(%d) = (%d,%d), want (%d,%d)", c.global, r, i, c.wantRank, c.wantIdx)
		}
	}
}

func TestSchemeBLocalLenSumsToN(t *testing.T) {
	s := NewSchemeB(10, 3)
	sum := 0
	for r := 0; r < s.RankCount(); r++ {
		sum += s.LocalLen(r)
	}
	if sum != 10 {
		t.Fatalf("sum of LocalLen = %d, want 10", sum)
	}
}
