package pgas

import (
	"testing"

	"github.com/codewanderer/kmertable/kmer"
	"github.com/codewanderer/kmertable/segment"
)

func mkKey(b byte) kmer.Key {
	var k kmer.Key
	k[0] = b
	return k
}

func TestRemoteAtomicClaimAndRead(t *testing.T) {
	segs := []*segment.Segment{segment.New(4), segment.New(4)}
	rt := New(segs, 8, false)
	defer rt.Shutdown()

	rec := kmer.Pair{Key: mkKey(9)}
	if !rt.RemoteClaim(1, 0) {
		t.Fatal("remote claim should succeed on empty slot")
	}
	rt.RemoteWriteRecord(1, 0, rec)

	if rt.RemoteLoadUsed(1, 0) != segment.Occupied {
		t.Fatal("remote slot should read occupied")
	}
	got := rt.RemoteReadRecord(1, 0)
	if !got.Key.Equal(rec.Key) {
		t.Fatalf("remote record mismatch: got %v want %v", got.Key, rec.Key)
	}
}

func TestInsertRPCAndFindRPC(t *testing.T) {
	segs := []*segment.Segment{segment.New(4)}
	rt := New(segs, 8, false)
	defer rt.Shutdown()

	rec := kmer.Pair{Key: mkKey(3)}
	fut, err := rt.InsertRPC(0, []int{0, 1, 2, 3}, rec)
	if err != nil {
		t.Fatalf("InsertRPC error: %v", err)
	}
	if !fut.Wait().Claimed() {
		t.Fatal("InsertRPC should have claimed a slot")
	}

	findFut, err := rt.FindRPC(0, []int{0, 1, 2, 3}, rec.Key)
	if err != nil {
		t.Fatalf("FindRPC error: %v", err)
	}
	resp := findFut.Wait()
	if !resp.Found() {
		t.Fatal("FindRPC should find the inserted record")
	}
	if !resp.Record().Key.Equal(rec.Key) {
		t.Fatal("FindRPC returned the wrong record")
	}
}

func TestRPCAfterShutdownErrors(t *testing.T) {
	segs := []*segment.Segment{segment.New(2)}
	rt := New(segs, 4, false)
	rt.Barrier()
	rt.Shutdown()

	if _, err := rt.InsertRPC(0, []int{0}, kmer.Pair{}); err != ErrRuntimeClosed {
		t.Fatalf("InsertRPC after shutdown: err = %v, want ErrRuntimeClosed", err)
	}
}
