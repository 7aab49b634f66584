// Command kmertable-bulkload drives the distributed k-mer table through a
// full bulk-load cycle: construct, insert every record from a rank's input
// shard, barrier, verify every inserted record is findable, then tear
// down.
//
// This binary is not part of the table's specification — spec.md §6
// explicitly scopes the CLI/files/env surface out — but it is the ambient
// driver a complete repository needs, grounded on the teacher's main.go
// phased orchestration (bootstrap → memory optimization → production) and
// rewired from "load pools from SQLite, stream a websocket, route ticks"
// to "load one k-mer shard per rank, bulk-insert, barrier, verify".
package main

import (
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/codewanderer/kmertable/kmer"
	"github.com/codewanderer/kmertable/logx"
	"github.com/codewanderer/kmertable/pgas"
	"github.com/codewanderer/kmertable/table"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sugawarayuuta/sonnet"
)

// shardManifest describes, per rank, which input shard file to load.
// Decoded with sonnet (the teacher's JSON codec of choice, see
// syncharvester.go's sonnet.Unmarshal calls) rather than encoding/json.
type shardManifest struct {
	Shards []string `json:"shards"`
}

func main() {
	totalSlots := flag.Int("slots", 1<<20, "total table slot count (N)")
	manifestPath := flag.String("manifest", "", "JSON manifest listing one input shard path per rank")
	checkpoint := flag.String("checkpoint", "", "optional SQLite file to record final occupancy counts into")
	verifyChecksum := flag.Bool("verify-checksum", false, "BLAKE2b-checksum each shard before inserting it")
	schemeB := flag.Bool("scheme-b", false, "use the slot-partitioned scheme instead of the hash-partitioned default")
	pin := flag.Bool("pin", false, "pin each rank's handler goroutine to a CPU core")
	flag.Parse()

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "usage: kmertable-bulkload -manifest manifest.json [flags]")
		os.Exit(2)
	}

	manifest, err := loadManifest(*manifestPath)
	if err != nil {
		logx.Drop("MANIFEST", err)
		os.Exit(1)
	}
	ranks := len(manifest.Shards)
	if ranks == 0 {
		logx.Drop("MANIFEST", fmt.Errorf("manifest lists no shards"))
		os.Exit(1)
	}

	cfg := table.Config{
		TotalSlots: *totalSlots,
		Ranks:      ranks,
		SchemeB:    *schemeB,
		PinRanks:   *pin,
	}

	logx.Note("INIT", fmt.Sprintf("ranks=%d slots=%d scheme_b=%v", ranks, cfg.TotalSlots, cfg.SchemeB))

	segs := table.BuildSegments(cfg)
	rt := pgas.New(segs, 64, cfg.PinRanks)

	var wg sync.WaitGroup
	wg.Add(ranks)
	inserted := make([]int, ranks)
	rejected := make([]int, ranks)
	for r := 0; r < ranks; r++ {
		go func(r int) {
			defer wg.Done()
			runRank(cfg, r, rt, manifest.Shards[r], *verifyChecksum, &inserted[r], &rejected[r])
		}(r)
	}
	wg.Wait()

	total, rej := 0, 0
	for r := 0; r < ranks; r++ {
		total += inserted[r]
		rej += rejected[r]
	}
	logx.Note("DONE", fmt.Sprintf("inserted=%d rejected=%d", total, rej))

	if *checkpoint != "" {
		if err := writeCheckpoint(*checkpoint, inserted); err != nil {
			logx.Drop("CHECKPOINT", err)
		}
	}
}

func loadManifest(path string) (shardManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return shardManifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	var m shardManifest
	if err := sonnet.Unmarshal(data, &m); err != nil {
		return shardManifest{}, fmt.Errorf("decoding manifest: %w", err)
	}
	return m, nil
}

// runRank executes one rank's full bulk-load lifecycle: construct, insert
// its shard, barrier, verify, destroy. It is run as a goroutine per rank
// by main, standing in for "one OS process per rank" in this in-process
// simulation (see pgas.New's doc comment).
func runRank(cfg table.Config, self int, rt *pgas.Runtime, shardPath string, verify bool, inserted, rejected *int) {
	tbl, err := table.Construct(cfg, self, rt)
	if err != nil {
		logx.Drop(fmt.Sprintf("rank %d construct", self), err)
		return
	}

	records, err := loadShard(shardPath, verify)
	if err != nil {
		logx.Drop(fmt.Sprintf("rank %d load shard", self), err)
		tbl.Destroy()
		return
	}

	committed := make([]kmer.Pair, 0, len(records))
	for _, rec := range records {
		if tbl.Insert(rec) {
			*inserted++
			committed = append(committed, rec)
		} else {
			*rejected++
		}
	}

	tbl.Barrier()

	for _, rec := range committed {
		if _, found := tbl.Find(rec.Key); !found {
			logx.Note(fmt.Sprintf("rank %d verify", self), "a committed record failed to round-trip through find")
			break
		}
	}

	tbl.Destroy()
}

// loadShard reads a rank's input shard: one k-mer per line, as a 64-hex-
// character packed key followed by a 2-character extension payload.
// Sequence decoding from FASTA-like input is spec.md's "assumed given"
// collaborator (§1); this is the minimal stand-in needed to drive the
// table end to end.
func loadShard(path string, verify bool) ([]kmer.Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shard %s: %w", path, err)
	}
	if verify {
		sum := blake2b.Sum256(data)
		logx.Note("SHARD_CHECKSUM", fmt.Sprintf("%s %x", path, sum))
	}

	var recs []kmer.Pair
	lines := splitLines(data)
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("shard %s: %w", path, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

func parseLine(line []byte) (kmer.Pair, error) {
	// Trim a trailing carriage return for files with CRLF endings.
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	if len(line) < kmer.KeyBytes*2+kmer.ExtBytes {
		return kmer.Pair{}, fmt.Errorf("malformed shard line %q", line)
	}
	var rec kmer.Pair
	if _, err := hex.Decode(rec.Key[:], line[:kmer.KeyBytes*2]); err != nil {
		return kmer.Pair{}, fmt.Errorf("decoding key: %w", err)
	}
	copy(rec.Ext[:], line[kmer.KeyBytes*2:kmer.KeyBytes*2+kmer.ExtBytes])
	return rec, nil
}

// writeCheckpoint dumps per-rank inserted counts to a SQLite file for
// postmortem inspection, using the exact database/sql + go-sqlite3
// driver-registration idiom the teacher uses in main.go's openDatabase.
func writeCheckpoint(path string, inserted []int) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening checkpoint db: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS rank_occupancy (rank INTEGER PRIMARY KEY, inserted INTEGER)`); err != nil {
		return fmt.Errorf("creating checkpoint table: %w", err)
	}
	for r, n := range inserted {
		if _, err := db.Exec(`INSERT OR REPLACE INTO rank_occupancy (rank, inserted) VALUES (?, ?)`, r, n); err != nil {
			return fmt.Errorf("writing checkpoint row: %w", err)
		}
	}
	return nil
}
