package cyclelog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

func TestWriter_roundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	recs := []Record{
		{Time: time.Now().UTC(), Cycle: 1, Mode: "harvest", Action: "mine", Scores: map[string]float64{"mine": 100}, DurationMs: 12},
		{Time: time.Now().UTC(), Cycle: 2, Err: "no viable mode", FailStreak: 1, DurationMs: 3},
	}
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "cycles-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("log files = %v (err %v), want exactly one", matches, err)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec.IOReadCloser())
	n := 0
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line %d: %v", n, err)
		}
		if r.Cycle != recs[n].Cycle {
			t.Fatalf("line %d cycle = %d, want %d", n, r.Cycle, recs[n].Cycle)
		}
		n++
	}
	if n != len(recs) {
		t.Fatalf("decoded %d records, want %d", n, len(recs))
	}
}
