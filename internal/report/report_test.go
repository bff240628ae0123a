package report

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/earshot/earshot/internal/runner"
)

func TestFromOutcome_TrimsStreams(t *testing.T) {
	long := strings.Repeat("x", 500)
	out := &runner.Outcome{
		RunID:  "r1",
		Kind:   runner.ParseFailure,
		Stdout: strings.Repeat("line\n", 100),
		Stderr: long,
	}
	rec := FromOutcome(out)
	if got := strings.Count(rec.Stdout, "\n"); got > storedStreamLines+1 {
		t.Errorf("stored stdout has %d newlines, want <= %d", got, storedStreamLines+1)
	}
	if !strings.HasSuffix(rec.Stdout, "...") {
		t.Errorf("trimmed stdout %q lacks ellipsis", rec.Stdout)
	}
	if len(rec.Stderr) > storedStreamCols+3 {
		t.Errorf("stored stderr is %d chars, want <= %d", len(rec.Stderr), storedStreamCols+3)
	}
}

func TestFromOutcome_CarriesPayload(t *testing.T) {
	out := &runner.Outcome{
		RunID:   "r2",
		Kind:    runner.Success,
		Payload: json.RawMessage(`{"a":1}`),
	}
	rec := FromOutcome(out)
	if rec.ID != "r2" || rec.Kind != runner.Success {
		t.Errorf("record = %+v", rec)
	}
	if string(rec.Payload) != `{"a":1}` {
		t.Errorf("Payload = %q", rec.Payload)
	}
}

func TestDiskStore_RoundTrip(t *testing.T) {
	s := NewDiskStore()
	rec := &RunRecord{ID: "abc", Kind: runner.ProcessFailure, ExitCode: 2, Stderr: "boom"}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load("abc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Kind != runner.ProcessFailure || got.ExitCode != 2 || got.Stderr != "boom" {
		t.Errorf("loaded = %+v", got)
	}
}

func TestDiskStore_LoadMissing(t *testing.T) {
	s := NewDiskStore()
	if _, err := s.Load("never-saved"); err == nil {
		t.Fatal("expected error for missing run")
	}
}

// countingStore records backing-store traffic.
type countingStore struct {
	saves int
	loads int
	data  map[string]*RunRecord
}

func newCountingStore() *countingStore {
	return &countingStore{data: make(map[string]*RunRecord)}
}

func (c *countingStore) Save(rec *RunRecord) error {
	c.saves++
	c.data[rec.ID] = rec
	return nil
}

func (c *countingStore) Load(id string) (*RunRecord, error) {
	c.loads++
	rec, ok := c.data[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec, nil
}

func TestLRUStore_CacheHitSkipsBackingStore(t *testing.T) {
	back := newCountingStore()
	s := NewLRUStore(2, back)

	if err := s.Save(&RunRecord{ID: "a"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Load("a"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.loads != 0 {
		t.Errorf("backing loads = %d, want 0", back.loads)
	}
	if back.saves != 1 {
		t.Errorf("backing saves = %d, want 1", back.saves)
	}
}

func TestLRUStore_EvictsOldestAndReloads(t *testing.T) {
	back := newCountingStore()
	s := NewLRUStore(2, back)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(&RunRecord{ID: id}); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	// "a" was evicted; loading it must hit the backing store.
	if _, err := s.Load("a"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.loads != 1 {
		t.Errorf("backing loads = %d, want 1", back.loads)
	}

	// "c" is still cached.
	if _, err := s.Load("c"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.loads != 1 {
		t.Errorf("backing loads = %d, want 1 after cached hit", back.loads)
	}
}
