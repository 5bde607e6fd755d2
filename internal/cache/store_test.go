package cache

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"
)

type payload struct {
	Text string `json:"text"`
}

func newTestStore(t *testing.T, budget int64) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), budget)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestStoreRoundtrip(t *testing.T) {
	s := newTestStore(t, 0)
	if err := s.Save("k1", payload{Text: "hello"}, time.Hour); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw := s.Get("k1")
	if raw == nil {
		t.Fatal("expected hit")
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Text != "hello" {
		t.Fatalf("payload = %q, want hello", p.Text)
	}
}

func TestStoreShortKeys(t *testing.T) {
	s := newTestStore(t, 0)
	now := time.Now()
	s.now = func() time.Time { return now }

	// Keys shorter than the log abbreviation length must work everywhere:
	// save, hit, expiry, and eviction.
	for _, key := range []string{"a", "k1", "1234567", "12345678"} {
		if err := s.Save(key, payload{Text: key}, time.Hour); err != nil {
			t.Fatalf("Save %q: %v", key, err)
		}
		if s.Get(key) == nil {
			t.Fatalf("expected hit for %q", key)
		}
	}

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	if s.Get("k1") != nil {
		t.Fatal("expired short key must miss")
	}

	s.now = func() time.Time { return now }
	s.budget = 1
	if err := s.Save("b", payload{Text: "b"}, time.Hour); err != nil {
		t.Fatalf("Save under tiny budget: %v", err)
	}
}

func TestStoreRecordedSizeMatchesDisk(t *testing.T) {
	s := newTestStore(t, 0)
	if err := s.Save("k1", payload{Text: "hello"}, time.Hour); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fi, err := os.Stat(s.entryPath("k1"))
	if err != nil {
		t.Fatalf("stat entry: %v", err)
	}
	entries := s.List()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].SizeBytes != fi.Size() {
		t.Fatalf("recorded size %d != file size %d", entries[0].SizeBytes, fi.Size())
	}
	if got := s.RecomputeStats().TotalSizeBytes; got != fi.Size() {
		t.Fatalf("total size %d != file size %d", got, fi.Size())
	}
}

func TestStoreMissAndHitCounters(t *testing.T) {
	s := newTestStore(t, 0)
	if s.Get("absent") != nil {
		t.Fatal("expected miss")
	}
	if err := s.Save("k1", payload{Text: "x"}, time.Hour); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.Get("k1") == nil {
		t.Fatal("expected hit")
	}

	stats := s.RecomputeStats()
	if stats.HitCount != 1 || stats.MissCount != 1 {
		t.Fatalf("hit/miss = %d/%d, want 1/1", stats.HitCount, stats.MissCount)
	}
	if stats.HitRate != 0.5 {
		t.Fatalf("hit rate = %f, want 0.5", stats.HitRate)
	}
	if stats.TotalEntries != 1 {
		t.Fatalf("entries = %d, want 1", stats.TotalEntries)
	}
}

func TestStoreExpiry(t *testing.T) {
	s := newTestStore(t, 0)
	now := time.Now()
	s.now = func() time.Time { return now }

	if err := s.Save("k1", payload{Text: "x"}, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.now = func() time.Time { return now.Add(2 * time.Minute) }

	if s.Get("k1") != nil {
		t.Fatal("expired entry must miss")
	}
	// Entry file deleted on expiry.
	if got := len(s.List()); got != 0 {
		t.Fatalf("expired entry still listed: %d", got)
	}
}

func TestStoreAccessBumpsCounters(t *testing.T) {
	s := newTestStore(t, 0)
	if err := s.Save("k1", payload{Text: "x"}, time.Hour); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Get("k1")
	s.Get("k1")

	entries := s.List()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].AccessCount != 2 {
		t.Fatalf("access count = %d, want 2", entries[0].AccessCount)
	}
}

func TestStoreLRUEviction(t *testing.T) {
	s := newTestStore(t, 0)
	base := time.Now()
	clock := base
	s.now = func() time.Time { return clock }

	big := payload{Text: strings.Repeat("x", 700)}
	for i, key := range []string{"old", "mid", "new"} {
		clock = base.Add(time.Duration(i) * time.Minute)
		if err := s.Save(key, big, time.Hour); err != nil {
			t.Fatalf("Save %s: %v", key, err)
		}
	}

	// Touch the oldest so "mid" becomes the LRU victim.
	clock = base.Add(10 * time.Minute)
	if s.Get("old") == nil {
		t.Fatal("expected hit on old")
	}

	// Cap the budget at the current footprint: the next save must evict
	// exactly one entry.
	s.budget = s.RecomputeStats().TotalSizeBytes

	clock = base.Add(11 * time.Minute)
	if err := s.Save("extra", big, time.Hour); err != nil {
		t.Fatalf("Save extra: %v", err)
	}

	if s.Get("mid") != nil {
		t.Fatal("mid should have been evicted as least recently used")
	}
	for _, key := range []string{"old", "new", "extra"} {
		if s.Get(key) == nil {
			t.Fatalf("%s must survive eviction", key)
		}
	}

	stats := s.RecomputeStats()
	if stats.TotalSizeBytes > s.budget {
		t.Fatalf("size %d exceeds budget %d", stats.TotalSizeBytes, s.budget)
	}
}

func TestStoreClear(t *testing.T) {
	s := newTestStore(t, 0)
	for _, key := range []string{"a", "b"} {
		if err := s.Save(key, payload{Text: key}, time.Hour); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats := s.RecomputeStats()
	if stats.TotalEntries != 0 || stats.TotalSizeBytes != 0 {
		t.Fatalf("stats not reset: %+v", stats)
	}
}

func TestStoreCorruptEntryQuarantined(t *testing.T) {
	s := newTestStore(t, 0)
	if err := s.Save("k1", payload{Text: "x"}, time.Hour); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := writeAtomic(s.entryPath("k1"), []byte("{not json")); err != nil {
		t.Fatalf("corrupt write: %v", err)
	}

	if s.Get("k1") != nil {
		t.Fatal("corrupt entry must miss")
	}
	// Quarantined: the file is gone and a re-read misses cleanly.
	if s.Get("k1") != nil {
		t.Fatal("quarantined entry must stay gone")
	}
}
