package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"aigenflow/internal/logging"
)

// Entry is one cached provider response on disk.
type Entry struct {
	Key          string          `json:"key"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
	AccessCount  int             `json:"access_count"`
	LastAccessed time.Time       `json:"last_accessed"`
	SizeBytes    int64           `json:"size_bytes"`
}

// Stats are the aggregate cache counters persisted in stats.json.
type Stats struct {
	TotalEntries   int     `json:"total_entries"`
	TotalSizeBytes int64   `json:"total_size_bytes"`
	HitCount       int     `json:"hit_count"`
	MissCount      int     `json:"miss_count"`
	HitRate        float64 `json:"hit_rate"`
}

// Store is an on-disk content-addressed cache with TTL expiry and LRU
// eviction under a byte budget. Writes are atomic (temp then rename); a
// corrupt entry is quarantined on next access and counted as a miss.
type Store struct {
	mu     sync.Mutex
	root   string
	budget int64
	stats  Stats
	now    func() time.Time
}

// NewStore opens (or creates) a cache rooted at dir with the given byte
// budget.
func NewStore(dir string, budgetBytes int64) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "responses"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	s := &Store{root: dir, budget: budgetBytes, now: time.Now}
	s.loadStats()
	return s, nil
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.root, "responses", key+".json")
}

// shortKey abbreviates a key for log lines. Keys are normally 64-hex
// digests but the store accepts arbitrary strings.
func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}

func (s *Store) statsPath() string {
	return filepath.Join(s.root, "stats.json")
}

func (s *Store) loadStats() {
	data, err := os.ReadFile(s.statsPath())
	if err != nil {
		return
	}
	var st Stats
	if json.Unmarshal(data, &st) == nil {
		s.stats = st
	}
}

func (s *Store) saveStatsLocked() {
	total := s.stats.HitCount + s.stats.MissCount
	if total > 0 {
		s.stats.HitRate = float64(s.stats.HitCount) / float64(total)
	} else {
		s.stats.HitRate = 0
	}
	data, err := json.MarshalIndent(s.stats, "", "  ")
	if err != nil {
		return
	}
	if err := writeAtomic(s.statsPath(), data); err != nil {
		logging.CacheDebug("stats write failed: %v", err)
	}
}

// writeAtomic writes data via a temp file and rename so readers never see a
// torn entry.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Save writes a fresh entry and evicts LRU entries until the store is back
// under its byte budget.
func (s *Store) Save(key string, payload any, ttl time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := Entry{
		Key:          key,
		Payload:      raw,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
	}
	// size_bytes participates in the serialized form, so remeasure until
	// the recorded size matches the bytes actually written.
	data, err := json.MarshalIndent(&entry, "", "  ")
	if err != nil {
		return err
	}
	for int64(len(data)) != entry.SizeBytes {
		entry.SizeBytes = int64(len(data))
		data, err = json.MarshalIndent(&entry, "", "  ")
		if err != nil {
			return err
		}
	}

	path := s.entryPath(key)
	prevSize := int64(0)
	if prev, err := s.readEntry(path); err == nil {
		prevSize = prev.SizeBytes
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}

	if prevSize > 0 {
		s.stats.TotalSizeBytes -= prevSize
	} else {
		s.stats.TotalEntries++
	}
	s.stats.TotalSizeBytes += entry.SizeBytes
	s.evictLocked()
	s.saveStatsLocked()
	logging.CacheDebug("saved %s (%d bytes, ttl %s)", shortKey(key), entry.SizeBytes, ttl)
	return nil
}

// Get returns the payload for key, or nil on miss. Expired or corrupt
// entries are deleted and counted as misses. A hit bumps access counters
// and rewrites the entry atomically.
func (s *Store) Get(key string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.entryPath(key)
	entry, err := s.readEntry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			// Corrupt entry: quarantine.
			s.deleteLocked(key)
		}
		s.stats.MissCount++
		s.saveStatsLocked()
		return nil
	}

	if s.now().After(entry.ExpiresAt) {
		s.deleteLocked(key)
		s.stats.MissCount++
		s.saveStatsLocked()
		logging.CacheDebug("expired %s", shortKey(key))
		return nil
	}

	entry.AccessCount++
	entry.LastAccessed = s.now()
	if data, err := json.MarshalIndent(entry, "", "  "); err == nil {
		if err := writeAtomic(path, data); err != nil {
			logging.CacheDebug("access rewrite failed for %s: %v", shortKey(key), err)
		}
	}
	s.stats.HitCount++
	s.saveStatsLocked()
	return entry.Payload
}

func (s *Store) readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt entry: %w", err)
	}
	return &entry, nil
}

// Delete removes an entry and adjusts counters by its recorded size.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(key)
	s.saveStatsLocked()
}

func (s *Store) deleteLocked(key string) {
	path := s.entryPath(key)
	size := int64(0)
	if entry, err := s.readEntry(path); err == nil {
		size = entry.SizeBytes
	}
	if err := os.Remove(path); err != nil {
		return
	}
	s.stats.TotalEntries--
	if s.stats.TotalEntries < 0 {
		s.stats.TotalEntries = 0
	}
	s.stats.TotalSizeBytes -= size
	if s.stats.TotalSizeBytes < 0 {
		s.stats.TotalSizeBytes = 0
	}
}

// Clear removes all entries and resets counters.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, "responses")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		_ = os.Remove(filepath.Join(dir, e.Name()))
	}
	s.stats = Stats{}
	s.saveStatsLocked()
	return nil
}

// List enumerates non-expired entries ordered by last access (newest
// first), falling back to creation time.
func (s *Store) List() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(false)
}

// listLocked scans the responses directory. includeExpired keeps expired
// entries (used by eviction, which removes them anyway).
func (s *Store) listLocked(includeExpired bool) []*Entry {
	dir := filepath.Join(s.root, "responses")
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	now := s.now()
	var out []*Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := s.readEntry(filepath.Join(dir, f.Name()))
		if err != nil {
			continue
		}
		if !includeExpired && now.After(entry.ExpiresAt) {
			continue
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := accessTime(out[i]), accessTime(out[j])
		if a.Equal(b) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return a.After(b)
	})
	return out
}

func accessTime(e *Entry) time.Time {
	if e.LastAccessed.IsZero() {
		return e.CreatedAt
	}
	return e.LastAccessed
}

// evictLocked deletes oldest-by-last-access entries (ties broken by oldest
// creation) until the total size is within budget.
func (s *Store) evictLocked() {
	if s.budget <= 0 {
		return
	}
	for s.stats.TotalSizeBytes > s.budget {
		entries := s.listLocked(true)
		if len(entries) == 0 {
			return
		}
		victim := entries[len(entries)-1]
		logging.Cache("evicting %s (last access %s)", shortKey(victim.Key), accessTime(victim).Format(time.RFC3339))
		s.deleteLocked(victim.Key)
	}
}

// RecomputeStats rescans the directory and returns fresh aggregate
// counters. Hit/miss counters are preserved; entry counts and byte totals
// converge to the truth on disk.
func (s *Store) RecomputeStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.listLocked(true)
	s.stats.TotalEntries = len(entries)
	var total int64
	for _, e := range entries {
		total += e.SizeBytes
	}
	s.stats.TotalSizeBytes = total
	s.saveStatsLocked()
	return s.stats
}
