package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hercule-app/hercule/internal/core"
)

func testResult(url string) core.AnalysisResult {
	return core.AnalysisResult{
		Score:    64,
		Summary:  "Moderate concerns around third-party sharing.",
		RedFlags: []string{"Extensive third-party data sharing mentioned"},
		UserActionItems: []core.ActionItem{
			{Text: "Review privacy settings", Priority: core.PriorityHigh},
		},
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		URL:       url,
	}
}

func TestJSONStore_PutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	hash := core.HashPolicyText("some policy")
	result := testResult("https://example.com/privacy")

	if err := store.Put(hash, result); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	entry, ok := store.Get(hash)
	if !ok {
		t.Fatal("Get() miss, want hit")
	}
	if entry.Result.Score != result.Score || entry.Result.Summary != result.Summary {
		t.Errorf("Get() result = %+v, want %+v", entry.Result, result)
	}
	if entry.TextHash != hash {
		t.Errorf("TextHash = %q, want %q", entry.TextHash, hash)
	}
}

func TestJSONStore_MissOnUnknownHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	if _, ok := store.Get("deadbeef"); ok {
		t.Error("Get() on unknown hash should miss")
	}
}

func TestJSONStore_HitDoesNotRefreshTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	path := filepath.Join(t.TempDir(), "cache.json")
	store, err := NewJSONStore(path, WithClock(clock))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	hash := core.HashPolicyText("policy")
	if err := store.Put(hash, testResult("")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	created := now

	// Advance the clock and read twice. Expiry is absolute: reading must not
	// slide the window.
	now = now.Add(29 * 24 * time.Hour)
	first, ok := store.Get(hash)
	if !ok {
		t.Fatal("entry should still be valid at day 29")
	}
	second, _ := store.Get(hash)
	if !first.Timestamp.Equal(created) || !second.Timestamp.Equal(created) {
		t.Error("Get() must not change the entry timestamp")
	}

	now = now.Add(2 * 24 * time.Hour)
	if _, ok := store.Get(hash); ok {
		t.Error("entry should be absent past the TTL, despite recent reads")
	}
}

func TestJSONStore_TTLExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	path := filepath.Join(t.TempDir(), "cache.json")
	store, err := NewJSONStore(path, WithTTL(time.Hour), WithClock(clock))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	hash := core.HashPolicyText("policy")
	if err := store.Put(hash, testResult("")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, ok := store.Get(hash); !ok {
		t.Error("entry should be valid just before the TTL")
	}

	now = now.Add(time.Minute)
	if _, ok := store.Get(hash); ok {
		t.Error("entry at exactly the TTL should be absent")
	}

	// A new Put supersedes the expired entry.
	if err := store.Put(hash, testResult("https://example.com")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	entry, ok := store.Get(hash)
	if !ok {
		t.Fatal("superseding entry should be a hit")
	}
	if !entry.Timestamp.Equal(now) {
		t.Errorf("superseding entry timestamp = %v, want %v", entry.Timestamp, now)
	}
	if store.Size() != 1 {
		t.Errorf("Size() = %d, want 1 after supersede", store.Size())
	}
}

func TestJSONStore_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	hash := core.HashPolicyText("persistent policy")
	if err := store.Put(hash, testResult("https://example.com/terms")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	reopened, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() reopen error = %v", err)
	}
	entry, ok := reopened.Get(hash)
	if !ok {
		t.Fatal("entry should survive a restart")
	}
	if entry.Result.URL != "https://example.com/terms" {
		t.Errorf("restored URL = %q", entry.Result.URL)
	}
}

func TestJSONStore_CorruptFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() on corrupt file error = %v", err)
	}
	if store.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after corrupt load", store.Size())
	}
}

func TestJSONStore_PersistedLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	hash := core.HashPolicyText("layout policy")
	if err := store.Put(hash, testResult("")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var raw map[string]struct {
		Result    json.RawMessage `json:"result"`
		Timestamp time.Time       `json:"timestamp"`
		TextHash  string          `json:"text_hash"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("persisted file is not a hash map: %v", err)
	}
	got, ok := raw[hash]
	if !ok {
		t.Fatalf("persisted map missing hash key %q", hash)
	}
	if got.TextHash != hash {
		t.Errorf("persisted text_hash = %q, want %q", got.TextHash, hash)
	}
	if len(got.Result) == 0 {
		t.Error("persisted entry missing result")
	}
}

func TestJSONStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	if err := store.Put("h1", testResult("")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if store.Size() != 0 {
		t.Errorf("Size() = %d after Clear, want 0", store.Size())
	}
}
