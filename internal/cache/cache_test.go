package cache

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte(`{"update_in_progress":false}`)
	c.Put("10", payload)

	got, ts, ok := c.Get("10")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %s", got)
	}
	if time.Since(ts) > time.Minute {
		t.Errorf("timestamp too old: %v", ts)
	}
}

func TestGetSurvivesProcessRestart(t *testing.T) {
	dir := t.TempDir()
	c, _ := New(dir, zap.NewNop())
	c.Put("10", []byte(`{"a":1}`))

	// Fresh instance with an empty LRU must fall back to disk.
	c2, _ := New(dir, zap.NewNop())
	got, _, ok := c2.Get("10")
	if !ok || string(got) != `{"a":1}` {
		t.Fatalf("disk fallback failed: %q %v", got, ok)
	}
}

func TestIsValid(t *testing.T) {
	c, _ := New(t.TempDir(), zap.NewNop())
	if c.IsValid("missing", time.Minute) {
		t.Error("missing key reported valid")
	}
	c.Put("10", []byte(`{}`))
	if !c.IsValid("10", time.Minute) {
		t.Error("fresh entry reported stale")
	}
	if c.IsValid("10", -time.Second) {
		t.Error("entry valid against negative max age")
	}
}

func TestClear(t *testing.T) {
	c, _ := New(t.TempDir(), zap.NewNop())
	c.Put("10", []byte(`{}`))
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := c.Get("10"); ok {
		t.Error("entry survived clear")
	}
}
