package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUCacheBasicOperations(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("empty cache returned a hit")
	}

	c.Set("a", "first")
	got, found := c.Get("a")
	if !found || got != "first" {
		t.Errorf("Get(a) = %q/%v, want first/true", got, found)
	}

	c.Set("a", "second")
	got, _ = c.Get("a")
	if got != "second" {
		t.Errorf("overwrite: got %q, want second", got)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d, want 1", c.Size())
	}

	c.Delete("a")
	if _, found := c.Get("a"); found {
		t.Error("deleted key still present")
	}
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	// Touch k0 so k1 becomes the eviction candidate.
	c.Get("k0")
	c.Set("k3", 3)

	if _, found := c.Get("k1"); found {
		t.Error("least recently used entry survived eviction")
	}
	for _, key := range []string{"k0", "k2", "k3"} {
		if _, found := c.Get(key); !found {
			t.Errorf("expected %s to survive eviction", key)
		}
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("k", 1)
	time.Sleep(20 * time.Millisecond)

	if _, found := c.Get("k"); found {
		t.Error("expired entry returned a hit")
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)

	removed := c.CleanExpired()
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if c.Size() != 1 {
		t.Errorf("size after clean = %d, want 1", c.Size())
	}
}
