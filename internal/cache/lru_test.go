package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a value")
	}

	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}

	// "a" was just used, so inserting "c" evicts "b".
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("k", "v")

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to be dropped")
	}
	if n := c.Size(); n != 0 {
		t.Errorf("size = %d after expired Get", n)
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("k1", "v1")
	c.Set("k2", "v2")

	time.Sleep(20 * time.Millisecond)
	c.Set("k3", "v3")

	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired = %d, want 2", n)
	}
	if n := c.Size(); n != 1 {
		t.Errorf("size = %d, want 1", n)
	}
}

func TestLRUCacheDeleteAndClear(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}

	c.Clear()
	if n := c.Size(); n != 0 {
		t.Errorf("size = %d after Clear", n)
	}
}
