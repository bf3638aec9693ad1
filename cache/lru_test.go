package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

func result(query string) *schema.RAGSearchResult {
	return &schema.RAGSearchResult{Query: query, TotalResults: 1}
}

func TestCacheSetGet(t *testing.T) {
	c := NewLRU(4, time.Minute)

	c.Set("k1", result("q1"), 0)
	got, ok := c.Get("k1")
	if !ok || got.Query != "q1" {
		t.Fatalf("Get = (%v, %v), want cached result", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get on missing key should miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewLRU(4, time.Minute)

	c.Set("k1", result("q1"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k1"); ok {
		t.Error("expired entry should miss")
	}
}

func TestCacheEvictsOldest(t *testing.T) {
	c := NewLRU(2, time.Minute)

	c.Set("k1", result("q1"), 0)
	c.Set("k2", result("q2"), 0)
	c.Get("k1") // refresh k1 so k2 becomes the eviction candidate
	c.Set("k3", result("q3"), 0)

	if _, ok := c.Get("k2"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("k1"); !ok {
		t.Error("recently used entry should survive eviction")
	}
	if _, ok := c.Get("k3"); !ok {
		t.Error("new entry should be present")
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := NewLRU(4, time.Minute)

	c.Set("k1", result("old"), 0)
	c.Set("k1", result("new"), 0)
	got, ok := c.Get("k1")
	if !ok || got.Query != "new" {
		t.Errorf("Get = (%v, %v), want overwritten value", got, ok)
	}
}

func TestCachePurge(t *testing.T) {
	c := NewLRU(8, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), result("q"), 0)
	}
	c.Purge()
	for i := 0; i < 5; i++ {
		if _, ok := c.Get(fmt.Sprintf("k%d", i)); ok {
			t.Fatalf("entry k%d survived purge", i)
		}
	}
}
