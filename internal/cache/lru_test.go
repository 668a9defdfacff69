package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRUCache[string], *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s missing", k)
		}
	}
	if c.Size() != 2 {
		t.Errorf("size=%d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "2b")
	clk.t = clk.t.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != "2b" {
		t.Errorf("b=%q ok=%v", v, ok)
	}

	clk.t = clk.t.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("cleaned %d", n)
	}
	if c.Size() != 0 {
		t.Errorf("size=%d", c.Size())
	}
}

func TestLRUZeroTTLNeverExpires(t *testing.T) {
	c, clk := newTestLRU(10, 0)
	c.Set("a", "1")
	clk.t = clk.t.Add(1000 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry without ttl expired")
	}
}

func TestLRUPurgeDeleteAndStats(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	c.Get("a")
	c.Get("b")
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("hits=%d misses=%d", hits, misses)
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("size after purge %d", c.Size())
	}
	c.Set("c", "3")
	if _, ok := c.Get("c"); !ok {
		t.Error("cache unusable after purge")
	}
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int](50, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := fmt.Sprintf("k%d", (g*i)%80)
				c.Set(k, i)
				c.Get(k)
			}
		}(g)
	}
	wg.Wait()
	if c.Size() > 50 {
		t.Fatalf("size %d exceeds max", c.Size())
	}
}

func TestKeyAndNop(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Fatal("part boundaries must survive in the key")
	}
	if Key("overview", "v1") == Key("overview", "v2") {
		t.Fatal("distinct parts must give distinct keys")
	}
	var n Cache[int] = Nop[int]{}
	n.Set("a", 1)
	if _, ok := n.Get("a"); ok || n.Size() != 0 {
		t.Fatal("nop cache stored a value")
	}
}

func TestJanitorRun(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	clk.t = clk.t.Add(2 * time.Minute)

	j := NewJanitor(time.Millisecond, nil)
	j.Register(c)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for c.Size() != 0 {
		select {
		case <-deadline:
			t.Fatal("janitor never cleaned")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
