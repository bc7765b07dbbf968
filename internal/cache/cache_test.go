package cache

import (
	"errors"
	"strconv"
	"sync"
	"testing"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](0, nil)

	if _, ok := c.Get("a"); ok {
		t.Error("Get on empty cache found a value")
	}
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	if v, ok := c.Get("a"); !ok || v != 3 {
		t.Errorf("Get(a) = %v, %v, want 3, true", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := New[string, int](3, func(k string, _ int) { evicted = append(evicted, k) })

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Get("a") // b is now the oldest
	c.Set("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s evicted", k)
		}
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}
	if s := c.Stats(); s.Evictions != 1 || s.Len != 3 || s.Capacity != 3 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestCacheGetOrCreate(t *testing.T) {
	c := New[Key, string](8, nil)
	k := KeyOf("fn fs_main", "x")

	calls := 0
	create := func() (string, error) {
		calls++
		return "compiled", nil
	}
	for range 3 {
		v, err := c.GetOrCreate(k, create)
		if err != nil || v != "compiled" {
			t.Fatalf("GetOrCreate() = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	errCompile := errors.New("bad shader")
	bad := KeyOf("broken")
	if _, err := c.GetOrCreate(bad, func() (string, error) { return "", errCompile }); !errors.Is(err, errCompile) {
		t.Errorf("GetOrCreate() error = %v", err)
	}
	if _, ok := c.Get(bad); ok {
		t.Error("failed create was cached")
	}

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 3 {
		t.Errorf("hits/misses = %d/%d, want 2/3", s.Hits, s.Misses)
	}
	if r := s.HitRate(); r != 0.4 {
		t.Errorf("HitRate() = %v, want 0.4", r)
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	var evicted int
	c := New[int, int](0, func(int, int) { evicted++ })
	for i := range 5 {
		c.Set(i, i)
	}
	if !c.Delete(2) || c.Delete(2) {
		t.Error("Delete(2) should succeed exactly once")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	if evicted != 5 {
		t.Errorf("onEvict called %d times, want 5", evicted)
	}
}

func TestKeyOf(t *testing.T) {
	if KeyOf("ab", "c") == KeyOf("a", "bc") {
		t.Error("KeyOf does not separate parts")
	}
	if KeyOf("x") != KeyOf("x") {
		t.Error("KeyOf is not deterministic")
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := New[string, int](16, nil)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				k := strconv.Itoa((g + i) % 32)
				_, _ = c.GetOrCreate(k, func() (int, error) { return i, nil })
			}
		}()
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Errorf("Len() = %d, want <= 16", c.Len())
	}
}

func BenchmarkCacheGet(b *testing.B) {
	c := New[string, int](1000, nil)
	for i := range 100 {
		c.Set(strconv.Itoa(i), i)
	}
	b.ResetTimer()
	for range b.N {
		c.Get("50")
	}
}
