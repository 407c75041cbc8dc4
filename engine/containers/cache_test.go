package containers

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestCacheGetOrCreateCreatesOnce(t *testing.T) {
	c := NewCache[string, *int](16, StringHasher)

	created := 0
	create := func() (*int, error) {
		created++
		v := created
		return &v, nil
	}

	first, err := c.GetOrCreate("key", create)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	second, err := c.GetOrCreate("key", create)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if created != 1 {
		t.Errorf("create ran %d times, want 1", created)
	}
	if first != second {
		t.Error("GetOrCreate returned different instances for the same key")
	}
}

func TestCacheGetOrCreateErrorNotCached(t *testing.T) {
	c := NewCache[string, int](16, StringHasher)

	wantErr := errors.New("create failed")
	if _, err := c.GetOrCreate("key", func() (int, error) {
		return 0, wantErr
	}); !errors.Is(err, wantErr) {
		t.Fatalf("GetOrCreate = %v, want %v", err, wantErr)
	}

	// The failed entry must not poison the key.
	got, err := c.GetOrCreate("key", func() (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if got != 7 {
		t.Errorf("GetOrCreate = %d, want 7", got)
	}
}

func TestCacheGetMissAndHit(t *testing.T) {
	c := NewCache[string, int](16, StringHasher)

	if _, ok := c.Get("absent"); ok {
		t.Error("Get on empty cache reported a hit")
	}
	if _, err := c.GetOrCreate("present", func() (int, error) { return 1, nil }); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if v, ok := c.Get("present"); !ok || v != 1 {
		t.Errorf("Get = (%d, %t), want (1, true)", v, ok)
	}

	if c.Hits() == 0 {
		t.Error("Hits = 0 after a hit")
	}
	if c.Misses() == 0 {
		t.Error("Misses = 0 after a miss")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := NewCache[string, int](16, StringHasher)

	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("key-%d", i)
		if _, err := c.GetOrCreate(key, func() (int, error) { return i, nil }); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
	}
	if c.Len() != 8 {
		t.Fatalf("Len = %d, want 8", c.Len())
	}

	if !c.Delete("key-0") {
		t.Error("Delete of existing key = false")
	}
	if c.Delete("key-0") {
		t.Error("Delete of removed key = true")
	}
	if c.Len() != 7 {
		t.Errorf("Len = %d, want 7", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
}

func TestCacheConcurrentGetOrCreateSameKey(t *testing.T) {
	c := NewCache[string, *int](16, StringHasher)

	const goroutines = 32
	results := make([]*int, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCreate("shared", func() (*int, error) {
				n := 1
				return &n, nil
			})
			if err != nil {
				t.Errorf("GetOrCreate failed: %v", err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent GetOrCreate returned different instances")
		}
	}
}
