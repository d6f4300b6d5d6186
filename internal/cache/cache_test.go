// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemory(t *testing.T) (*Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemory(time.Hour)
	c.now = clock.Now
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func TestMemoryBasicOperations(t *testing.T) {
	t.Parallel()
	c, _ := newTestMemory(t)

	if err := c.Set("key1", []byte("value1"), time.Minute); err != nil {
		t.Fatal(err)
	}
	value, ok := c.Get("key1")
	if !ok || string(value) != "value1" {
		t.Errorf("Get(key1) = %q, %v; want value1, true", value, ok)
	}
	if _, ok := c.Get("key2"); ok {
		t.Error("expected key2 to be missing")
	}

	c.Delete("key1")
	if _, ok := c.Get("key1"); ok {
		t.Error("expected key1 to be deleted")
	}
	c.Delete("missing")
}

func TestMemoryExpiration(t *testing.T) {
	t.Parallel()
	c, clock := newTestMemory(t)

	_ = c.Set("short", []byte("a"), time.Minute)
	_ = c.Set("long", []byte("b"), time.Hour)

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("short"); !ok {
		t.Error("short entry expired early")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("short"); ok {
		t.Error("short entry should be expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("long entry should still be valid")
	}
}

func TestMemoryCleanup(t *testing.T) {
	t.Parallel()
	c, clock := newTestMemory(t)

	_ = c.Set("a", []byte("1"), time.Minute)
	_ = c.Set("b", []byte("2"), time.Minute)
	_ = c.Set("c", []byte("3"), time.Hour)

	clock.Advance(2 * time.Minute)
	c.cleanup()

	if got := c.Len(); got != 1 {
		t.Errorf("Len() after cleanup = %d, want 1", got)
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	t.Parallel()
	c, _ := newTestMemory(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			for j := 0; j < 100; j++ {
				_ = c.Set(key, []byte{byte(j)}, time.Minute)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if got := c.Len(); got != 20 {
		t.Errorf("Len() = %d, want 20", got)
	}
}

func TestBadgerInMemory(t *testing.T) {
	t.Parallel()

	c, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() error: %v", err)
	}
	defer c.Close()

	if err := c.Set("show-1", []byte(`{"title":"Foo"}`), time.Hour); err != nil {
		t.Fatal(err)
	}
	value, ok := c.Get("show-1")
	if !ok || string(value) != `{"title":"Foo"}` {
		t.Errorf("Get() = %q, %v", value, ok)
	}

	c.Delete("show-1")
	if _, ok := c.Get("show-1"); ok {
		t.Error("expected entry to be deleted")
	}
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	c, err := OpenBadger(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set("k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = OpenBadger(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Errorf("Get() after reopen = %q, %v", v, ok)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	c, err := New(Config{Backend: BackendMemory})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok := c.(*Memory); !ok {
		t.Errorf("New(memory) returned %T", c)
	}
}

type show struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

func TestRemember(t *testing.T) {
	t.Parallel()
	c, clock := newTestMemory(t)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (show, error) {
		calls++
		return show{Title: "Foo", Year: 2020}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Remember(ctx, c, "shows", "show-1", time.Minute, fetch)
		if err != nil {
			t.Fatal(err)
		}
		if got.Title != "Foo" || got.Year != 2020 {
			t.Errorf("Remember() = %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}

	clock.Advance(time.Minute)
	if _, err := Remember(ctx, c, "shows", "show-1", time.Minute, fetch); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times after expiry, want 2", calls)
	}
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	t.Parallel()
	c, _ := newTestMemory(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := Remember(ctx, c, "shows", "k", time.Minute, func(context.Context) (show, error) {
		return show{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Remember() error = %v, want boom", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("failed fetch was cached")
	}
}

func TestRememberDropsUndecodableEntry(t *testing.T) {
	t.Parallel()
	c, _ := newTestMemory(t)
	_ = c.Set("k", []byte("not json"), time.Minute)

	got, err := Remember(context.Background(), c, "shows", "k", time.Minute, func(context.Context) (show, error) {
		return show{Title: "Fresh"}, nil
	})
	if err != nil || got.Title != "Fresh" {
		t.Errorf("Remember() = %+v, %v; want fresh value", got, err)
	}
}
