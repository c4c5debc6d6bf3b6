package status

import (
	"sync"
	"testing"
)

func TestMetricMapGetReturnsStablePointer(t *testing.T) {
	reg := NewRegistry()

	first := reg.Ints.Get("clock.frames")
	second := reg.Ints.Get("clock.frames")

	if first != second {
		t.Error("Get returned different pointers for the same key")
	}

	first.Store(42)
	if second.Load() != 42 {
		t.Errorf("Expected 42 through cached pointer, got %d", second.Load())
	}
}

func TestMetricMapRangeSortedOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Floats.Get("clock.timewarp")
	reg.Floats.Get("clock.accumulated_sec")
	reg.Floats.Get("clock.frame_step")

	var keys []string
	reg.Floats.Range(func(key string, ptr *AtomicFloat) {
		keys = append(keys, key)
	})

	expected := []string{"clock.accumulated_sec", "clock.frame_step", "clock.timewarp"}
	if len(keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %d", len(expected), len(keys))
	}
	for i, k := range expected {
		if keys[i] != k {
			t.Errorf("Key %d = %q, want %q (sorted order)", i, keys[i], k)
		}
	}
}

func TestAtomicFloatRoundTrip(t *testing.T) {
	var f AtomicFloat

	if f.Get() != 0 {
		t.Errorf("Zero value = %v, want 0", f.Get())
	}

	f.Set(16.67)
	if f.Get() != 16.67 {
		t.Errorf("Get = %v, want 16.67", f.Get())
	}

	f.Set(-1.5)
	if f.Get() != -1.5 {
		t.Errorf("Get = %v, want -1.5", f.Get())
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup

	// Concurrent registration and writes on overlapping keys
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				reg.Ints.Get("clock.frames").Add(1)
				reg.Floats.Get("clock.timewarp").Set(float64(j))
				reg.Bools.Get("clock.paused").Store(j%2 == 0)
			}
		}()
	}
	wg.Wait()

	if got := reg.Ints.Get("clock.frames").Load(); got != 8*200 {
		t.Errorf("clock.frames = %d, want %d", got, 8*200)
	}
	if reg.TotalCount() != 3 {
		t.Errorf("TotalCount = %d, want 3", reg.TotalCount())
	}
}
