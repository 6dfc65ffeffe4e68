package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrComputeRoundTrip(t *testing.T) {
	m := New(time.Hour)

	calls := 0
	compute := func() (any, error) {
		calls++
		return "value", nil
	}

	v1, err := m.GetOrCompute("photo-1", "classify", compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error: %v", err)
	}
	v2, err := m.GetOrCompute("photo-1", "classify", compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error: %v", err)
	}

	if v1 != "value" || v2 != "value" {
		t.Errorf("GetOrCompute() values = %v, %v, want value", v1, v2)
	}
	if calls != 1 {
		t.Errorf("compute ran %d times within TTL, want 1", calls)
	}
}

func TestGetOrComputeTTLExpiry(t *testing.T) {
	m := New(time.Hour)
	current := time.Unix(1000, 0)
	m.now = func() time.Time { return current }

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	if _, err := m.GetOrCompute("photo-1", "classify", compute); err != nil {
		t.Fatal(err)
	}
	current = current.Add(2 * time.Hour)
	v, err := m.GetOrCompute("photo-1", "classify", compute)
	if err != nil {
		t.Fatal(err)
	}

	if calls != 2 {
		t.Errorf("compute ran %d times across expiry, want 2", calls)
	}
	if v != 2 {
		t.Errorf("GetOrCompute() after expiry = %v, want 2", v)
	}
}

func TestGetOrComputeDistinctKeys(t *testing.T) {
	m := New(time.Hour)

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	m.GetOrCompute("photo-1", "classify", compute)
	m.GetOrCompute("photo-1", "analyze_damage", compute)
	m.GetOrCompute("photo-2", "classify", compute)

	if calls != 3 {
		t.Errorf("compute ran %d times for 3 distinct keys, want 3", calls)
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	m := New(time.Hour)

	calls := 0
	if _, err := m.GetOrCompute("p", "op", func() (any, error) {
		calls++
		return nil, errors.New("boom")
	}); err == nil {
		t.Fatal("expected error")
	}

	v, err := m.GetOrCompute("p", "op", func() (any, error) {
		calls++
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("GetOrCompute() after failure = %v, %v", v, err)
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2 (failures are not cached)", calls)
	}
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	m := New(time.Hour)

	var calls int32
	release := make(chan struct{})
	compute := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]any, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := m.GetOrCompute("photo-1", "classify", compute)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = v
		}(i)
	}

	// Give every caller time to join the in-flight computation.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("compute ran %d times under concurrency, want 1", got)
	}
	for i, v := range results {
		if v != "shared" {
			t.Errorf("caller %d got %v, want shared", i, v)
		}
	}
}

func TestTypedGetOrCompute(t *testing.T) {
	m := New(time.Hour)

	v, err := GetOrCompute(m, "photo-1", "classify", func() (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("GetOrCompute[int]() = %d, want 42", v)
	}
}
