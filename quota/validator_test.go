package quota

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// memStore mirrors the SQL store's conditional-update semantics in memory,
// with a mutex standing in for the database's statement atomicity.
type memStore struct {
	mu    sync.Mutex
	count map[int]int
	last  map[int]time.Time
}

func newMemStore() *memStore {
	return &memStore{count: map[int]int{}, last: map[int]time.Time{}}
}

func (m *memStore) ResetIfStale(userID int, now, startOfDay time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.last[userID]
	if !ok || last.Before(startOfDay) {
		m.count[userID] = 1
		m.last[userID] = now
		return true, nil
	}
	return false, nil
}

func (m *memStore) IncrementBelow(userID, limit int, now, startOfDay time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.last[userID]
	if ok && !last.Before(startOfDay) && m.count[userID] < limit {
		m.count[userID]++
		m.last[userID] = now
		return true, nil
	}
	return false, nil
}

func TestSequentialLimit(t *testing.T) {
	store := newMemStore()
	v := NewValidator(store)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < v.Limit(); i++ {
		if err := v.CheckAndConsume(7, now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("request %d denied: %v", i+1, err)
		}
	}
	if err := v.CheckAndConsume(7, now.Add(time.Hour)); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("request %d should be denied, got %v", v.Limit()+1, err)
	}
}

func TestDayRolloverResetsToOne(t *testing.T) {
	store := newMemStore()
	v := NewValidator(store)
	day1 := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)

	for i := 0; i < v.Limit(); i++ {
		if err := v.CheckAndConsume(1, day1); err != nil {
			t.Fatal(err)
		}
	}
	if err := v.CheckAndConsume(1, day1); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected denial before rollover, got %v", err)
	}

	day2 := time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC)
	if err := v.CheckAndConsume(1, day2); err != nil {
		t.Fatalf("first request after rollover denied: %v", err)
	}
	if store.count[1] != 1 {
		t.Fatalf("rollover should reset counter to 1, got %d", store.count[1])
	}
}

func TestStaleDateTreatedAsZero(t *testing.T) {
	store := newMemStore()
	// A counter at the limit is meaningless once the date is stale.
	store.count[3] = 99
	store.last[3] = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	v := NewValidator(store)
	if err := v.CheckAndConsume(3, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("stale counter must be treated as zero: %v", err)
	}
	if store.count[3] != 1 {
		t.Fatalf("expected reset to 1, got %d", store.count[3])
	}
}

func TestConcurrentRequestsNeverOverAdmit(t *testing.T) {
	store := newMemStore()
	v := NewValidator(store)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	const attempts = 40
	var wg sync.WaitGroup
	allowed := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := v.CheckAndConsume(9, now); err == nil {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	got := 0
	for range allowed {
		got++
	}
	if got != v.Limit() {
		t.Fatalf("exactly %d requests may pass, %d did", v.Limit(), got)
	}
	if store.count[9] != v.Limit() {
		t.Fatalf("counter at %d, want %d", store.count[9], v.Limit())
	}
}

func TestUsersAreIsolated(t *testing.T) {
	store := newMemStore()
	v := NewValidator(store)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < v.Limit(); i++ {
		if err := v.CheckAndConsume(100, now); err != nil {
			t.Fatal(err)
		}
	}
	if err := v.CheckAndConsume(200, now); err != nil {
		t.Fatalf("user 200 affected by user 100's quota: %v", err)
	}
}
