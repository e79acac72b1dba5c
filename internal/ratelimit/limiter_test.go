package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestAllow_BasicPattern(t *testing.T) {
	l := New()

	want := []bool{true, true, true, false, false}
	for i, expected := range want {
		if got := l.Allow("login:1.2.3.4", 3, 10*time.Second); got != expected {
			t.Errorf("attempt %d: expected %v, got %v", i+1, expected, got)
		}
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		if !l.Allow("login:1.2.3.4", 3, time.Minute) {
			t.Fatalf("attempt %d on first key unexpectedly rejected", i+1)
		}
	}
	if l.Allow("login:1.2.3.4", 3, time.Minute) {
		t.Error("expected first key to be exhausted")
	}
	if !l.Allow("login:5.6.7.8", 3, time.Minute) {
		t.Error("expected second key to be unaffected")
	}
	if !l.Allow("register:1.2.3.4", 3, time.Minute) {
		t.Error("expected different action on same IP to be unaffected")
	}
}

func TestAllow_WindowExpiry(t *testing.T) {
	l := New()
	base := time.Now()
	l.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, 10*time.Second) {
			t.Fatalf("attempt %d unexpectedly rejected", i+1)
		}
	}
	if l.Allow("k", 3, 10*time.Second) {
		t.Fatal("expected fourth attempt rejected")
	}

	// Just before the oldest stamp ages out: still rejected.
	l.now = func() time.Time { return base.Add(10*time.Second - time.Millisecond) }
	if l.Allow("k", 3, 10*time.Second) {
		t.Error("expected rejection just inside the window")
	}

	// Once the oldest stamp slides out, one slot opens.
	l.now = func() time.Time { return base.Add(10*time.Second + time.Millisecond) }
	if !l.Allow("k", 3, 10*time.Second) {
		t.Error("expected admission after the oldest attempt expired")
	}
}

func TestAllow_RejectionNotRecorded(t *testing.T) {
	l := New()
	base := time.Now()
	l.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		l.Allow("k", 3, 10*time.Second)
	}

	// Hammer while limited. None of these may extend the lockout.
	for i := 0; i < 50; i++ {
		l.now = func() time.Time { return base.Add(time.Duration(i) * 100 * time.Millisecond) }
		if l.Allow("k", 3, 10*time.Second) {
			t.Fatal("unexpected admission while limited")
		}
	}

	l.now = func() time.Time { return base.Add(10*time.Second + time.Millisecond) }
	if !l.Allow("k", 3, 10*time.Second) {
		t.Error("expected admission once the original window passed")
	}
}

func TestRetryAfter(t *testing.T) {
	l := New()
	base := time.Now()
	l.now = func() time.Time { return base }

	if got := l.RetryAfter("missing"); got != 0 {
		t.Errorf("expected 0 for unknown key, got %v", got)
	}

	for i := 0; i < 3; i++ {
		l.Allow("k", 3, 10*time.Second)
	}

	if got := l.RetryAfter("k"); got != 10*time.Second {
		t.Errorf("expected 10s, got %v", got)
	}

	l.now = func() time.Time { return base.Add(4 * time.Second) }
	if got := l.RetryAfter("k"); got != 6*time.Second {
		t.Errorf("expected 6s, got %v", got)
	}
}

func TestRetryAfter_UsesKeyOwnWindow(t *testing.T) {
	l := New()
	base := time.Now()
	l.now = func() time.Time { return base }

	// Two keys checked against different policies report hints from their
	// own windows, not a shared one.
	l.Allow("login:ip", 1, 15*time.Minute)
	l.Allow("register:ip", 1, time.Hour)

	if got := l.RetryAfter("login:ip"); got != 15*time.Minute {
		t.Errorf("expected 15m, got %v", got)
	}
	if got := l.RetryAfter("register:ip"); got != time.Hour {
		t.Errorf("expected 1h, got %v", got)
	}
}

func TestReset(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		l.Allow("k", 3, time.Minute)
	}
	if l.Allow("k", 3, time.Minute) {
		t.Fatal("expected key exhausted before reset")
	}

	l.Reset("k")

	if !l.Allow("k", 3, time.Minute) {
		t.Error("expected admission after reset")
	}
	if got := l.RetryAfter("k"); got > time.Minute {
		t.Errorf("unexpected retry-after %v after reset", got)
	}
}

func TestCleanup(t *testing.T) {
	l := New()
	base := time.Now()
	l.now = func() time.Time { return base }

	l.Allow("old", 3, 10*time.Second)
	l.Allow("fresh", 3, time.Hour)

	l.now = func() time.Time { return base.Add(time.Minute) }
	if removed := l.Cleanup(); removed != 1 {
		t.Errorf("expected 1 key removed, got %d", removed)
	}

	// The fresh key keeps its history.
	l.Allow("fresh", 3, time.Hour)
	l.Allow("fresh", 3, time.Hour)
	if l.Allow("fresh", 3, time.Hour) {
		t.Error("expected fresh key history to survive cleanup")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l := New()

	const workers = 50
	var wg sync.WaitGroup
	admitted := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k", 10, time.Minute) {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	if count != 10 {
		t.Errorf("expected exactly 10 admissions, got %d", count)
	}
}
