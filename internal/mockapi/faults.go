package mockapi

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Faults injects failures into the backend. The zero value injects nothing.
type Faults struct {
	mu              sync.Mutex
	unauthorized    int
	refreshFailures int
	refreshDelay    time.Duration

	refreshCalls atomic.Int64
	loginCalls   atomic.Int64
}

// FaultSettings is the wire form of the injected faults.
type FaultSettings struct {
	Unauthorized    int `json:"unauthorized"`
	RefreshFailures int `json:"refreshFailures"`
	RefreshDelayMS  int `json:"refreshDelayMs"`
}

// FaultStats counts calls seen by the backend.
type FaultStats struct {
	RefreshCalls int64 `json:"refreshCalls"`
	LoginCalls   int64 `json:"loginCalls"`
}

// ForceUnauthorized makes the next n guarded requests answer 401 whatever
// token they carry.
func (f *Faults) ForceUnauthorized(n int) {
	f.mu.Lock()
	f.unauthorized = max(n, 0)
	f.mu.Unlock()
}

// FailRefresh makes the next n refresh calls answer 401.
func (f *Faults) FailRefresh(n int) {
	f.mu.Lock()
	f.refreshFailures = max(n, 0)
	f.mu.Unlock()
}

// DelayRefresh holds every refresh call for d before answering.
func (f *Faults) DelayRefresh(d time.Duration) {
	f.mu.Lock()
	f.refreshDelay = max(d, 0)
	f.mu.Unlock()
}

// Apply replaces every injected fault at once.
func (f *Faults) Apply(s FaultSettings) {
	f.mu.Lock()
	f.unauthorized = max(s.Unauthorized, 0)
	f.refreshFailures = max(s.RefreshFailures, 0)
	f.refreshDelay = time.Duration(max(s.RefreshDelayMS, 0)) * time.Millisecond
	f.mu.Unlock()
}

// Settings returns the faults still pending.
func (f *Faults) Settings() FaultSettings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FaultSettings{
		Unauthorized:    f.unauthorized,
		RefreshFailures: f.refreshFailures,
		RefreshDelayMS:  int(f.refreshDelay / time.Millisecond),
	}
}

// Stats returns the call counters.
func (f *Faults) Stats() FaultStats {
	return FaultStats{
		RefreshCalls: f.refreshCalls.Load(),
		LoginCalls:   f.loginCalls.Load(),
	}
}

// RefreshCalls returns how many refresh calls reached the backend.
func (f *Faults) RefreshCalls() int64 {
	return f.refreshCalls.Load()
}

// Reset clears faults and counters.
func (f *Faults) Reset() {
	f.Apply(FaultSettings{})
	f.refreshCalls.Store(0)
	f.loginCalls.Store(0)
}

func (f *Faults) takeUnauthorized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unauthorized == 0 {
		return false
	}
	f.unauthorized--
	return true
}

// enterRefresh counts the call, waits out the configured delay and reports
// whether the call must fail.
func (f *Faults) enterRefresh(ctx context.Context) (fail bool, err error) {
	f.refreshCalls.Add(1)

	f.mu.Lock()
	delay := f.refreshDelay
	if f.refreshFailures > 0 {
		f.refreshFailures--
		fail = true
	}
	f.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return fail, ctx.Err()
		}
	}
	return fail, nil
}
