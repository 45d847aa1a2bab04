// Package tim is the timer-scheduler layer (spec.md §2 L2): ring
// attach/alloc and ring-enable with the same retry-on-start-sync-fail
// policy as sso (spec.md §6). An enabled ring runs a ticker that calls a
// caller-supplied advance function once per bucket width; this package
// does not itself store armed timers. Lifecycle grounded on the teacher's
// processManager mutex-guarded Start/Close lifecycle.
package tim

import (
	"errors"
	"sync"
	"time"

	"github.com/nxcore/roc/rocerr"
)

var ErrAlreadyRunning = errors.New("tim: ring already running")
var ErrNotRunning = errors.New("tim: ring not running")

const maxStartSyncRetries = 8

// Ring is one attached TIM ring: a bucket interval and the number of
// buckets it rotates through.
type Ring struct {
	ID           uint16
	BucketWidth  time.Duration
	NumBuckets   int
}

// Manager attaches/enables TIM rings for one device.
type Manager struct {
	mu      sync.Mutex
	rings   map[uint16]*runningRing
}

type runningRing struct {
	die    chan struct{}
	ticker *time.Ticker
	wg     sync.WaitGroup
}

func NewManager() *Manager {
	return &Manager{rings: make(map[uint16]*runningRing)}
}

// EnableRing starts r's bucket-advance ticker after a successful
// start-sync handshake (retried up to maxStartSyncRetries times); advance
// is invoked once per bucket width until DisableRing is called.
func (m *Manager) EnableRing(r Ring, startSync func() error, advance func()) error {
	m.mu.Lock()
	if _, ok := m.rings[r.ID]; ok {
		m.mu.Unlock()
		return rocerr.ErrParam.Wrap(ErrAlreadyRunning)
	}
	m.mu.Unlock()

	var lastErr error
	ok := false
	for attempt := 0; attempt < maxStartSyncRetries; attempt++ {
		if err := startSync(); err == nil {
			ok = true
			break
		} else {
			lastErr = err
		}
		time.Sleep(time.Millisecond)
	}
	if !ok {
		return rocerr.ErrTimAfLFStartSyncFail.Wrap(lastErr)
	}

	rr := &runningRing{die: make(chan struct{}), ticker: time.NewTicker(r.BucketWidth)}
	m.mu.Lock()
	m.rings[r.ID] = rr
	m.mu.Unlock()

	rr.wg.Add(1)
	go func() {
		defer rr.wg.Done()
		for {
			select {
			case <-rr.die:
				return
			case <-rr.ticker.C:
				advance()
			}
		}
	}()
	return nil
}

// DisableRing stops the bucket-advance goroutine and blocks until it
// exits, matching processManager.Close's WaitGroup drain.
func (m *Manager) DisableRing(id uint16) error {
	m.mu.Lock()
	rr, ok := m.rings[id]
	if ok {
		delete(m.rings, id)
	}
	m.mu.Unlock()
	if !ok {
		return rocerr.ErrParam.Wrap(ErrNotRunning)
	}
	rr.ticker.Stop()
	close(rr.die)
	rr.wg.Wait()
	return nil
}

func (m *Manager) IsRunning(id uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rings[id]
	return ok
}
