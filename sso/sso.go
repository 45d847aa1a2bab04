// Package sso is the event-scheduler layer (spec.md §2 L2): event-group and
// ring attach/alloc, MSIX offset retrieval, ring enable with retry on
// start-sync failure. Lifecycle shape grounded on the teacher's
// processManager Start/Close pattern (manager/process.go).
package sso

import (
	"errors"
	"sync"
	"time"

	"github.com/nxcore/roc/rocerr"
)

var ErrAlreadyRunning = errors.New("sso: ring already running")
var ErrNotRunning = errors.New("sso: ring not running")

// HWGrp is one attached SSO hardware group (event queue); HWS is one
// attached hardware work slot (consumer). Both are alloc'd from the
// mailbox-granted counts recorded on the device.
type HWGrp struct {
	ID        uint16
	MSIXOff   uint16
}

type HWS struct {
	ID uint16
}

// Manager attaches/allocs SSO resources and drives the ring-enable retry
// loop (spec.md §4.1/§6: "TIM_AF_LF_START_SYNC_FAIL retried up to 8 times"
// — the same retry discipline applies to SSO ring start per spec.md §2).
type Manager struct {
	mu      sync.Mutex
	running map[uint16]chan struct{}
}

func NewManager() *Manager {
	return &Manager{running: make(map[uint16]chan struct{})}
}

// AllocHWGrp mints a HWGrp record at id with an MSIX vector already
// retrieved by the caller's mailbox round trip.
func AllocHWGrp(id, msixOff uint16) HWGrp {
	return HWGrp{ID: id, MSIXOff: msixOff}
}

const maxStartSyncRetries = 8

// EnableRing starts grp's ring, retrying the admin-function start-sync
// handshake up to maxStartSyncRetries times before surfacing
// rocerr.ErrTimAfLFStartSyncFail (spec.md §6 retry policy).
func (m *Manager) EnableRing(grp HWGrp, startSync func() error) error {
	m.mu.Lock()
	if _, ok := m.running[grp.ID]; ok {
		m.mu.Unlock()
		return rocerr.ErrParam.Wrap(ErrAlreadyRunning)
	}
	die := make(chan struct{})
	m.running[grp.ID] = die
	m.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxStartSyncRetries; attempt++ {
		if err := startSync(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(time.Millisecond)
	}
	m.mu.Lock()
	delete(m.running, grp.ID)
	m.mu.Unlock()
	return rocerr.ErrTimAfLFStartSyncFail.Wrap(lastErr)
}

// DisableRing stops a previously enabled ring.
func (m *Manager) DisableRing(grp HWGrp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	die, ok := m.running[grp.ID]
	if !ok {
		return rocerr.ErrParam.Wrap(ErrNotRunning)
	}
	close(die)
	delete(m.running, grp.ID)
	return nil
}

func (m *Manager) IsRunning(id uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[id]
	return ok
}
