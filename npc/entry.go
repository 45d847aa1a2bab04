package npc

import "github.com/nxcore/roc/rocerr"

// Entry is one MCAM flow rule: key/mask as 7x64-bit words (the 8th
// reserved word omitted since this module never needs it), the encoded
// action, VTAG action, optional counter, priority and enabled state
// (spec.md §6 "Flow rule").
type Entry struct {
	ID         int
	Priority   uint8
	KeyData    [7]uint64
	KeyMask    [7]uint64
	Action     Action
	VTagAction uint32
	CounterID  int
	Enabled    bool
}

// Engine ties the allocator, counter pool and live entry set together into
// the create/destroy lifecycle of spec.md §4.6.
type Engine struct {
	Alloc    *Allocator
	Counters *CounterPool
	entries  map[int]*Entry
}

func NewEngine(totalCounters int) *Engine {
	return &Engine{
		Alloc:    NewAllocator(),
		Counters: NewCounterPool(totalCounters),
		entries:  make(map[int]*Entry),
	}
}

// CreateRuleParams bundles a flow-create request's pattern-derived key
// material and requested action.
type CreateRuleParams struct {
	Priority    uint8
	Channel     uint16
	ChannelMask uint16
	SecondPass  bool
	KeyData     [7]uint64
	KeyMask     [7]uint64
	Action      Action
	VTagAction  uint32
	WantCounter bool
}

// CreateRule allocates an MCAM index (and optional counter), composes the
// entry, and marks it enabled. On any failure after the MCAM index has been
// allocated, the index (and counter, if allocated) are released before
// returning, so a failed create never leaves a partially-programmed entry
// behind (spec.md §7).
func (e *Engine) CreateRule(p CreateRuleParams) (*Entry, []ShiftOp, error) {
	idx, shifts, err := e.Alloc.Alloc(p.Priority)
	if err != nil {
		return nil, nil, err
	}

	entry := &Entry{
		ID:         idx,
		Priority:   p.Priority,
		KeyData:    p.KeyData,
		KeyMask:    p.KeyMask,
		Action:     p.Action,
		VTagAction: p.VTagAction,
		CounterID:  NoneID,
	}
	ApplyChannel(&entry.KeyData[0], &entry.KeyMask[0], p.Channel, p.ChannelMask)
	ApplyLAType(&entry.KeyData[0], &entry.KeyMask[0], p.SecondPass)

	if p.WantCounter {
		cid, err := e.Counters.Alloc()
		if err != nil {
			_ = e.Alloc.Free(p.Priority, idx)
			return nil, nil, err
		}
		entry.CounterID = cid
	}

	entry.Enabled = true
	e.entries[idx] = entry
	return entry, shifts, nil
}

// DestroyRule disables, frees the MCAM slot, and frees any counter the rule
// held.
func (e *Engine) DestroyRule(id int) error {
	entry, ok := e.entries[id]
	if !ok {
		return rocerr.ErrParam
	}
	entry.Enabled = false
	if entry.CounterID != NoneID {
		if err := e.Counters.Free(entry.CounterID); err != nil {
			return err
		}
	}
	if err := e.Alloc.Free(entry.Priority, id); err != nil {
		return err
	}
	delete(e.entries, id)
	return nil
}

// SetEnabled toggles a rule's enabled bit without reprogramming anything
// else (spec.md §4.6 "enabled/disabled toggles: single-bit write").
func (e *Engine) SetEnabled(id int, enabled bool) error {
	entry, ok := e.entries[id]
	if !ok {
		return rocerr.ErrParam
	}
	entry.Enabled = enabled
	return nil
}

func (e *Engine) Entry(id int) (*Entry, bool) {
	entry, ok := e.entries[id]
	return entry, ok
}
