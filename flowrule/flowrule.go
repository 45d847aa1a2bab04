// Package flowrule implements the unified FlowCreate/FlowDestroy/FlowParse
// API (spec.md §6) that ties the NPC flow classifier together with the
// pattern/action validation it depends on. Grounded on the teacher's
// processors package in the same way as npc: a small typed request struct
// dispatched into the lower-level engine, with validation failing closed
// before anything is programmed.
package flowrule

import (
	"fmt"

	"github.com/nxcore/roc/flowrule/pattern"
	"github.com/nxcore/roc/npc"
)

// ActionKind distinguishes a dispatch action (exactly one permitted per
// rule) from a modifier action like COUNT (any number permitted).
type ActionKind uint8

const (
	ActionKindDispatch ActionKind = iota
	ActionKindCount
)

// ActionSpec is one entry of a flow-create request's action list (spec.md
// §6: QUEUE, DROP, COUNT, RSS, MULTICAST, ...).
type ActionSpec struct {
	Kind    ActionKind
	Op      npc.ActionOp // meaningful only when Kind == ActionKindDispatch
	QueueID uint16
	RSSAlg  uint8
	MCastID uint16
}

// CreateRequest is a full flow-create request: interface, priority,
// ordered pattern, and action list.
type CreateRequest struct {
	Intf       int
	Priority   uint8
	Channel    uint16
	SecondPass bool
	PFFunc     uint16
	Pattern    []pattern.Item
	Actions    []ActionSpec
}

// Handle identifies a created flow rule for later destroy/toggle calls.
type Handle struct {
	MCAMID int
}

// Engine wires an npc.Engine to the KEX capability table used to validate
// incoming patterns before anything is allocated.
type Engine struct {
	NPC *npc.Engine
	KEX *npc.KexConfig
}

func NewEngine(totalCounters int) *Engine {
	return &Engine{
		NPC: npc.NewEngine(totalCounters),
		KEX: npc.NewKexConfig(),
	}
}

// FlowParse validates a request's pattern against the current KEX
// programming without allocating anything, so a caller can pre-flight a
// rule before committing to FlowCreate.
func (e *Engine) FlowParse(req CreateRequest) error {
	if len(req.Actions) == 0 {
		return fmt.Errorf("flowrule: at least one action is required")
	}
	return pattern.Validate(e.KEX, req.Intf, req.Pattern)
}

// FlowCreate parses, then allocates and programs the MCAM entry (plus
// optional counter) implementing req. On any failure the engine is left
// exactly as it was before the call (spec.md §7: never leave a
// partially-programmed MCAM entry behind).
func (e *Engine) FlowCreate(req CreateRequest) (Handle, error) {
	if err := e.FlowParse(req); err != nil {
		return Handle{}, err
	}

	action, wantCounter, err := composeAction(req.Actions, req.PFFunc)
	if err != nil {
		return Handle{}, err
	}

	var keyData, keyMask [7]uint64
	wordOff := 1
	for _, item := range req.Pattern {
		if item.Type != pattern.ItemIPv4 {
			continue
		}
		if err := pattern.BuildIPv4Key(&keyData, &keyMask, wordOff, item.IPv4Src, item.IPv4Dst, item.IPv4SrcMask, item.IPv4DstMask); err != nil {
			return Handle{}, err
		}
	}

	entry, _, err := e.NPC.CreateRule(npc.CreateRuleParams{
		Priority:    req.Priority,
		Channel:     req.Channel,
		ChannelMask: 0xFFF,
		SecondPass:  req.SecondPass,
		KeyData:     keyData,
		KeyMask:     keyMask,
		Action:      action,
		WantCounter: wantCounter,
	})
	if err != nil {
		return Handle{}, err
	}
	return Handle{MCAMID: entry.ID}, nil
}

// FlowDestroy disables and tears down a previously created rule.
func (e *Engine) FlowDestroy(h Handle) error {
	return e.NPC.DestroyRule(h.MCAMID)
}

func composeAction(actions []ActionSpec, pfFunc uint16) (npc.Action, bool, error) {
	var act npc.Action
	act.PFFunc = pfFunc
	wantCounter := false
	sawOp := false

	for _, a := range actions {
		if a.Kind == ActionKindCount {
			wantCounter = true
			continue
		}
		if sawOp {
			return npc.Action{}, false, fmt.Errorf("flowrule: at most one dispatch action is allowed")
		}
		act.Op = a.Op
		sawOp = true
		switch a.Op {
		case npc.ActionUnicast, npc.ActionUnicastDefault:
			act.Index = a.QueueID
		case npc.ActionRSS:
			act.FlowKeyAlg = a.RSSAlg
		case npc.ActionMulticastMirror:
			act.Index = a.MCastID
		}
	}
	if !sawOp {
		return npc.Action{}, false, fmt.Errorf("flowrule: no dispatch action given")
	}
	return act, wantCounter, nil
}
