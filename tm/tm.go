// Package tm implements the traffic manager (spec.md §4.5): hierarchical
// TL1-TL4/MDQ scheduler nodes, add/update/delete operations, and the
// SQ-flush pre/post sequence around SQ teardown. Tree bookkeeping is
// grounded on the teacher's manager/ package's parent/child process
// registration and ordered teardown.
package tm

import (
	"context"
	"sync"
	"time"

	"github.com/nxcore/roc/rocerr"
	"golang.org/x/sync/errgroup"
)

// Level names a TM hierarchy level.
type Level int

const (
	LevelTL1 Level = iota
	LevelTL2
	LevelTL3
	LevelTL4
	LevelMDQ
)

const MaxWeight = 0xFF

// RootPolicy selects which level roots the hierarchy: TL1 for PF, TL2 for
// VF (spec.md §4.5).
type RootPolicy int

const (
	RootTL1 RootPolicy = iota
	RootTL2
)

// Node is one scheduler node.
type Node struct {
	ID       uint32
	Level    Level
	Priority uint8
	Weight   uint8
	Shaper   uint32

	parent   *Node
	children []*Node
	hwRes    uint32
	hwResSet bool
}

// Tree owns the full node set for one device.
type Tree struct {
	mu       sync.Mutex
	nodes    map[uint32]*Node
	root     RootPolicy
	hasVFs   bool
}

func NewTree(root RootPolicy, hasVFs bool) *Tree {
	return &Tree{nodes: make(map[uint32]*Node), root: root, hasVFs: hasVFs}
}

// AddNode inserts a node under parentID (0 means root), validating weight
// and the strict-priority/round-robin sibling rules of spec.md §4.5.
func (t *Tree) AddNode(id uint32, level Level, parentID uint32, priority, weight uint8, shaper uint32) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if weight == 0 {
		weight = 1
	}
	if weight > MaxWeight {
		return nil, rocerr.ErrParam
	}
	if _, exists := t.nodes[id]; exists {
		return nil, rocerr.ErrParam
	}

	n := &Node{ID: id, Level: level, Priority: priority, Weight: weight, Shaper: shaper}

	if parentID != 0 {
		p, ok := t.nodes[parentID]
		if !ok {
			return nil, rocerr.ErrParam
		}
		if level == LevelTL1 && t.hasVFs && isStrictPriority(priority) {
			return nil, rocerr.ErrTL1NoSP
		}
		if err := validateSiblingOrder(p.children, priority); err != nil {
			return nil, err
		}
		n.parent = p
		p.children = append(p.children, n)
	}
	t.nodes[id] = n
	return n, nil
}

// isStrictPriority treats priority 0 as the round-robin group and any
// other value as a strict-priority level, matching the source's
// convention that a parent has at most one RR group plus SP children.
func isStrictPriority(priority uint8) bool { return priority != 0 }

// validateSiblingOrder rejects holes in the strict-priority sequence
// (spec.md §4.5 PRIO_ORDER) and more than one round-robin group.
func validateSiblingOrder(siblings []*Node, newPriority uint8) error {
	if !isStrictPriority(newPriority) {
		for _, s := range siblings {
			if !isStrictPriority(s.Priority) {
				return rocerr.ErrPrioOrder // only one RR group permitted
			}
		}
		return nil
	}
	// strict-priority: every value below newPriority must already be present,
	// no holes.
	seen := make(map[uint8]bool)
	for _, s := range siblings {
		if isStrictPriority(s.Priority) {
			seen[s.Priority] = true
		}
	}
	for p := uint8(1); p < newPriority; p++ {
		if !seen[p] {
			return rocerr.ErrPrioOrder
		}
	}
	return nil
}

// UpdatePktMode updates n's packet-mode fields; only permitted when n has
// no children (spec.md §4.5).
func (t *Tree) UpdatePktMode(id uint32, weight uint8, shaper uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return rocerr.ErrParam
	}
	if len(n.children) != 0 {
		return rocerr.ErrNotLeaf
	}
	if weight == 0 {
		weight = 1
	}
	n.Weight = weight
	n.Shaper = shaper
	return nil
}

// DeleteNode removes a childless node, releasing its shaper-profile
// reference (via releaseShaper) and optionally freeing its HW resource
// (via freeHWRes) when one was allocated.
func (t *Tree) DeleteNode(id uint32, releaseShaper func(shaper uint32), freeHWRes func(res uint32) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return rocerr.ErrParam
	}
	if len(n.children) != 0 {
		return rocerr.ErrNotLeaf
	}
	if n.hwResSet && freeHWRes != nil {
		if err := freeHWRes(n.hwRes); err != nil {
			return err
		}
	}
	if releaseShaper != nil {
		releaseShaper(n.Shaper)
	}
	if n.parent != nil {
		siblings := n.parent.children
		for i, s := range siblings {
			if s == n {
				n.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	delete(t.nodes, id)
	return nil
}

func (t *Tree) Node(id uint32) (*Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	return n, ok
}

// SQFlushDeps are the operations SQFlushPre/Post drive; kept as an
// interface so nix.SQ stays decoupled from tm.
type SQFlushDeps struct {
	EnableCGXRxTx   func() error
	DisableCGXRxTx  func() error
	CGXCurrentlyUp  func() bool
	DisableSMQXoff  func() error
	EnableSMQXoff   func() error
	PauseSiblingFC  func(sqID uint16) error
	ResumeSiblingFC func(sqID uint16) error
	PollQuiescent   func() (sqbCnt int, headOff, tailOff, fcMemory uint32, nbSQBBufs uint32, err error)
}

// SQFlushPre performs the pre-destroy sequence of spec.md §4.5: re-enable
// CGX RX/TX if down, disable SMQ XOFF, pause siblings (concurrently, via
// errgroup), then spin-poll until quiescent within the model-computed
// deadline, finally re-enabling SMQ XOFF.
func SQFlushPre(ctx context.Context, deps SQFlushDeps, siblingIDs []uint16, deadline time.Duration) error {
	wasUp := deps.CGXCurrentlyUp()
	if !wasUp {
		if err := deps.EnableCGXRxTx(); err != nil {
			return err
		}
	}
	if err := deps.DisableSMQXoff(); err != nil {
		return err
	}

	g, _ := errgroup.WithContext(ctx)
	for _, id := range siblingIDs {
		id := id
		g.Go(func() error { return deps.PauseSiblingFC(id) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	ticker := time.NewTicker(10 * time.Microsecond)
	defer ticker.Stop()
	for {
		sqbCnt, headOff, tailOff, fcMemory, nbSQBBufs, err := deps.PollQuiescent()
		if err != nil {
			return err
		}
		if sqbCnt <= 1 && headOff == tailOff && fcMemory == nbSQBBufs {
			break
		}
		select {
		case <-deadlineCtx.Done():
			return rocerr.ErrTimedOut
		case <-ticker.C:
		}
	}

	if err := deps.EnableSMQXoff(); err != nil {
		return err
	}
	if !wasUp {
		return deps.DisableCGXRxTx()
	}
	return nil
}

// SQFlushPost re-enables siblings after the destroy completes.
func SQFlushPost(ctx context.Context, deps SQFlushDeps, siblingIDs []uint16) error {
	g, _ := errgroup.WithContext(ctx)
	for _, id := range siblingIDs {
		id := id
		g.Go(func() error { return deps.ResumeSiblingFC(id) })
	}
	return g.Wait()
}

// FlushDeadline computes the bound spec.md §4.5 documents:
// nb_sq * max_mtu * 8 * 1e5 / min_rate ticks of 10us.
func FlushDeadline(nbSQ int, maxMTU uint32, minRate uint64) time.Duration {
	if minRate == 0 {
		minRate = 1
	}
	ticks := uint64(nbSQ) * uint64(maxMTU) * 8 * 100000 / minRate
	return time.Duration(ticks) * 10 * time.Microsecond
}
