package tm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddNodeWeightDefault(t *testing.T) {
	tr := NewTree(RootTL1, false)
	n, err := tr.AddNode(1, LevelTL1, 0, 0, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint8(1), n.Weight)
}

func TestAddNodeRejectsPriorityHole(t *testing.T) {
	tr := NewTree(RootTL1, false)
	_, err := tr.AddNode(1, LevelTL1, 0, 0, 0, 0)
	require.NoError(t, err)
	_, err = tr.AddNode(2, LevelTL2, 1, 1, 1, 0)
	require.NoError(t, err)
	// priority 3 with no priority-2 sibling present yet: hole, rejected.
	_, err = tr.AddNode(3, LevelTL2, 1, 3, 1, 0)
	require.Error(t, err)
	// priority 2 fills the gap.
	_, err = tr.AddNode(4, LevelTL2, 1, 2, 1, 0)
	require.NoError(t, err)
	_, err = tr.AddNode(5, LevelTL2, 1, 3, 1, 0)
	require.NoError(t, err)
}

func TestAddNodeRejectsSecondRRGroup(t *testing.T) {
	tr := NewTree(RootTL1, false)
	_, err := tr.AddNode(1, LevelTL1, 0, 0, 0, 0)
	require.NoError(t, err)
	_, err = tr.AddNode(2, LevelTL2, 1, 0, 1, 0)
	require.NoError(t, err)
	_, err = tr.AddNode(3, LevelTL2, 1, 0, 1, 0)
	require.Error(t, err)
}

func TestTL1NoSPWithVFs(t *testing.T) {
	tr := NewTree(RootTL1, true)
	_, err := tr.AddNode(1, LevelTL1, 0, 0, 0, 0)
	require.NoError(t, err)
	_, err = tr.AddNode(2, LevelTL1, 1, 1, 1, 0)
	require.Error(t, err)
}

func TestDeleteNodeRequiresChildless(t *testing.T) {
	tr := NewTree(RootTL1, false)
	_, _ = tr.AddNode(1, LevelTL1, 0, 0, 0, 0)
	_, _ = tr.AddNode(2, LevelTL2, 1, 0, 1, 0)
	require.Error(t, tr.DeleteNode(1, nil, nil))
	require.NoError(t, tr.DeleteNode(2, nil, nil))
	require.NoError(t, tr.DeleteNode(1, nil, nil))
}

func TestSQFlushPreWaitsForQuiescence(t *testing.T) {
	polls := 0
	deps := SQFlushDeps{
		EnableCGXRxTx:  func() error { return nil },
		DisableCGXRxTx: func() error { return nil },
		CGXCurrentlyUp: func() bool { return false },
		DisableSMQXoff: func() error { return nil },
		EnableSMQXoff:  func() error { return nil },
		PauseSiblingFC: func(uint16) error { return nil },
		PollQuiescent: func() (int, uint32, uint32, uint32, uint32, error) {
			polls++
			if polls < 3 {
				return 5, 0, 1, 0, 0, nil
			}
			return 1, 4, 4, 8, 8, nil
		},
	}
	err := SQFlushPre(context.Background(), deps, []uint16{1, 2}, 100*time.Millisecond)
	require.NoError(t, err)
	require.GreaterOrEqual(t, polls, 3)
}

func TestSQFlushPreTimesOut(t *testing.T) {
	deps := SQFlushDeps{
		EnableCGXRxTx:  func() error { return nil },
		DisableCGXRxTx: func() error { return nil },
		CGXCurrentlyUp: func() bool { return true },
		DisableSMQXoff: func() error { return nil },
		EnableSMQXoff:  func() error { return nil },
		PauseSiblingFC: func(uint16) error { return nil },
		PollQuiescent: func() (int, uint32, uint32, uint32, uint32, error) {
			return 5, 0, 1, 0, 0, nil
		},
	}
	err := SQFlushPre(context.Background(), deps, nil, 20*time.Millisecond)
	require.Error(t, err)
}
