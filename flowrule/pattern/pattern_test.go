package pattern

import (
	"net"
	"testing"

	"github.com/nxcore/roc/npc"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsUnprogrammedField(t *testing.T) {
	kex := npc.NewKexConfig()
	items := []Item{{Type: ItemEth}, {Type: ItemIPv4}}
	err := Validate(kex, 0, items)
	require.Error(t, err)
}

func TestValidateAcceptsProgrammedFields(t *testing.T) {
	kex := npc.NewKexConfig()
	kex.Configure(0, 0, npc.LTEther, []npc.Extractor{{LID: 0, LType: npc.LTEther, ByteOffset: 0, Length: 12}})
	kex.Configure(0, 3, npc.LTIPv4, []npc.Extractor{{LID: 3, LType: npc.LTIPv4, ByteOffset: 12, Length: 8}})

	items := []Item{{Type: ItemEth}, {Type: ItemIPv4}}
	require.NoError(t, Validate(kex, 0, items))
}

func TestBuildIPv4Key(t *testing.T) {
	var key, mask [7]uint64
	src := net.ParseIP("10.0.0.1")
	dst := net.ParseIP("10.0.0.2")
	err := BuildIPv4Key(&key, &mask, 1, src, dst, net.CIDRMask(32, 32), net.CIDRMask(24, 32))
	require.NoError(t, err)
	require.Equal(t, uint64(0xFFFFFFFF), mask[1]&0xFFFFFFFF)
	require.Equal(t, uint64(0xFFFFFF00), (mask[1]>>32)&0xFFFFFFFF)
}

func TestEthernetTypeAndIPProtocol(t *testing.T) {
	it := Item{Type: ItemTCP}
	proto, ok := it.IPProtocol()
	require.True(t, ok)
	require.Equal(t, "TCP", proto.String())

	ipv4 := Item{Type: ItemIPv4}
	et, ok := ipv4.EthernetType()
	require.True(t, ok)
	require.Equal(t, "IPv4", et.String())
}
