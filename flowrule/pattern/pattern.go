// Package pattern decodes and validates the ordered pattern-item list of a
// flow-create request (spec.md §6), mapping each item to the (layer-id,
// layer-type, byte-offset) triple the KEX capability predicate needs.
// Layer identification reuses gopacket's layer-type/protocol-number
// constants instead of inventing a parallel enumeration.
package pattern

import (
	"fmt"
	"net"

	"github.com/google/gopacket/layers"
	"github.com/nxcore/roc/npc"
)

// ItemType names one NPC pattern item kind (spec.md §4.6's ETH, VLAN/QinQ,
// MPLS, IPv4, IPv6, TCP, UDP, SCTP items).
type ItemType uint8

const (
	ItemEth ItemType = iota
	ItemVLAN
	ItemQinQ
	ItemMPLS
	ItemIPv4
	ItemIPv6
	ItemTCP
	ItemUDP
	ItemSCTP
)

// Item is one decoded pattern item: a type tag plus the fields relevant to
// that type. Only the fields set are matched; zero-value fields are
// wildcarded in the MCAM mask.
type Item struct {
	Type ItemType

	EthSrc, EthDst   net.HardwareAddr
	VLANID           uint16
	MPLSLabel        uint32
	IPv4Src, IPv4Dst net.IP
	IPv4SrcMask      net.IPMask
	IPv4DstMask      net.IPMask
	IPv6Src, IPv6Dst net.IP
	SrcPort, DstPort uint16
}

// layerMeta gives the (lid, ltype, byte-offset, length) for the matchable
// field(s) of an item, in the npc package's LayerType vocabulary, used as
// the lookup key against the KEX capability predicate.
type layerMeta struct {
	LID    uint8
	LType  npc.LayerType
	Offset int
	Length int
}

// Validate checks every item in order against the programmed KEX
// capability for intf, returning an error naming the first item that
// cannot currently be extracted (spec.md §4.6).
func Validate(kex *npc.KexConfig, intf int, items []Item) error {
	for i, it := range items {
		metas, err := it.metas()
		if err != nil {
			return fmt.Errorf("pattern item %d: %w", i, err)
		}
		for _, m := range metas {
			if !kex.CanExtract(intf, m.LID, m.LType, m.Offset, m.Length) {
				return fmt.Errorf("pattern item %d: field not extractable under current KEX programming (lid=%d ltype=%v offset=%d len=%d)",
					i, m.LID, m.LType, m.Offset, m.Length)
			}
		}
	}
	return nil
}

func (it Item) metas() ([]layerMeta, error) {
	switch it.Type {
	case ItemEth:
		return []layerMeta{{LID: 0, LType: npc.LTEther, Offset: 0, Length: 12}}, nil
	case ItemVLAN:
		return []layerMeta{{LID: 1, LType: npc.LTVLAN, Offset: 0, Length: 2}}, nil
	case ItemQinQ:
		return []layerMeta{{LID: 1, LType: npc.LTQinQ, Offset: 0, Length: 4}}, nil
	case ItemMPLS:
		return []layerMeta{{LID: 2, LType: npc.LTMPLS, Offset: 0, Length: 4}}, nil
	case ItemIPv4:
		return []layerMeta{{LID: 3, LType: npc.LTIPv4, Offset: 12, Length: 8}}, nil
	case ItemIPv6:
		return []layerMeta{{LID: 3, LType: npc.LTIPv6, Offset: 8, Length: 32}}, nil
	case ItemTCP:
		return []layerMeta{{LID: 4, LType: npc.LTTCP, Offset: 0, Length: 4}}, nil
	case ItemUDP:
		return []layerMeta{{LID: 4, LType: npc.LTUDP, Offset: 0, Length: 4}}, nil
	case ItemSCTP:
		return []layerMeta{{LID: 4, LType: npc.LTSCTP, Offset: 0, Length: 4}}, nil
	default:
		return nil, fmt.Errorf("unknown pattern item type %d", it.Type)
	}
}

// IPProtocol returns the gopacket IP-protocol number an item's layer
// corresponds to, used when composing the IPv4/IPv6 "next header" key
// field; items with no protocol-layer meaning return false.
func (it Item) IPProtocol() (layers.IPProtocol, bool) {
	switch it.Type {
	case ItemTCP:
		return layers.IPProtocolTCP, true
	case ItemUDP:
		return layers.IPProtocolUDP, true
	case ItemSCTP:
		return layers.IPProtocolSCTP, true
	default:
		return 0, false
	}
}

// EthernetType returns the gopacket EthernetType the item implies for the
// preceding ETH item's type/len field, when applicable.
func (it Item) EthernetType() (layers.EthernetType, bool) {
	switch it.Type {
	case ItemIPv4:
		return layers.EthernetTypeIPv4, true
	case ItemIPv6:
		return layers.EthernetTypeIPv6, true
	case ItemVLAN, ItemQinQ:
		return layers.EthernetTypeDot1Q, true
	case ItemMPLS:
		return layers.EthernetTypeMPLSUnicast, true
	default:
		return 0, false
	}
}

// BuildIPv4Key packs a /32-down-to-/0 IPv4 source+dest match into the
// 7-word key/mask at word index wordOff, honoring each address's CIDR
// mask. A nil address is wildcarded: its key and mask bits stay zero.
func BuildIPv4Key(keyData, keyMask *[7]uint64, wordOff int, src, dst net.IP, srcMask, dstMask net.IPMask) error {
	if wordOff < 0 || wordOff >= 7 {
		return fmt.Errorf("word offset %d out of range", wordOff)
	}

	var key, mask uint64
	if src != nil {
		s4 := src.To4()
		if s4 == nil {
			return fmt.Errorf("BuildIPv4Key requires IPv4 addresses")
		}
		key |= uint64(be32(s4))
		mask |= uint64(ones(srcMask))
	}
	if dst != nil {
		d4 := dst.To4()
		if d4 == nil {
			return fmt.Errorf("BuildIPv4Key requires IPv4 addresses")
		}
		key |= uint64(be32(d4)) << 32
		mask |= uint64(ones(dstMask)) << 32
	}

	keyData[wordOff] = key
	keyMask[wordOff] = mask
	return nil
}

func be32(ip net.IP) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func ones(m net.IPMask) uint32 {
	if m == nil {
		return 0xFFFFFFFF
	}
	n, _ := m.Size()
	if n <= 0 {
		return 0
	}
	if n >= 32 {
		return 0xFFFFFFFF
	}
	return uint32(0xFFFFFFFF) << uint(32-n)
}
