package km

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// KCC is the key-class cache (spec.md §4.9), translating a (port, key)
// pair into a category. Entries are kept in a map keyed by the port+key
// xxhash; the entry count is not capped at kccSize, and kccBanks only
// sets how many banks Bank spreads pairs across.
type KCC struct {
	mu       sync.Mutex
	banks    int
	perBank  int
	entries  map[uint64]uint32 // hash -> category
}

func NewKCC(kccSize, kccBanks int) *KCC {
	if kccBanks <= 0 {
		kccBanks = 1
	}
	return &KCC{
		banks:   kccBanks,
		perBank: kccSize / kccBanks,
		entries: make(map[uint64]uint32),
	}
}

func (k *KCC) hash(port uint16, key []byte) uint64 {
	buf := make([]byte, 2+len(key))
	binary.LittleEndian.PutUint16(buf, port)
	copy(buf[2:], key)
	return xxhash.Sum64(buf)
}

// Lookup returns the category bound to (port, key), if present.
func (k *KCC) Lookup(port uint16, key []byte) (uint32, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	cat, ok := k.entries[k.hash(port, key)]
	return cat, ok
}

// Bind installs a (port, key) -> category translation.
func (k *KCC) Bind(port uint16, key []byte, category uint32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[k.hash(port, key)] = category
}

// Bank returns which of the kccBanks banks a (port, key) pair's entry
// would be stored in, derived from its hash.
func (k *KCC) Bank(port uint16, key []byte) int {
	return int(k.hash(port, key) % uint64(k.banks))
}

// Fini frees every entry (spec.md §4.9 "Freed at driver fini").
func (k *KCC) Fini() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries = make(map[uint64]uint32)
}
