package nixinline

// RXCTimeConfig is the reassembly scrub configuration of spec.md §4.4: an
// RXC time-config message carrying step, zombie/active limits and
// thresholds, and a block-threshold. Step defaults to
// max_wait_time*1000/active_limit when zero.
type RXCTimeConfig struct {
	Step            uint32 // microseconds
	ZombieLimit     uint32
	ZombieThreshold uint32
	ActiveLimit     uint32
	ActiveThreshold uint32
	BlockThreshold  uint32
}

// NewRXCTimeConfig applies the documented defaults, computing Step from
// maxWaitTimeMs/activeLimit when step is zero.
func NewRXCTimeConfig(step uint32, maxWaitTimeMs, activeLimit uint32) RXCTimeConfig {
	if step == 0 && activeLimit > 0 {
		step = maxWaitTimeMs * 1000 / activeLimit
	}
	return RXCTimeConfig{
		Step:        step,
		ActiveLimit: activeLimit,
	}
}

// ScrubDelegate chooses who services the RXC time-config request: cn10k
// delegates to the crypto driver, newer silicon services it through the
// admin-function-side inline device (spec.md §4.4).
type ScrubDelegate int

const (
	ScrubDelegateCryptoDriver ScrubDelegate = iota
	ScrubDelegateAdminInlineDevice
)

func ChooseScrubDelegate(cn10k bool) ScrubDelegate {
	if cn10k {
		return ScrubDelegateCryptoDriver
	}
	return ScrubDelegateAdminInlineDevice
}
