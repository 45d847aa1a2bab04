// Package devargs parses the DPDK-style devargs knob set recognized by the
// control plane (spec.md §6) from a comma-separated key=value string, and
// supports live-reloading an on-disk override file.
package devargs

import (
	"strconv"
	"strings"
	"sync"

	"github.com/nxcore/roc/rocerr"
)

// Args is a parsed devargs knob set. Keys are exactly as they appear on the
// command line (e.g. "rx_inject_en", "meta_buf_sz"); values are raw strings
// until a typed getter converts them.
type Args struct {
	mtx  sync.RWMutex
	vals map[string]string
}

// Parse splits a devargs string of the form "k1=v1,k2=v2,k3" (a bare key
// implies the boolean value "1") into an Args set.
func Parse(s string) (*Args, error) {
	a := &Args{vals: make(map[string]string)}
	s = strings.TrimSpace(s)
	if s == "" {
		return a, nil
	}
	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := strings.TrimSpace(kv[:i])
			v := strings.TrimSpace(kv[i+1:])
			if k == "" {
				return nil, rocerr.ErrParam.Wrap(errBadToken(kv))
			}
			a.vals[k] = v
		} else {
			a.vals[kv] = "1"
		}
	}
	return a, nil
}

type errBadToken string

func (e errBadToken) Error() string { return "devargs: malformed token " + string(e) }

// Merge overlays other's keys on top of a, other taking precedence. Used to
// apply a live-reloaded override file on top of the command-line devargs.
func (a *Args) Merge(other *Args) {
	if a == nil || other == nil {
		return
	}
	other.mtx.RLock()
	defer other.mtx.RUnlock()
	a.mtx.Lock()
	defer a.mtx.Unlock()
	for k, v := range other.vals {
		a.vals[k] = v
	}
}

func (a *Args) get(name string) (string, bool) {
	if a == nil {
		return "", false
	}
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	v, ok := a.vals[name]
	return v, ok
}

// Set installs a single key=value pair directly, used by the fsnotify
// reload path to apply a freshly parsed override without replacing the
// whole Args value callers may be holding a reference to.
func (a *Args) Set(name, value string) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.vals[name] = value
}

func (a *Args) Bool(name string, def bool) bool {
	v, ok := a.get(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func (a *Args) Uint64(name string, def uint64) uint64 {
	v, ok := a.get(name)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return def
	}
	return n
}

func (a *Args) Int64(name string, def int64) int64 {
	v, ok := a.get(name)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return def
	}
	return n
}

func (a *Args) String(name, def string) string {
	v, ok := a.get(name)
	if !ok {
		return def
	}
	return v
}

// Known knob names, spec.md §6.
const (
	RxInjectEn        = "rx_inject_en"
	MetaBufSz         = "meta_buf_sz"
	NbMetaBufs        = "nb_meta_bufs"
	LPBDropPC         = "lpb_drop_pc"
	SPBDropPC         = "spb_drop_pc"
	IPSecInMinSPI     = "ipsec_in_min_spi"
	IPSecInMaxSPI     = "ipsec_in_max_spi"
	CustomSAAction    = "custom_sa_action"
	CustomInbSA       = "custom_inb_sa"
	CustomMetaAuraEna = "custom_meta_aura_ena"
	LocalMetaAuraEna  = "local_meta_aura_ena"
	IPSecOutMaxSA     = "ipsec_out_max_sa"
	OutbNbDesc        = "outb_nb_desc"
	OutbNbCryptoQs    = "outb_nb_crypto_qs"
	IPSecOutSSOPFFunc = "ipsec_out_sso_pffunc"
	DisableSharedLMT  = "disable_shared_lmt"
	ReassEna          = "reass_ena"
)
