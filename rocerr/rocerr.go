// Package rocerr defines the negative-integer, domain-prefixed error code
// convention used across the control plane. Every fallible operation
// returns a plain error; operations that need to expose a numeric code to
// a caller crossing the mailbox boundary return (or wrap) a *Code.
package rocerr

import "fmt"

// Domain groups related codes for Is/As matching and for prefixing
// human-readable messages the way the source's UTIL_ERR_*/NIX_ERR_*/...
// enums do.
type Domain string

const (
	DomainUtil    Domain = "UTIL"
	DomainMbox    Domain = "MBOX"
	DomainNPA     Domain = "NPA"
	DomainNIX     Domain = "NIX"
	DomainNPC     Domain = "NPC"
	DomainCPT     Domain = "CPT"
	DomainTIMAF   Domain = "TIM_AF"
	DomainSSO     Domain = "SSO"
	DomainTM      Domain = "TM"
	DomainMCS     Domain = "MCS"
	DomainPipeline Domain = "PIPE"
)

// Code is a negative-integer domain-prefixed error. It implements error and
// supports errors.Is comparison by identity (sentinel values below are the
// canonical instances).
type Code struct {
	Domain    Domain
	Name      string
	Num       int // always < 0
	retryable bool
	wrapped   error
}

func (c *Code) Error() string {
	if c.wrapped != nil {
		return fmt.Sprintf("%s_ERR_%s (%d): %v", c.Domain, c.Name, c.Num, c.wrapped)
	}
	return fmt.Sprintf("%s_ERR_%s (%d)", c.Domain, c.Name, c.Num)
}

// Is lets errors.Is(err, rocerr.ErrNoSpace) match regardless of wrapping,
// comparing by domain+name rather than pointer identity so a wrapped copy
// still matches its sentinel.
func (c *Code) Is(target error) bool {
	t, ok := target.(*Code)
	if !ok {
		return false
	}
	return t.Domain == c.Domain && t.Name == c.Name
}

func (c *Code) Unwrap() error { return c.wrapped }

// Retryable reports whether the admin function has marked this code as
// safe to retry (e.g. TIM_AF_LF_START_SYNC_FAIL).
func (c *Code) Retryable() bool { return c.retryable }

// Wrap returns a copy of c carrying cause as its wrapped error, preserving
// c's domain/name/retryable flag. Used at call sites that want to attach
// underlying context (a poll timeout, a short read) without losing the
// caller-facing code identity.
func (c *Code) Wrap(cause error) *Code {
	n := *c
	n.wrapped = cause
	return &n
}

func newCode(d Domain, name string, num int, retryable bool) *Code {
	return &Code{Domain: d, Name: name, Num: num, retryable: retryable}
}

// Sentinel codes. Numbering is internal and stable within this module only;
// it does not need to match the source's raw integer values, only its
// domain/semantic structure (spec.md §6).
var (
	ErrNoSpace  = newCode(DomainMbox, "NO_SPACE", -1, false)
	ErrIO       = newCode(DomainMbox, "IO", -2, false)
	ErrParam    = newCode(DomainUtil, "PARAM", -3, false)
	ErrNotSup   = newCode(DomainUtil, "ENOTSUP", -4, false)
	ErrNoMem    = newCode(DomainUtil, "NO_MEM", -5, false)
	ErrTimedOut = newCode(DomainUtil, "TIMEDOUT", -6, false)
	ErrAgain    = newCode(DomainUtil, "AGAIN", -7, true)

	ErrIndexTooLarge   = newCode(DomainPipeline, "INDEX_TOO_LARGE", -10, false)
	ErrWordOffTooLarge = newCode(DomainPipeline, "WORD_OFF_TOO_LARGE", -11, false)
	ErrUnsupField      = newCode(DomainPipeline, "UNSUP_FIELD", -12, false)
	ErrNotFound        = newCode(DomainPipeline, "NOT_FOUND", -13, false)

	ErrPrioOrder  = newCode(DomainNPC, "PRIO_ORDER", -20, false)
	ErrNoMCAM     = newCode(DomainNPC, "NO_MCAM_SPACE", -21, false)
	ErrTL1NoSP    = newCode(DomainTM, "TL1_NO_SP", -30, false)
	ErrNotLeaf    = newCode(DomainTM, "NOT_LEAF", -31, false)

	ErrTimAfLFStartSyncFail = newCode(DomainTIMAF, "LF_START_SYNC_FAIL", -40, true)
)
