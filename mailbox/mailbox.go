// Package mailbox implements the message-level contract of the shared-
// memory ring carrying requests between a host logical function and the
// administrative function (spec.md §4.1). Only the message framing and
// request/response sequencing are modeled here; the physical transport is
// out of scope (spec.md §1).
package mailbox

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/nxcore/roc/rocerr"
)

const (
	reqSig uint16 = 0xdead
	rspSig uint16 = 0xbeef

	maxBodyLen uint32 = 32 * 1024 * 1024 // 32MiB, mirrors the teacher's maxTagRequestLen ceiling
)

var (
	ErrBadSignature = errors.New("mailbox: bad message signature")
	ErrBodyTooLarge = errors.New("mailbox: message body exceeds maximum length")
	ErrInFlight     = errors.New("mailbox: a transaction is already in flight on this direction")
)

// ID names a message type, mirroring the source's per-request numeric ids
// (kept as strings here since nothing downstream depends on a stable wire
// number within this module boundary).
type ID string

// ReqHeader precedes every request body on the ring.
type ReqHeader struct {
	Sig      uint16
	ID       ID
	PCIFunc  uint16
	TxnID    uuid.UUID
	NextOff  uint32
}

// RspHeader precedes every response body.
type RspHeader struct {
	Sig   uint16
	ID    ID
	TxnID uuid.UUID
	RC    int32
}

// writeFramed emits hdr followed by the length-prefixed JSON-encoded body,
// grounded on the teacher's StateResponse/TagRequest length-prefixed JSON
// framing (auth.go). rc is the admin-function status carried in
// RspHeader.RC (always 0 on the request direction, since the host never
// reports a status to itself).
func writeFramed(w io.Writer, sig uint16, id ID, txn uuid.UUID, rc int32, body interface{}) error {
	bb, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if uint32(len(bb)) > maxBodyLen {
		return rocerr.ErrParam.Wrap(ErrBodyTooLarge)
	}
	if err := binary.Write(w, binary.LittleEndian, sig); err != nil {
		return err
	}
	idb := []byte(id)
	if err := binary.Write(w, binary.LittleEndian, uint16(len(idb))); err != nil {
		return err
	}
	if _, err := w.Write(idb); err != nil {
		return err
	}
	if _, err := w.Write(txn[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, rc); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(bb))); err != nil {
		return err
	}
	n, err := io.Copy(w, bytes.NewReader(bb))
	if err != nil {
		return err
	}
	if uint32(n) != uint32(len(bb)) {
		return rocerr.ErrIO.Wrap(errors.New("mailbox: short body write"))
	}
	return nil
}

func readFramed(r io.Reader, wantSig uint16, body interface{}) (ID, uuid.UUID, int32, error) {
	var sig uint16
	var txn uuid.UUID
	if err := binary.Read(r, binary.LittleEndian, &sig); err != nil {
		return "", txn, 0, err
	}
	if sig != wantSig {
		return "", txn, 0, rocerr.ErrIO.Wrap(ErrBadSignature)
	}
	var idlen uint16
	if err := binary.Read(r, binary.LittleEndian, &idlen); err != nil {
		return "", txn, 0, err
	}
	idb := make([]byte, idlen)
	if _, err := io.ReadFull(r, idb); err != nil {
		return "", txn, 0, err
	}
	if _, err := io.ReadFull(r, txn[:]); err != nil {
		return "", txn, 0, err
	}
	var rc int32
	if err := binary.Read(r, binary.LittleEndian, &rc); err != nil {
		return "", txn, 0, err
	}
	var l uint32
	if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
		return "", txn, rc, err
	}
	if l > maxBodyLen {
		return "", txn, rc, rocerr.ErrIO.Wrap(ErrBodyTooLarge)
	}
	bb := make([]byte, l)
	if _, err := io.ReadFull(r, bb); err != nil {
		return "", txn, rc, err
	}
	if body != nil {
		if err := json.Unmarshal(bb, body); err != nil {
			return "", txn, rc, rocerr.ErrIO.Wrap(err)
		}
	}
	return ID(idb), txn, rc, nil
}

// rcToErr maps an admin-function status code to the matching rocerr
// sentinel, the wire-level counterpart of the domain-prefixed codes the
// rest of the control plane returns. Unrecognized non-zero codes are
// wrapped as a generic IO error rather than silently read as success.
func rcToErr(rc int32) error {
	switch rc {
	case 0:
		return nil
	case int32(rocerr.ErrNoSpace.Num):
		return rocerr.ErrNoSpace
	case int32(rocerr.ErrIO.Num):
		return rocerr.ErrIO
	case int32(rocerr.ErrParam.Num):
		return rocerr.ErrParam
	case int32(rocerr.ErrNotSup.Num):
		return rocerr.ErrNotSup
	case int32(rocerr.ErrNoMem.Num):
		return rocerr.ErrNoMem
	case int32(rocerr.ErrTimedOut.Num):
		return rocerr.ErrTimedOut
	case int32(rocerr.ErrAgain.Num):
		return rocerr.ErrAgain
	case int32(rocerr.ErrTimAfLFStartSyncFail.Num):
		return rocerr.ErrTimAfLFStartSyncFail
	default:
		return rocerr.ErrIO.Wrap(fmt.Errorf("mailbox: admin function returned rc=%d", rc))
	}
}

// Box is one direction of the mailbox (downlink AF<->PF or uplink AF<->PF,
// spec.md §3 "Device handle"). A single transaction is in flight at a time,
// matching the source's single-outstanding-request discipline.
type Box struct {
	mu sync.Mutex
	rw io.ReadWriter

	inflight bool
}

func New(rw io.ReadWriter) *Box {
	return &Box{rw: rw}
}

// Msg is a pending outbound request obtained from AllocMsg; callers
// populate Body then call Process or ProcessMsg.
type Msg struct {
	box  *Box
	id   ID
	txn  uuid.UUID
	Body interface{}
}

// AllocMsg reserves the single in-flight slot for id and returns a Msg the
// caller fills in before calling Process/ProcessMsg. Returns
// rocerr.ErrNoSpace if a transaction is already outstanding.
func (b *Box) AllocMsg(id ID, body interface{}) (*Msg, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inflight {
		return nil, rocerr.ErrNoSpace.Wrap(ErrInFlight)
	}
	b.inflight = true
	return &Msg{box: b, id: id, txn: uuid.New(), Body: body}, nil
}

// Process sends m and waits for a response, discarding its body — the
// fire-and-wait form of spec.md §4.1.
func (m *Msg) Process() error {
	_, err := m.ProcessMsg(nil)
	return err
}

// ProcessMsg sends m and decodes the response body into rsp (nil to
// discard), returning the admin function's status code and, when that
// code is non-zero, an error identifying it (ErrIO, ErrNoSpace,
// ErrTimAfLFStartSyncFail, ...) so callers like sso/tim's enable-ring
// retry loops can distinguish a rejected request from a transport
// failure.
func (m *Msg) ProcessMsg(rsp interface{}) (int32, error) {
	defer func() {
		m.box.mu.Lock()
		m.box.inflight = false
		m.box.mu.Unlock()
	}()
	if err := writeFramed(m.box.rw, reqSig, m.id, m.txn, 0, m.Body); err != nil {
		return 0, rocerr.ErrIO.Wrap(err)
	}
	rspID, rspTxn, rc, err := readFramed(m.box.rw, rspSig, rsp)
	if err != nil {
		return rc, rocerr.ErrIO.Wrap(err)
	}
	if rspID != m.id || rspTxn != m.txn {
		return rc, rocerr.ErrIO.Wrap(errors.New("mailbox: response does not match request"))
	}
	return rc, rcToErr(rc)
}
