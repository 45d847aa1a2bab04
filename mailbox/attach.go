package mailbox

import "github.com/nxcore/roc/rocerr"

// ResourceKind names an attachable logical-function class (spec.md §4.1).
type ResourceKind string

const (
	ResourceSSOHWS   ResourceKind = "sso_hws"
	ResourceSSOHWGRP ResourceKind = "sso_hwgrp"
	ResourceNPA      ResourceKind = "npa"
	ResourceTIM      ResourceKind = "tim"
	ResourceCPT      ResourceKind = "cpt"
	ResourceNIX      ResourceKind = "nix"
)

// AttachRequest asks the admin function for up to Count logical functions
// of each requested kind.
type AttachRequest struct {
	Counts map[ResourceKind]int
}

// AttachResponse carries the admin-function-granted counts, which may be
// less than requested (spec.md §4.1: "the admin function may grant fewer").
type AttachResponse struct {
	Granted map[ResourceKind]int
}

// Attach performs the resource-attach handshake and clamps each requested
// count to what was granted, recording the result via record (typically
// (*roc.Device).SetAttached).
func Attach(b *Box, req AttachRequest, record func(kind string, granted int)) (AttachResponse, error) {
	msg, err := b.AllocMsg("attach", req)
	if err != nil {
		return AttachResponse{}, err
	}
	var rsp AttachResponse
	if _, err := msg.ProcessMsg(&rsp); err != nil {
		return AttachResponse{}, err
	}
	for kind, want := range req.Counts {
		granted := rsp.Granted[kind]
		if granted > want {
			granted = want // never trust the admin function to grant more than asked
		}
		if record != nil {
			record(string(kind), granted)
		}
	}
	return rsp, nil
}

// DetachRequest releases previously attached resources.
type DetachRequest struct {
	Kinds []ResourceKind
}

// Detach is the symmetric operation to Attach.
func Detach(b *Box, req DetachRequest, record func(kind string, granted int)) error {
	msg, err := b.AllocMsg("detach", req)
	if err != nil {
		return rocerr.ErrIO.Wrap(err)
	}
	if err := msg.Process(); err != nil {
		return err
	}
	for _, kind := range req.Kinds {
		if record != nil {
			record(string(kind), 0)
		}
	}
	return nil
}
