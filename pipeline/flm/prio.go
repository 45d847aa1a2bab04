package flm

import "github.com/nxcore/roc/rocerr"

// nbBins is the number of (limit, flow-type) pairs the FLM scan engine
// dispatches aged-out entries into (hw_mod_flm.c's prio0..prio3 /
// limit0..limit3, ft0..ft3 fields).
const nbBins = 4

// Bin is one priority bin: ClassifyOccupancy returns its FlowType when it
// is the lowest-limit bin whose Limit is at or above the occupancy.
type Bin struct {
	Limit   uint32
	FlowType uint8
}

// PriorityBins holds the four bin definitions plus the scan engine's
// load-driven advance rate counters (spec.md §4.7 "the scan engine
// advances a pointer through the flow-table at a rate driven by the
// 32-bit load_aps/lps/pps counters").
type PriorityBins struct {
	Bins        [nbBins]Bin
	LoadAPS     uint32 // adds per second
	LoadLPS     uint32 // lookups per second
	LoadPPS     uint32 // probes per second
	ScanPointer uint32
}

func NewPriorityBins() *PriorityBins {
	return &PriorityBins{}
}

// SetBin configures bin i's occupancy limit and destination flow type.
func (p *PriorityBins) SetBin(i int, limit uint32, flowType uint8) error {
	if i < 0 || i >= nbBins {
		return rocerr.ErrParam
	}
	p.Bins[i] = Bin{Limit: limit, FlowType: flowType}
	return nil
}

// ClassifyOccupancy returns the flow type of the lowest-limit bin whose
// Limit is at or above the current occupancy, or the highest bin's flow
// type if occupancy exceeds every configured limit.
func (p *PriorityBins) ClassifyOccupancy(occupancy uint32) uint8 {
	best := p.Bins[0]
	bestSet := false
	for _, b := range p.Bins {
		if occupancy <= b.Limit {
			if !bestSet || b.Limit < best.Limit {
				best = b
				bestSet = true
			}
		}
	}
	if bestSet {
		return best.FlowType
	}
	// Occupancy above every limit: fall back to the bin with the largest
	// limit, matching the hardware's last-resort bin.
	max := p.Bins[0]
	for _, b := range p.Bins[1:] {
		if b.Limit > max.Limit {
			max = b
		}
	}
	return max.FlowType
}

// AdvanceScan advances the scan pointer by the number of flow-table slots
// the given load counters justify this tick, wrapping at tableSize.
func (p *PriorityBins) AdvanceScan(tableSize uint32) uint32 {
	if tableSize == 0 {
		return p.ScanPointer
	}
	step := p.LoadAPS + p.LoadLPS + p.LoadPPS
	if step == 0 {
		step = 1
	}
	p.ScanPointer = (p.ScanPointer + step) % tableSize
	return p.ScanPointer
}
