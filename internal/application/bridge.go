package application

import (
	"context"
	"fmt"

	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.SampleExecutor = (*SlotBridge)(nil)

// SampleSlot is one pending sample execution handed to the host. The host
// invokes the user-supplied sampled operation with the slot's factor
// configuration and reports back through RecordResult.
type SampleSlot struct {
	// Factors is the input configuration selected for this sample.
	Factors domain.FactorConfiguration

	result chan slotResult
}

type slotResult struct {
	outcome domain.SampleOutcome
	err     error
}

// SlotBridge adapts a pull-style host test-runtime to the SampleExecutor
// contract. The runner pushes each sample into the bridge; the host drains
// slots with NextSampleSlot, executes the sampled operation, and reports
// outcomes with RecordResult. This keeps all orchestration logic on the
// harness side and makes the host adapter a thin, swappable shim.
type SlotBridge struct {
	slots chan *SampleSlot
}

// NewSlotBridge creates a bridge. The buffer bounds how many samples may
// be pending host pickup at once; parallel hosts typically size it to
// their slot count.
func NewSlotBridge(buffer int) *SlotBridge {
	if buffer < 0 {
		buffer = 0
	}
	return &SlotBridge{slots: make(chan *SampleSlot, buffer)}
}

// ExecuteSample hands one sample to the host and blocks until the host
// records its result or the context is cancelled.
func (b *SlotBridge) ExecuteSample(ctx context.Context, factors domain.FactorConfiguration) (domain.SampleOutcome, error) {
	slot := &SampleSlot{
		Factors: factors,
		result:  make(chan slotResult, 1),
	}

	select {
	case b.slots <- slot:
	case <-ctx.Done():
		return domain.SampleOutcome{}, fmt.Errorf("sample slot handoff cancelled: %w", ctx.Err())
	}

	select {
	case res := <-slot.result:
		return res.outcome, res.err
	case <-ctx.Done():
		return domain.SampleOutcome{}, fmt.Errorf("sample result wait cancelled: %w", ctx.Err())
	}
}

// NextSampleSlot blocks until the runner offers the next sample, returning
// ok=false when the context is cancelled. Hosts loop on this until their
// run context ends.
func (b *SlotBridge) NextSampleSlot(ctx context.Context) (*SampleSlot, bool) {
	select {
	case slot := <-b.slots:
		return slot, true
	case <-ctx.Done():
		return nil, false
	}
}

// RecordResult reports the outcome (or error) of a slot's execution back
// to the waiting runner. It must be called exactly once per slot.
func (b *SlotBridge) RecordResult(slot *SampleSlot, outcome domain.SampleOutcome, err error) {
	slot.result <- slotResult{outcome: outcome, err: err}
}
