// Package vtstore holds the storage interfaces for the consensus core.
package vtstore

import (
	"context"
	"errors"

	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
)

// ErrAlreadyFinalized is returned when saving a finalization
// for a slot that already has one.
var ErrAlreadyFinalized = errors.New("slot already finalized")

// ErrNotFound is returned when loading a finalization
// for a slot that has none.
var ErrNotFound = errors.New("no finalization for slot")

// Finalization records the outcome of one finalized slot.
type Finalization struct {
	Slot uint64

	// The view in which the certificate formed.
	View uint64

	BlockHash string

	// Fast or slow; a skip certificate never finalizes.
	CertType vtconsensus.CertType
}

// FinalizationStore stores and retrieves the finalizations
// the local validator has computed.
//
// Implementations must refuse to overwrite an occupied slot;
// the state machine relies on that as a second line of defense
// behind its own double-finalization guard.
type FinalizationStore interface {
	SaveFinalization(ctx context.Context, fin Finalization) error

	LoadFinalizationBySlot(ctx context.Context, slot uint64) (Finalization, error)
}
