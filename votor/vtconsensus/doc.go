// Package vtconsensus holds the domain types and pure logic
// for the Alpenglow voting protocol ("Votor"):
// validators and stake, quorum thresholds, blocks, votes,
// certificates, and deterministic leader scheduling.
//
// Everything in this package is side-effect free;
// the per-validator state machine lives in
// [github.com/alpenglow-engine/alpenglow/votor/vtengine].
package vtconsensus
