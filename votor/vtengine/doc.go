// Package vtengine contains the per-validator consensus state machine.
//
// Each [Votor] cycles through proposing, voting, aggregating,
// and finalizing or timing out, one view at a time.
// Validators share no state directly;
// everything crosses through the network substrate.
package vtengine
