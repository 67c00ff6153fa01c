package vtconsensus

// Tick is the discrete time unit of the protocol model.
// All delays, deadlines, and timestamps are expressed in ticks;
// mapping ticks to wall time is the runner's concern.
type Tick uint64
