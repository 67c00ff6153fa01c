package vtconsensus

// EvidenceType classifies Byzantine behavior observed by a validator.
type EvidenceType uint8

const (
	// Conflicting commit votes from one voter in one view.
	EvidenceDoubleVote EvidenceType = iota

	// A certificate that failed full revalidation.
	EvidenceForgedCertificate
)

func (t EvidenceType) String() string {
	switch t {
	case EvidenceDoubleVote:
		return "double_vote"
	case EvidenceForgedCertificate:
		return "forged_certificate"
	default:
		return "unknown"
	}
}

// Evidence is a structured record of observed Byzantine behavior,
// emitted for consumption by an external slashing collaborator.
// The consensus core records evidence but never acts on it.
type Evidence struct {
	Type EvidenceType

	Accused ValidatorID

	Slot uint64
	View uint64

	// The conflicting votes, for double-vote evidence.
	Votes []Vote

	// The rejected certificate, for forged-certificate evidence.
	Certificate *Certificate
}
