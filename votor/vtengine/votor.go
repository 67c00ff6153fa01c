package vtengine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/alpenglow-engine/alpenglow/agcrypto"
	"github.com/alpenglow-engine/alpenglow/votor/vtcodec"
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
	"github.com/alpenglow-engine/alpenglow/votor/vtstore"
	"github.com/bits-and-blooms/bitset"
)

// certKey identifies one certificate.
// At most one certificate per key is ever stored,
// making aggregation idempotent.
type certKey struct {
	View      uint64
	Type      vtconsensus.CertType
	BlockHash string
}

// skipKey identifies one skip-vote aggregation.
// Skip sign bytes cover the slot, so votes for the same view but
// different slots carry different messages and never share a proof.
type skipKey struct {
	View uint64
	Slot uint64
}

// Votor is one validator's consensus state machine.
//
// All operations are serialized by a single mutex:
// propose, vote, aggregate, and timeout all read-modify-write
// the same view and vote state.
type Votor struct {
	log *slog.Logger

	cfg Config

	bcast Broadcaster

	mu sync.Mutex

	view uint64
	slot uint64

	lastFinalizedHash string

	deadline vtconsensus.Tick

	// view -> whether we proposed.
	proposed map[uint64]bool

	// view -> block hash we commit-voted for.
	votedBlocks map[uint64]string

	// view -> whether we skip-voted.
	skipVoted map[uint64]bool

	// Blocks observed, by hash.
	blocks map[string]vtconsensus.Block

	// view -> per-block commit-vote proofs.
	commitProofs map[uint64]*vtconsensus.VoteProof

	// Views with commit votes recorded since the last aggregation pass.
	dirtyViews map[uint64]bool

	skipProofs map[skipKey]agcrypto.AggregateSignatureProof

	// view -> voter -> first commit vote seen, for equivocation detection.
	firstCommit map[uint64]map[vtconsensus.ValidatorID]vtconsensus.Vote

	certs map[certKey]vtconsensus.Certificate

	// Certificates waiting on block content,
	// relying on the propagation layer's availability promise.
	pendingFinalize map[string]vtconsensus.Certificate

	finalized []vtconsensus.Block

	evidence []vtconsensus.Evidence
}

// NewVotor validates the configuration and returns a state machine
// positioned at slot 1, view 1, with its first timeout armed from tick 0.
func NewVotor(log *slog.Logger, cfg Config, bcast Broadcaster) (*Votor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if bcast == nil {
		return nil, fmt.Errorf("nil broadcaster")
	}

	v := &Votor{
		log: log,

		cfg: cfg,

		bcast: bcast,

		view: 1,
		slot: 1,

		lastFinalizedHash: vtconsensus.ZeroHash,

		proposed:    make(map[uint64]bool),
		votedBlocks: make(map[uint64]string),
		skipVoted:   make(map[uint64]bool),

		blocks: make(map[string]vtconsensus.Block),

		commitProofs: make(map[uint64]*vtconsensus.VoteProof),
		dirtyViews:   make(map[uint64]bool),
		skipProofs:   make(map[skipKey]agcrypto.AggregateSignatureProof),

		firstCommit: make(map[uint64]map[vtconsensus.ValidatorID]vtconsensus.Vote),

		certs:           make(map[certKey]vtconsensus.Certificate),
		pendingFinalize: make(map[string]vtconsensus.Certificate),
	}
	v.deadline = cfg.Timeouts.TimeoutFor(v.view)

	return v, nil
}

// MaybePropose proposes a block if the local validator is the scheduled
// leader for the current (slot, view) and has not yet proposed this view.
// The leader also immediately casts its own commit vote.
func (v *Votor) MaybePropose(ctx context.Context, now vtconsensus.Tick) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	leader := v.cfg.Schedule.ComputeLeader(v.slot, v.view, v.cfg.Ledger)
	if leader != v.cfg.Self || v.proposed[v.view] {
		return false, nil
	}

	b := vtconsensus.Block{
		Slot:       v.slot,
		View:       v.view,
		ParentHash: v.lastFinalizedHash,
		Proposer:   v.cfg.Self,
		Timestamp:  now,
	}

	hash, err := v.cfg.HashScheme.BlockHash(b)
	if err != nil {
		return false, fmt.Errorf("failed to hash proposed block: %w", err)
	}
	b.Hash = hash

	signContent, err := vtconsensus.ProposalSignBytes(b, v.cfg.SigScheme)
	if err != nil {
		return false, fmt.Errorf("failed to build proposal sign bytes: %w", err)
	}
	b.Signature, err = v.cfg.Signer.Sign(ctx, signContent)
	if err != nil {
		return false, fmt.Errorf("failed to sign proposal: %w", err)
	}

	v.proposed[v.view] = true
	v.blocks[b.Hash] = b

	if err := v.broadcastLocked(vtcodec.ConsensusMessage{Block: &b}, now); err != nil {
		return false, err
	}

	v.log.Info(
		"Proposed block",
		"slot", b.Slot, "view", b.View, "hash", fmt.Sprintf("%x", b.Hash[:4]),
	)

	// The leader votes for its own block.
	if err := v.castCommitVoteLocked(ctx, b, now); err != nil {
		return true, err
	}

	return true, nil
}

// HandleMessage decodes and dispatches one delivered payload.
// All errors are local: the caller logs and moves on.
func (v *Votor) HandleMessage(
	ctx context.Context,
	sender vtconsensus.ValidatorID,
	payload []byte,
	now vtconsensus.Tick,
) error {
	m, err := vtcodec.Unmarshal(payload)
	if err != nil {
		return fmt.Errorf("undecodable payload from %d: %w", sender, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case m.Block != nil:
		return v.handleBlockLocked(ctx, *m.Block, now)
	case m.Vote != nil:
		return v.handleVoteLocked(ctx, *m.Vote, now)
	case m.Certificate != nil:
		return v.handleCertificateLocked(ctx, sender, *m.Certificate, now)
	default:
		return fmt.Errorf("empty consensus message from %d", sender)
	}
}

func (v *Votor) handleBlockLocked(
	ctx context.Context,
	b vtconsensus.Block,
	now vtconsensus.Tick,
) error {
	hash, err := v.cfg.HashScheme.BlockHash(b)
	if err != nil {
		return fmt.Errorf("failed to hash received block: %w", err)
	}
	if hash != b.Hash {
		return fmt.Errorf("%w: declared hash does not match contents", vtconsensus.ErrInvalidBlock)
	}

	leader := v.cfg.Schedule.ComputeLeader(b.Slot, b.View, v.cfg.Ledger)
	if b.Proposer != leader {
		return fmt.Errorf(
			"%w: proposer %d is not the leader %d for slot %d view %d",
			vtconsensus.ErrInvalidBlock, b.Proposer, leader, b.Slot, b.View,
		)
	}

	signContent, err := vtconsensus.ProposalSignBytes(b, v.cfg.SigScheme)
	if err != nil {
		return fmt.Errorf("failed to build proposal sign bytes: %w", err)
	}
	if !v.cfg.ValSet.Validators[b.Proposer].PubKey.Verify(signContent, b.Signature) {
		return fmt.Errorf("%w: bad proposer signature", vtconsensus.ErrInvalidBlock)
	}

	// A certificate may have arrived before the block content;
	// the propagation layer promised the block would follow.
	// The slot finalizes even if the view has moved on since,
	// so the held certificate is consulted ahead of the stale check.
	if cert, ok := v.pendingFinalize[b.Hash]; ok {
		delete(v.pendingFinalize, b.Hash)
		v.blocks[b.Hash] = b
		return v.finalizeLocked(ctx, cert, now)
	}

	if b.View < v.view || b.Slot < v.slot {
		return fmt.Errorf(
			"%w: block for slot %d view %d, at slot %d view %d",
			vtconsensus.ErrStaleMessage, b.Slot, b.View, v.slot, v.view,
		)
	}

	v.blocks[b.Hash] = b

	if b.Slot != v.slot || b.View != v.view {
		// Ahead of us; hold the block without voting.
		return nil
	}

	if b.ParentHash != v.lastFinalizedHash {
		return fmt.Errorf("%w: parent does not extend the finalized chain", vtconsensus.ErrInvalidBlock)
	}

	if _, voted := v.votedBlocks[v.view]; voted {
		// One commit vote per view.
		return nil
	}

	return v.castCommitVoteLocked(ctx, b, now)
}

func (v *Votor) castCommitVoteLocked(
	ctx context.Context,
	b vtconsensus.Block,
	now vtconsensus.Tick,
) error {
	vt := vtconsensus.VoteTarget{Slot: b.Slot, View: b.View, BlockHash: b.Hash}

	vote := vtconsensus.Vote{
		Voter:     v.cfg.Self,
		Target:    vt,
		Type:      vtconsensus.VoteCommit,
		Timestamp: now,
	}

	signContent, err := vote.SignBytes(v.cfg.SigScheme)
	if err != nil {
		return fmt.Errorf("failed to build commit sign bytes: %w", err)
	}
	vote.Signature, err = v.cfg.Signer.Sign(ctx, signContent)
	if err != nil {
		return fmt.Errorf("failed to sign commit vote: %w", err)
	}

	v.votedBlocks[b.View] = b.Hash

	if err := v.recordCommitVoteLocked(vote); err != nil {
		return err
	}

	if err := v.broadcastLocked(vtcodec.ConsensusMessage{Vote: &vote}, now); err != nil {
		return err
	}

	v.dirtyViews[b.View] = true
	return nil
}

func (v *Votor) handleVoteLocked(
	ctx context.Context,
	vote vtconsensus.Vote,
	now vtconsensus.Tick,
) error {
	if vote.Target.View < v.view {
		return fmt.Errorf(
			"%w: vote for view %d, at view %d",
			vtconsensus.ErrStaleMessage, vote.Target.View, v.view,
		)
	}
	if !v.cfg.ValSet.InRange(vote.Voter) {
		return fmt.Errorf("%w: unknown voter %d", vtconsensus.ErrInvalidVote, vote.Voter)
	}

	signContent, err := vote.SignBytes(v.cfg.SigScheme)
	if err != nil {
		return fmt.Errorf("%w: %v", vtconsensus.ErrInvalidVote, err)
	}
	if !v.cfg.ValSet.Validators[vote.Voter].PubKey.Verify(signContent, vote.Signature) {
		return fmt.Errorf("%w: bad signature from voter %d", vtconsensus.ErrInvalidVote, vote.Voter)
	}

	switch vote.Type {
	case vtconsensus.VoteCommit:
		if vote.Target.BlockHash == vtconsensus.ZeroHash {
			return fmt.Errorf("%w: commit vote without a block", vtconsensus.ErrInvalidVote)
		}

		equivocated := v.detectEquivocationLocked(vote)

		if err := v.recordCommitVoteLocked(vote); err != nil {
			return err
		}
		v.dirtyViews[vote.Target.View] = true

		if equivocated {
			return fmt.Errorf(
				"%w: voter %d in view %d", vtconsensus.ErrEquivocation,
				vote.Voter, vote.Target.View,
			)
		}
		return nil

	case vtconsensus.VoteSkip:
		if vote.Target.BlockHash != vtconsensus.ZeroHash {
			return fmt.Errorf("%w: skip vote carrying a block hash", vtconsensus.ErrInvalidVote)
		}

		if err := v.recordSkipVoteLocked(vote); err != nil {
			return err
		}
		return v.checkSkipQuorumLocked(vote.Target.View, vote.Target.Slot, now)

	default:
		return fmt.Errorf("%w: unknown vote type %d", vtconsensus.ErrInvalidVote, vote.Type)
	}
}

// detectEquivocationLocked records double-vote evidence when the voter
// already committed to a different block this view.
// The vote itself still enters its own block's proof;
// the per-block signer bitsets guarantee the stake is never
// double-counted within a single certificate.
func (v *Votor) detectEquivocationLocked(vote vtconsensus.Vote) bool {
	view := vote.Target.View

	byVoter, ok := v.firstCommit[view]
	if !ok {
		byVoter = make(map[vtconsensus.ValidatorID]vtconsensus.Vote)
		v.firstCommit[view] = byVoter
	}

	first, seen := byVoter[vote.Voter]
	if !seen {
		byVoter[vote.Voter] = vote
		return false
	}
	if first.Target.BlockHash == vote.Target.BlockHash {
		return false
	}

	v.evidence = append(v.evidence, vtconsensus.Evidence{
		Type:    vtconsensus.EvidenceDoubleVote,
		Accused: vote.Voter,
		Slot:    vote.Target.Slot,
		View:    view,
		Votes:   []vtconsensus.Vote{first, vote},
	})

	v.log.Warn(
		"Recorded double-vote evidence",
		"voter", vote.Voter, "view", view,
	)

	return true
}

func (v *Votor) recordCommitVoteLocked(vote vtconsensus.Vote) error {
	view := vote.Target.View

	vp, ok := v.commitProofs[view]
	if !ok {
		vp = &vtconsensus.VoteProof{
			Slot:   vote.Target.Slot,
			View:   view,
			Proofs: make(map[string]agcrypto.AggregateSignatureProof),
		}
		v.commitProofs[view] = vp
	}

	proof, ok := vp.Proofs[vote.Target.BlockHash]
	if !ok {
		signContent, err := vtconsensus.CommitSignBytes(vote.Target, v.cfg.SigScheme)
		if err != nil {
			return fmt.Errorf("failed to build commit sign bytes: %w", err)
		}
		proof, err = v.cfg.ProofScheme.New(signContent, v.cfg.ValSet.PubKeys(), v.cfg.ValSet.PubKeyHash)
		if err != nil {
			return fmt.Errorf("failed to build commit proof: %w", err)
		}
		vp.Proofs[vote.Target.BlockHash] = proof
	}

	if err := proof.AddSignature(vote.Signature, v.cfg.ValSet.Validators[vote.Voter].PubKey); err != nil {
		return fmt.Errorf("%w: %v", vtconsensus.ErrInvalidVote, err)
	}

	return nil
}

func (v *Votor) recordSkipVoteLocked(vote vtconsensus.Vote) error {
	key := skipKey{View: vote.Target.View, Slot: vote.Target.Slot}

	proof, ok := v.skipProofs[key]
	if !ok {
		signContent, err := vtconsensus.SkipSignBytes(vote.Target, v.cfg.SigScheme)
		if err != nil {
			return fmt.Errorf("failed to build skip sign bytes: %w", err)
		}
		proof, err = v.cfg.ProofScheme.New(signContent, v.cfg.ValSet.PubKeys(), v.cfg.ValSet.PubKeyHash)
		if err != nil {
			return fmt.Errorf("failed to build skip proof: %w", err)
		}
		v.skipProofs[key] = proof
	}

	if err := proof.AddSignature(vote.Signature, v.cfg.ValSet.Validators[vote.Voter].PubKey); err != nil {
		return fmt.Errorf("%w: %v", vtconsensus.ErrInvalidVote, err)
	}

	return nil
}

// attemptAggregateLocked checks each candidate block's verified stake
// in the view against the fast then slow thresholds.
// It runs once per tick rather than per vote, so a burst of deliveries
// is judged against the fast threshold as a whole instead of tripping
// the slow threshold partway through the burst.
// Certificates are idempotent per (view, type, block):
// a duplicate trigger is a no-op.
func (v *Votor) attemptAggregateLocked(
	ctx context.Context,
	view uint64,
	now vtconsensus.Tick,
) error {
	vp, ok := v.commitProofs[view]
	if !ok {
		return nil
	}

	var bits bitset.BitSet
	for blockHash, proof := range vp.Proofs {
		proof.SignatureBitSet(&bits)
		stake := v.cfg.Ledger.StakeOfBits(&bits)

		var ct vtconsensus.CertType
		switch {
		case v.cfg.Ledger.MeetsFastQuorum(stake):
			ct = vtconsensus.CertFast
		case v.cfg.Ledger.MeetsSlowQuorum(stake):
			ct = vtconsensus.CertSlow
		default:
			continue
		}

		key := certKey{View: view, Type: ct, BlockHash: blockHash}
		if _, have := v.certs[key]; have {
			continue
		}

		cert, err := vtconsensus.BuildCertificate(vp.Slot, view, blockHash, ct, proof, v.cfg.Ledger)
		if err != nil {
			return err
		}
		v.certs[key] = cert

		v.log.Info(
			"Aggregated certificate",
			"type", ct, "slot", cert.Slot, "view", view, "stake", stake,
		)

		if err := v.broadcastLocked(vtcodec.ConsensusMessage{Certificate: &cert}, now); err != nil {
			return err
		}

		if err := v.finalizeLocked(ctx, cert, now); err != nil {
			return err
		}
	}

	return nil
}

// checkSkipQuorumLocked advances the view once skip stake reaches
// the skip threshold, independent of the local deadline.
// This lets a lagging validator jump ahead as soon as quorum
// agreement to skip is visible.
func (v *Votor) checkSkipQuorumLocked(view, slot uint64, now vtconsensus.Tick) error {
	proof, ok := v.skipProofs[skipKey{View: view, Slot: slot}]
	if !ok {
		return nil
	}

	var bits bitset.BitSet
	proof.SignatureBitSet(&bits)
	stake := v.cfg.Ledger.StakeOfBits(&bits)

	if !v.cfg.Ledger.MeetsSkipQuorum(stake) {
		return nil
	}

	key := certKey{View: view, Type: vtconsensus.CertSkip, BlockHash: vtconsensus.ZeroHash}
	if _, have := v.certs[key]; !have {
		cert, err := vtconsensus.BuildCertificate(
			slot, view, vtconsensus.ZeroHash, vtconsensus.CertSkip, proof, v.cfg.Ledger,
		)
		if err != nil {
			return err
		}
		v.certs[key] = cert

		v.log.Info(
			"Aggregated skip certificate",
			"slot", cert.Slot, "view", view, "stake", stake,
		)

		if err := v.broadcastLocked(vtcodec.ConsensusMessage{Certificate: &cert}, now); err != nil {
			return err
		}
	}

	v.advancePastViewLocked(view, now)
	return nil
}

func (v *Votor) handleCertificateLocked(
	ctx context.Context,
	sender vtconsensus.ValidatorID,
	cert vtconsensus.Certificate,
	now vtconsensus.Tick,
) error {
	key := certKey{View: cert.View, Type: cert.Type, BlockHash: cert.BlockHash}
	if _, have := v.certs[key]; have {
		return nil
	}

	switch cert.Type {
	case vtconsensus.CertSkip:
		if cert.View < v.view {
			return fmt.Errorf(
				"%w: skip certificate for view %d, at view %d",
				vtconsensus.ErrStaleMessage, cert.View, v.view,
			)
		}
	case vtconsensus.CertFast, vtconsensus.CertSlow:
		if cert.Slot < v.slot {
			return fmt.Errorf(
				"%w: certificate for slot %d, at slot %d",
				vtconsensus.ErrStaleMessage, cert.Slot, v.slot,
			)
		}
	}

	if err := vtconsensus.ValidateCertificate(
		cert, v.cfg.Ledger, v.cfg.SigScheme, v.cfg.ProofScheme,
	); err != nil {
		v.evidence = append(v.evidence, vtconsensus.Evidence{
			Type:        vtconsensus.EvidenceForgedCertificate,
			Accused:     sender,
			Slot:        cert.Slot,
			View:        cert.View,
			Certificate: &cert,
		})

		v.log.Warn(
			"Rejected certificate",
			"sender", sender, "slot", cert.Slot, "view", cert.View, "err", err,
		)
		return err
	}

	v.certs[key] = cert

	if cert.Type == vtconsensus.CertSkip {
		v.advancePastViewLocked(cert.View, now)
		return nil
	}

	return v.finalizeLocked(ctx, cert, now)
}

// finalizeLocked appends the certified block to the finalized chain.
// The single mutex plus the slot cursor make the occupied-slot check
// atomic against competing certificates for the same slot:
// the first certificate advances the cursor, the second sees a past slot.
func (v *Votor) finalizeLocked(
	ctx context.Context,
	cert vtconsensus.Certificate,
	now vtconsensus.Tick,
) error {
	if cert.Type != vtconsensus.CertFast && cert.Type != vtconsensus.CertSlow {
		return fmt.Errorf("%w: cannot finalize from a %s certificate", vtconsensus.ErrInvalidCertificate, cert.Type)
	}

	if cert.Slot != v.slot {
		// Already finalized, or a future slot we cannot append yet.
		return nil
	}

	block, ok := v.blocks[cert.BlockHash]
	if !ok {
		// Block content not yet delivered; finalize on arrival.
		v.pendingFinalize[cert.BlockHash] = cert
		return nil
	}

	if err := v.cfg.Store.SaveFinalization(ctx, vtstore.Finalization{
		Slot:      cert.Slot,
		View:      cert.View,
		BlockHash: cert.BlockHash,
		CertType:  cert.Type,
	}); err != nil {
		return fmt.Errorf("failed to persist finalization for slot %d: %w", cert.Slot, err)
	}

	v.finalized = append(v.finalized, block)
	v.lastFinalizedHash = cert.BlockHash
	v.slot++

	v.log.Info(
		"Finalized block",
		"slot", cert.Slot, "view", cert.View, "type", cert.Type,
		"hash", fmt.Sprintf("%x", cert.BlockHash[:4]),
	)

	// The decided view is spent; move to the next.
	v.advancePastViewLocked(cert.View, now)

	return nil
}

// Tick runs the per-tick work: aggregate the views that received
// commit votes since the last tick, then fire the timeout path if the
// local clock has reached the deadline. The timeout path casts a skip
// vote for the current view and advances with a fresh adaptive deadline.
func (v *Votor) Tick(ctx context.Context, now vtconsensus.Tick) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.aggregateDirtyLocked(ctx, now); err != nil {
		return err
	}

	if now < v.deadline {
		return nil
	}

	return v.handleTimeoutLocked(ctx, now)
}

func (v *Votor) aggregateDirtyLocked(ctx context.Context, now vtconsensus.Tick) error {
	if len(v.dirtyViews) == 0 {
		return nil
	}

	views := make([]uint64, 0, len(v.dirtyViews))
	for view := range v.dirtyViews {
		views = append(views, view)
	}
	slices.Sort(views)
	clear(v.dirtyViews)

	for _, view := range views {
		if err := v.attemptAggregateLocked(ctx, view, now); err != nil {
			return err
		}
	}
	return nil
}

func (v *Votor) handleTimeoutLocked(ctx context.Context, now vtconsensus.Tick) error {
	view := v.view

	if !v.skipVoted[view] {
		vt := vtconsensus.VoteTarget{
			Slot:      v.slot,
			View:      view,
			BlockHash: vtconsensus.ZeroHash,
		}
		vote := vtconsensus.Vote{
			Voter:     v.cfg.Self,
			Target:    vt,
			Type:      vtconsensus.VoteSkip,
			Timestamp: now,
		}

		signContent, err := vote.SignBytes(v.cfg.SigScheme)
		if err != nil {
			return fmt.Errorf("failed to build skip sign bytes: %w", err)
		}
		vote.Signature, err = v.cfg.Signer.Sign(ctx, signContent)
		if err != nil {
			return fmt.Errorf("failed to sign skip vote: %w", err)
		}

		v.skipVoted[view] = true

		// A recording failure only loses our contribution to the
		// local tally; the broadcast below still reaches everyone
		// else, and the view must advance regardless.
		if err := v.recordSkipVoteLocked(vote); err != nil {
			v.log.Warn("Failed to record own skip vote", "view", view, "err", err)
		}
		if err := v.broadcastLocked(vtcodec.ConsensusMessage{Vote: &vote}, now); err != nil {
			return err
		}

		v.log.Info("View timed out", "slot", v.slot, "view", view, "deadline", v.deadline)

		// Our own skip vote may be the one that completes the quorum.
		if err := v.checkSkipQuorumLocked(view, v.slot, now); err != nil {
			return err
		}
	}

	v.advancePastViewLocked(view, now)
	return nil
}

// advancePastViewLocked moves the view cursor beyond the given view.
// Views only ever increase.
func (v *Votor) advancePastViewLocked(view uint64, now vtconsensus.Tick) {
	if v.view > view {
		return
	}

	v.view = view + 1
	v.deadline = now + v.cfg.Timeouts.TimeoutFor(v.view)
}

func (v *Votor) broadcastLocked(m vtcodec.ConsensusMessage, now vtconsensus.Tick) error {
	payload, err := vtcodec.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", m.Type(), err)
	}

	if _, err := v.bcast.Broadcast(v.cfg.Self, payload, now); err != nil {
		return fmt.Errorf("failed to broadcast %s message: %w", m.Type(), err)
	}

	return nil
}

// Self returns the local validator's ID.
func (v *Votor) Self() vtconsensus.ValidatorID {
	return v.cfg.Self
}

// View returns the current view. Monotonically non-decreasing.
func (v *Votor) View() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view
}

// Slot returns the next slot to finalize.
func (v *Votor) Slot() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.slot
}

// Deadline returns the tick at which the current view times out.
func (v *Votor) Deadline() vtconsensus.Tick {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deadline
}

// FinalizedChain returns a copy of the finalized blocks in slot order.
func (v *Votor) FinalizedChain() []vtconsensus.Block {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]vtconsensus.Block, len(v.finalized))
	copy(out, v.finalized)
	return out
}

// Certificates returns a copy of every certificate this validator
// has aggregated or accepted.
func (v *Votor) Certificates() []vtconsensus.Certificate {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]vtconsensus.Certificate, 0, len(v.certs))
	for _, c := range v.certs {
		out = append(out, c)
	}
	return out
}

// Evidence returns a copy of the recorded Byzantine evidence,
// for consumption by an external slashing layer.
func (v *Votor) Evidence() []vtconsensus.Evidence {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]vtconsensus.Evidence, len(v.evidence))
	copy(out, v.evidence)
	return out
}
