// Package vtnetwork is the partial-synchrony message substrate
// the consensus core runs on.
//
// Before GST, delivery delay is bounded but adversarially chosen;
// after GST, every message from an honest sender is delivered
// within Delta ticks of sending, barring an unhealed partition.
// The substrate is content-agnostic: it never inspects payloads,
// and forged content is the consensus core's problem to reject.
//
// The queue, delivery-time map, and partitions are the only state
// shared between validators, and every mutation goes through
// the substrate's API under one lock.
package vtnetwork

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
)

// Tick aliases the protocol time unit for brevity.
type Tick = vtconsensus.Tick

// MessageID is collision-free by construction:
// a monotonic per-sender sequence rather than a content hash,
// so duplicated payloads still get distinct IDs.
type MessageID struct {
	Sender vtconsensus.ValidatorID
	Seq    uint64
}

// Message is one queued or delivered transport message.
type Message struct {
	ID MessageID

	Sender    vtconsensus.ValidatorID
	Recipient vtconsensus.ValidatorID

	// Opaque payload; see the vtcodec package.
	Payload []byte

	SentAt Tick
}

// Config is the substrate's fixed configuration.
type Config struct {
	// Maximum delay guaranteed after GST.
	Delta Tick

	// Global stabilization time. Zero means synchronous from the start.
	GST Tick

	// Upper bound on how long a partition may remain unhealed
	// once created; see [Substrate.Partition].
	PartitionTimeout Tick

	// Bounds for adversarially chosen pre-GST delays.
	// Zero values default to 1 and 100.
	MinAdversarialDelay Tick
	MaxAdversarialDelay Tick

	// DelayChooser, when non-nil, picks the pre-GST delay per message,
	// clamped into the adversarial bounds.
	// When nil, delays are drawn from a seeded source.
	DelayChooser func(sender, recipient vtconsensus.ValidatorID, now Tick) Tick

	// Seed for the default pre-GST delay source,
	// so adversarial runs stay reproducible.
	DelaySeed int64

	// Queue length per extra tick of post-GST congestion delay.
	// Zero defaults to 8.
	CongestionFactor int
}

func (c Config) withDefaults() Config {
	if c.MinAdversarialDelay == 0 {
		c.MinAdversarialDelay = 1
	}
	if c.MaxAdversarialDelay == 0 {
		c.MaxAdversarialDelay = 100
	}
	if c.CongestionFactor == 0 {
		c.CongestionFactor = 8
	}
	return c
}

// Validate flags configurations that void the liveness argument.
func (c Config) Validate() error {
	c = c.withDefaults()

	if c.Delta == 0 {
		return fmt.Errorf("%w: Delta must be positive", vtconsensus.ErrUnsafeConfiguration)
	}
	if c.PartitionTimeout == 0 {
		return fmt.Errorf(
			"%w: PartitionTimeout must be positive or partitions never heal",
			vtconsensus.ErrUnsafeConfiguration,
		)
	}
	if c.MinAdversarialDelay > c.MaxAdversarialDelay {
		return fmt.Errorf(
			"%w: adversarial delay bounds inverted (%d > %d)",
			vtconsensus.ErrUnsafeConfiguration, c.MinAdversarialDelay, c.MaxAdversarialDelay,
		)
	}

	return nil
}

// Substrate owns the in-flight message queue and delivery schedule.
// All methods are safe for concurrent use.
type Substrate struct {
	log *slog.Logger

	cfg Config

	n   int
	byz []bool

	mu         sync.Mutex
	seqs       []uint64
	queue      map[MessageID]Message
	deliveryAt map[MessageID]Tick
	inboxes    [][]Message
	part       *partitionState
	rng        *rand.Rand
}

// NewSubstrate builds a substrate for the given validator set.
// Validator statuses determine which senders count as Byzantine-linked
// for the adversary operations.
func NewSubstrate(log *slog.Logger, cfg Config, set vtconsensus.ValidatorSet) (*Substrate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	n := len(set.Validators)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty validator set", vtconsensus.ErrUnsafeConfiguration)
	}

	byz := make([]bool, n)
	for i, v := range set.Validators {
		byz[i] = v.Status == vtconsensus.StatusByzantine
	}

	return &Substrate{
		log: log,

		cfg: cfg,

		n:   n,
		byz: byz,

		seqs:       make([]uint64, n),
		queue:      make(map[MessageID]Message),
		deliveryAt: make(map[MessageID]Tick),
		inboxes:    make([][]Message, n),
		rng:        rand.New(rand.NewSource(cfg.DelaySeed)),
	}, nil
}

// Send enqueues a message for later delivery and returns its ID.
func (s *Substrate) Send(
	sender, recipient vtconsensus.ValidatorID,
	payload []byte,
	now Tick,
) (MessageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sendLocked(sender, recipient, payload, now)
}

// Broadcast fans a send out to every other validator.
func (s *Substrate) Broadcast(
	sender vtconsensus.ValidatorID,
	payload []byte,
	now Tick,
) ([]MessageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]MessageID, 0, s.n-1)
	for r := 0; r < s.n; r++ {
		recipient := vtconsensus.ValidatorID(r)
		if recipient == sender {
			continue
		}

		id, err := s.sendLocked(sender, recipient, payload, now)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (s *Substrate) sendLocked(
	sender, recipient vtconsensus.ValidatorID,
	payload []byte,
	now Tick,
) (MessageID, error) {
	if int(sender) >= s.n {
		return MessageID{}, fmt.Errorf("unknown sender %d", sender)
	}
	if int(recipient) >= s.n {
		return MessageID{}, fmt.Errorf("unknown recipient %d", recipient)
	}
	if sender == recipient {
		return MessageID{}, fmt.Errorf("validator %d cannot send to itself", sender)
	}

	s.seqs[sender]++
	id := MessageID{Sender: sender, Seq: s.seqs[sender]}

	s.queue[id] = Message{
		ID:        id,
		Sender:    sender,
		Recipient: recipient,
		Payload:   payload,
		SentAt:    now,
	}
	s.deliveryAt[id] = now + s.delayLocked(sender, recipient, now)

	return id, nil
}

// delayLocked picks the delivery delay for a message sent at now.
func (s *Substrate) delayLocked(sender, recipient vtconsensus.ValidatorID, now Tick) Tick {
	if now < s.cfg.GST {
		var d Tick
		if s.cfg.DelayChooser != nil {
			d = s.cfg.DelayChooser(sender, recipient, now)
		} else {
			span := int64(s.cfg.MaxAdversarialDelay - s.cfg.MinAdversarialDelay + 1)
			d = s.cfg.MinAdversarialDelay + Tick(s.rng.Int63n(span))
		}

		// Chosen adversarially, but still bounded.
		return min(max(d, s.cfg.MinAdversarialDelay), s.cfg.MaxAdversarialDelay)
	}

	congested := Tick(1 + len(s.queue)/s.cfg.CongestionFactor)
	return min(s.cfg.Delta, congested)
}

// Advance delivers every message due at or before now
// whose endpoints are not separated by an unhealed partition.
// Delivery order is deterministic: by delivery tick,
// then sender, then sequence.
func (s *Substrate) Advance(now Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeHealLocked(now)

	due := make([]Message, 0, len(s.queue))
	for id, m := range s.queue {
		if s.deliveryAt[id] > now {
			continue
		}
		if s.separatedLocked(m.Sender, m.Recipient) {
			// Not an error; the message waits for the heal.
			continue
		}
		due = append(due, m)
	}

	sort.Slice(due, func(i, j int) bool {
		di, dj := s.deliveryAt[due[i].ID], s.deliveryAt[due[j].ID]
		if di != dj {
			return di < dj
		}
		if due[i].ID.Sender != due[j].ID.Sender {
			return due[i].ID.Sender < due[j].ID.Sender
		}
		return due[i].ID.Seq < due[j].ID.Seq
	})

	for _, m := range due {
		s.inboxes[m.Recipient] = append(s.inboxes[m.Recipient], m)
		delete(s.queue, m.ID)
		delete(s.deliveryAt, m.ID)
	}
}

// Collect drains and returns the recipient's inbox.
func (s *Substrate) Collect(recipient vtconsensus.ValidatorID) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(recipient) >= s.n {
		return nil
	}

	msgs := s.inboxes[recipient]
	s.inboxes[recipient] = nil
	return msgs
}

// QueueLen reports the number of undelivered messages.
func (s *Substrate) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// adversaryAllowedLocked reports whether adversarial manipulation
// is permitted: only before GST, or for Byzantine-linked senders.
func (s *Substrate) adversaryAllowedLocked(sender vtconsensus.ValidatorID, now Tick) bool {
	if now < s.cfg.GST {
		return true
	}
	return int(sender) < s.n && s.byz[sender]
}
