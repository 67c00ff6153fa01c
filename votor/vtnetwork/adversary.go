package vtnetwork

import (
	"fmt"

	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
)

// Adversarial operations model network-level Byzantine behavior
// without touching consensus logic.
// Each is permitted only before GST, or on Byzantine-linked traffic;
// a disallowed call returns an error and leaves the queue untouched.

// Drop removes an undelivered message from the queue.
func (s *Substrate) Drop(id MessageID, now Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queue[id]; !ok {
		return fmt.Errorf("message %v not in queue", id)
	}
	if !s.adversaryAllowedLocked(id.Sender, now) {
		return fmt.Errorf("cannot drop honest message %v at tick %d, after GST %d", id, now, s.cfg.GST)
	}

	delete(s.queue, id)
	delete(s.deliveryAt, id)
	return nil
}

// Duplicate enqueues a copy of an undelivered message under a fresh ID
// with an independently chosen delay.
func (s *Substrate) Duplicate(id MessageID, now Tick) (MessageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.queue[id]
	if !ok {
		return MessageID{}, fmt.Errorf("message %v not in queue", id)
	}
	if !s.adversaryAllowedLocked(id.Sender, now) {
		return MessageID{}, fmt.Errorf("cannot duplicate honest message %v at tick %d, after GST %d", id, now, s.cfg.GST)
	}

	return s.sendLocked(m.Sender, m.Recipient, m.Payload, now)
}

// DelayUntil reschedules an undelivered message to the given tick.
// For honest traffic the new delivery may not exceed the adversarial
// delay bound relative to the original send time;
// Byzantine-linked traffic has no delivery guarantee at all.
func (s *Substrate) DelayUntil(id MessageID, at, now Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.queue[id]
	if !ok {
		return fmt.Errorf("message %v not in queue", id)
	}
	if !s.adversaryAllowedLocked(id.Sender, now) {
		return fmt.Errorf("cannot delay honest message %v at tick %d, after GST %d", id, now, s.cfg.GST)
	}

	if !s.byz[id.Sender] {
		bound := m.SentAt + s.cfg.MaxAdversarialDelay
		if at > bound {
			return fmt.Errorf(
				"delay target %d exceeds adversarial bound %d for message sent at %d",
				at, bound, m.SentAt,
			)
		}
	}

	s.deliveryAt[id] = at
	return nil
}

// Reorder swaps the delivery ticks of two undelivered messages.
func (s *Substrate) Reorder(a, b MessageID, now Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queue[a]; !ok {
		return fmt.Errorf("message %v not in queue", a)
	}
	if _, ok := s.queue[b]; !ok {
		return fmt.Errorf("message %v not in queue", b)
	}
	if !s.adversaryAllowedLocked(a.Sender, now) || !s.adversaryAllowedLocked(b.Sender, now) {
		return fmt.Errorf("cannot reorder honest messages at tick %d, after GST %d", now, s.cfg.GST)
	}

	s.deliveryAt[a], s.deliveryAt[b] = s.deliveryAt[b], s.deliveryAt[a]
	return nil
}

// Inject enqueues arbitrary traffic attributed to a Byzantine validator.
// The substrate does not inspect the payload;
// forged content is rejected by the consensus core's signature checks.
func (s *Substrate) Inject(
	sender, recipient vtconsensus.ValidatorID,
	payload []byte,
	now Tick,
) (MessageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(sender) >= s.n || !s.byz[sender] {
		return MessageID{}, fmt.Errorf("injection requires a byzantine sender, got %d", sender)
	}

	return s.sendLocked(sender, recipient, payload, now)
}

// InjectBroadcast fans an injection out to all other validators.
func (s *Substrate) InjectBroadcast(
	sender vtconsensus.ValidatorID,
	payload []byte,
	now Tick,
) ([]MessageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(sender) >= s.n || !s.byz[sender] {
		return nil, fmt.Errorf("injection requires a byzantine sender, got %d", sender)
	}

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
