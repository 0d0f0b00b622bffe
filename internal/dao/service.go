package dao

import (
	"fmt"
	"log"
	"sync"
	"time"

	"SavingsDAO/internal/badge"
	"SavingsDAO/internal/clock"
	"SavingsDAO/internal/codec"
	"SavingsDAO/internal/compliance"
	"SavingsDAO/internal/governance"
	"SavingsDAO/internal/ledger"
	"SavingsDAO/internal/model"
	"SavingsDAO/internal/recorder"
	"SavingsDAO/internal/token"
	"SavingsDAO/internal/treasury"
)

// Config fixes the service's identity and constants.
type Config struct {
	Owner      model.Address
	Pool       model.Address
	Unit       model.Amount
	Governance governance.Params
	// StatePath is the snapshot file; empty disables persistence.
	StatePath string
}

// Deps are the service's collaborators. Nil Badge, Recorder,
// Regulations and Clock fall back to in-process defaults.
type Deps struct {
	Stable      token.Token
	Reward      token.Token
	Badge       badge.Minter
	Recorder    recorder.Recorder
	Regulations compliance.RegulationStore
	Clock       clock.Clock
}

// Observer receives committed events after the operation that produced
// them has released the lock.
type Observer interface {
	Observe(events []model.Event)
}

// Service is the single writer over the ledger, compliance gate,
// governance engine and treasury authorizer. Each public operation
// reads the clock once, runs under one lock, and either commits every
// change or none.
type Service struct {
	mu sync.Mutex

	cfg      Config
	owner    model.Address
	clock    clock.Clock
	ledger   *ledger.Ledger
	gate     *compliance.Gate
	gov      *governance.Engine
	treasury *treasury.Authorizer

	badge     badge.Minter
	rec       recorder.Recorder
	regs      compliance.RegulationStore
	observers []Observer

	pending []model.Event
	digest  Digest
}

// New assembles the service and restores the snapshot at cfg.StatePath
// when one exists.
func New(cfg Config, deps Deps) (*Service, error) {
	if cfg.Owner.IsZero() || cfg.Pool.IsZero() {
		return nil, fmt.Errorf("%w: owner and pool addresses are required", model.ErrInvalidAddress)
	}
	if cfg.Unit.IsZero() {
		return nil, fmt.Errorf("%w: unit", model.ErrInvalidAmount)
	}
	if deps.Stable == nil || deps.Reward == nil {
		return nil, fmt.Errorf("stable and reward tokens are required")
	}
	if deps.Badge == nil {
		deps.Badge = badge.NewLogMinter()
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Regulations == nil {
		deps.Regulations = compliance.NewMemoryRegulations()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}

	s := &Service{
		cfg:   cfg,
		owner: cfg.Owner,
		clock: deps.Clock,
		gate:  compliance.NewGate(),
		badge: deps.Badge,
		rec:   deps.Recorder,
		regs:  deps.Regulations,
	}
	s.ledger = ledger.New(cfg.Unit, cfg.Pool, deps.Stable, deps.Reward)
	s.gov = governance.NewEngine(cfg.Governance, s.ledger)
	s.treasury = treasury.NewAuthorizer(s.ledger)

	if cfg.StatePath != "" {
		snap, err := LoadSnapshot(cfg.StatePath)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			s.restore(snap)
			log.Printf("[INFO] restored state from %s: %d accounts, %d proposals",
				cfg.StatePath, len(snap.Accounts), len(snap.Governance.Proposals))
		}
	}

	data, err := codec.Marshal(s.snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	s.digest = digestOf(data)
	return s, nil
}

// Subscribe registers an observer for committed events.
func (s *Service) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// run executes op under the lock with a single clock reading. On
// success the new state is persisted, events are journaled, and
// observers are notified after unlock.
func (s *Service) run(op func(now time.Time) error) error {
	s.mu.Lock()
	now := s.clock.Now().Truncate(time.Second)
	s.pending = nil
	if err := op(now); err != nil {
		s.pending = nil
		s.mu.Unlock()
		return err
	}
	events := s.commit()
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	if len(events) > 0 {
		for _, o := range observers {
			o.Observe(events)
		}
	}
	return nil
}

// view runs a read under the lock.
func (s *Service) view(fn func(now time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.clock.Now().Truncate(time.Second))
}

func (s *Service) commit() []model.Event {
	data, err := codec.Marshal(s.snapshot())
	if err != nil {
		log.Printf("[ERROR] failed to encode state snapshot: %v", err)
	} else {
		s.digest = digestOf(data)
		if s.cfg.StatePath != "" {
			if err := SaveSnapshot(s.cfg.StatePath, data); err != nil {
				log.Printf("[ERROR] failed to save state snapshot: %v", err)
			}
		}
	}

	events := s.pending
	s.pending = nil
	for i := range events {
		evt := &events[i]
		log.Printf("[INFO] %s user=%s proposal=%d amount=%s weight=%d %s",
			evt.Type, evt.User, evt.ProposalID, evt.Amount, evt.Weight, evt.Note)
		if err := s.rec.RecordEvent(evt); err != nil {
			log.Printf("[ERROR] record event %s: %v", evt.Type, err)
		}
	}
	return events
}

func (s *Service) emit(now time.Time, evt model.Event) {
	evt.At = now
	s.pending = append(s.pending, evt)
}

func (s *Service) requireOwner(caller model.Address) error {
	if caller != s.owner {
		return fmt.Errorf("%w: %s", model.ErrUnauthorized, caller)
	}
	return nil
}

func (s *Service) snapshot() *Snapshot {
	return &Snapshot{
		Version:        snapshotVersion,
		Owner:          s.owner,
		Accounts:       s.ledger.Accounts(),
		Pool:           s.ledger.Pool(),
		Allocated:      s.ledger.Allocated(),
		Agreements:     s.gate.Accepted(),
		Governance:     s.gov.Export(),
		Authorizations: s.treasury.Authorizations(),
	}
}

func (s *Service) restore(snap *Snapshot) {
	if !snap.Owner.IsZero() {
		if snap.Owner != s.owner {
			log.Printf("[INFO] owner %s from snapshot overrides configured %s", snap.Owner, s.owner)
		}
		s.owner = snap.Owner
	}
	s.ledger.Restore(snap.Accounts, snap.Pool, snap.Allocated)
	s.gate.Restore(snap.Agreements)
	s.gov.Restore(snap.Governance, s.ledger.Members())
	s.treasury.Restore(snap.Authorizations)
}

// StateDigest is the hex blake3 digest of the last committed snapshot.
// Replaying the same operations from the same start yields the same digest.
func (s *Service) StateDigest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.digest.String()
}

func (s *Service) Owner() model.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Unit is the stable amount worth one tier weight.
func (s *Service) Unit() model.Amount { return s.cfg.Unit }

// TransferOwnership hands the administrative role to newOwner.
func (s *Service) TransferOwnership(caller, newOwner model.Address) error {
	return s.run(func(now time.Time) error {
		if err := s.requireOwner(caller); err != nil {
			return err
		}
		if newOwner.IsZero() {
			return model.ErrInvalidAddress
		}
		previous := s.owner
		s.owner = newOwner
		s.emit(now, model.Event{Type: model.EventOwnershipTransferred, User: newOwner, Note: "from " + previous.String()})
		return nil
	})
}

// Summary is a point-in-time view of the treasury for reports. It is
// served unauthenticated, so it carries no administrative identity.
type Summary struct {
	Pool            model.PoolBalance `json:"pool"`
	Unallocated     model.Amount      `json:"unallocated_reward"`
	Headroom        model.Amount      `json:"withdrawable"`
	Members         uint64            `json:"members"`
	VotingPower     uint64            `json:"voting_power"`
	RequiredWeight  uint64            `json:"required_weight"`
	OpenProposals   int               `json:"open_proposals"`
	CurrentProposer model.Address     `json:"current_proposer,omitempty"`
	Digest          string            `json:"digest"`
	At              time.Time         `json:"at"`
}

func (s *Service) Summary() Summary {
	var out Summary
	s.view(func(now time.Time) {
		open := 0
		for _, p := range s.gov.Proposals(now) {
			if p.State == model.ProposalOpen {
				open++
			}
		}
		out = Summary{
			Pool:            s.ledger.Pool(),
			Unallocated:     s.ledger.UnallocatedReward(),
			Headroom:        s.treasury.Headroom(s.gov.MemberCount()),
			Members:         s.gov.MemberCount(),
			VotingPower:     s.gov.TotalVotingPower(),
			RequiredWeight:  s.gov.RequiredWeight(),
			OpenProposals:   open,
			CurrentProposer: s.gov.CurrentProposer(),
			Digest:          s.digest.String(),
			At:              now,
		}
	})
	return out
}
