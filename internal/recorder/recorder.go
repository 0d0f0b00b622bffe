package recorder

import (
	"SavingsDAO/internal/compliance"
	"SavingsDAO/internal/model"
)

// PoolSnapshot is a periodic reading of the treasury.
type PoolSnapshot struct {
	Stable        model.Amount
	Reward        model.Amount
	Members       uint64
	VotingPower   uint64
	OpenProposals int
	// Digest is the hex blake3 digest of the state snapshot.
	Digest string
}

// Recorder persists the audit trail of committed state changes.
type Recorder interface {
	RecordEvent(evt *model.Event) error
	RecordSnapshot(snap *PoolSnapshot) error
	Close() error
}

// Regulations returns the regulation store backed by r when it has one,
// and an in-memory store otherwise.
func Regulations(r Recorder) compliance.RegulationStore {
	if s, ok := r.(*SQLiteRecorder); ok {
		return s.Regulations()
	}
	return compliance.NewMemoryRegulations()
}
