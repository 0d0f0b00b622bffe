package dao

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"SavingsDAO/internal/codec"
	"SavingsDAO/internal/governance"
	"SavingsDAO/internal/model"

	"github.com/zeebo/blake3"
)

const snapshotVersion = 1

// Snapshot is the complete persisted state of the service. It holds no
// wall-clock fields so equal histories encode to equal bytes.
type Snapshot struct {
	Version        uint8                           `cbor:"v"`
	Owner          model.Address                   `cbor:"owner"`
	Accounts       []model.UserAccount             `cbor:"accounts"`
	Pool           model.PoolBalance               `cbor:"pool"`
	Allocated      model.Amount                    `cbor:"allocated"`
	Agreements     []model.Address                 `cbor:"agreements"`
	Governance     governance.State                `cbor:"governance"`
	Authorizations []model.WithdrawalAuthorization `cbor:"authorizations"`
}

// LoadSnapshot reads a CBOR snapshot file. Returns nil if the file
// doesn't exist.
func LoadSnapshot(filePath string) (*Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := codec.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", filePath, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot %s: unsupported version %d", filePath, snap.Version)
	}
	return &snap, nil
}

// SaveSnapshot writes data next to filePath and renames it into place.
func SaveSnapshot(filePath string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(filePath), filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

// Digest is the blake3-256 digest of an encoded snapshot.
type Digest [32]byte

func digestOf(data []byte) Digest { return blake3.Sum256(data) }

func (d Digest) String() string { return hex.EncodeToString(d[:]) }
