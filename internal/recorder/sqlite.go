package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"SavingsDAO/internal/compliance"
	"SavingsDAO/internal/model"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the audit trail and regulation texts to SQLite.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id    TEXT NOT NULL UNIQUE,
			timestamp   INTEGER NOT NULL,
			event_type  TEXT NOT NULL,
			account     TEXT,
			proposal_id INTEGER,
			amount      TEXT,
			weight      INTEGER,
			note        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_account ON events(account)`,

		`CREATE TABLE IF NOT EXISTS pool_snapshots (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			stable         TEXT,
			reward         TEXT,
			members        INTEGER,
			voting_power   INTEGER,
			open_proposals INTEGER,
			digest         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON pool_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS regulations (
			scope      TEXT NOT NULL,
			reg_key    TEXT NOT NULL,
			body       TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (scope, reg_key)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordEvent appends evt under a fresh event id. Amounts are stored as
// decimal text since they exceed SQLite's integer range.
func (r *SQLiteRecorder) RecordEvent(evt *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO events
		(event_id, timestamp, event_type, account, proposal_id, amount, weight, note)
		VALUES (?,?,?,?,?,?,?,?)`,
		uuid.NewString(), at.Unix(), string(evt.Type), evt.User.String(),
		int64(evt.ProposalID), evt.Amount.String(), int64(evt.Weight), evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecordSnapshot(snap *PoolSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO pool_snapshots
		(timestamp, stable, reward, members, voting_power, open_proposals, digest)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), snap.Stable.String(), snap.Reward.String(),
		int64(snap.Members), int64(snap.VotingPower), snap.OpenProposals, snap.Digest,
	)
	return err
}

// Regulations returns the regulation store sharing this database.
func (r *SQLiteRecorder) Regulations() *SQLiteRegulations {
	return &SQLiteRegulations{r: r}
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

// SQLiteRegulations stores regulation texts in the recorder's database.
type SQLiteRegulations struct {
	r *SQLiteRecorder
}

var _ compliance.RegulationStore = (*SQLiteRegulations)(nil)

func (s *SQLiteRegulations) Get(scope compliance.Scope, key string) (string, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()

	var text string
	err := s.r.db.QueryRow(`SELECT body FROM regulations WHERE scope = ? AND reg_key = ?`,
		string(scope), key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query regulation: %w", err)
	}
	return text, nil
}

func (s *SQLiteRegulations) Set(scope compliance.Scope, key, text string) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()

	_, err := s.r.db.Exec(`INSERT INTO regulations (scope, reg_key, body, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(scope, reg_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		string(scope), key, text, time.Now().Unix(),
	)
	return err
}
