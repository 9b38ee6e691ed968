package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"Stackstarter/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database. Every row
// carries the run id of the process that wrote it.
type SQLiteRecorder struct {
	db    *sql.DB
	mu    sync.Mutex
	runID string
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the watcher writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, runID: uuid.NewString()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s (run %s)", dbPath, r.runID)
	return r, nil
}

// RunID identifies this process in every recorded row.
func (r *SQLiteRecorder) RunID() string { return r.runID }

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS broadcasts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			txid        TEXT NOT NULL,
			sender      TEXT,
			function    TEXT,
			campaign_id INTEGER,
			amount      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_broadcasts_txid ON broadcasts(txid)`,

		`CREATE TABLE IF NOT EXISTS campaign_snapshots (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id              TEXT NOT NULL,
			timestamp           INTEGER NOT NULL,
			height              INTEGER NOT NULL,
			campaign_id         INTEGER NOT NULL,
			name                TEXT,
			fundraiser          TEXT,
			goal                TEXT,
			target_block_height INTEGER,
			stage               TEXT NOT NULL,
			active              INTEGER,
			target_reached      INTEGER,
			funded              INTEGER,
			total_investment    TEXT,
			total_investors     TEXT,
			tier_count          INTEGER,
			payload             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_campaign ON campaign_snapshots(campaign_id, id)`,

		`CREATE TABLE IF NOT EXISTS stage_transitions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			campaign_id INTEGER NOT NULL,
			from_stage  TEXT,
			to_stage    TEXT,
			height      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_campaign ON stage_transitions(campaign_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}

func bigText(n *big.Int) string {
	if n == nil {
		return ""
	}
	return n.String()
}

func (r *SQLiteRecorder) RecordBroadcast(evt *BroadcastEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO broadcasts
		(run_id, timestamp, txid, sender, function, campaign_id, amount)
		VALUES (?,?,?,?,?,?,?)`,
		r.runID, unix(evt.At), evt.TxID, evt.Sender, evt.Function, evt.CampaignID, evt.Amount,
	)
	return err
}

func (r *SQLiteRecorder) RecordSnapshot(snap *model.CampaignSnapshot) error {
	if snap.Campaign == nil {
		return fmt.Errorf("record snapshot: no campaign")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	c := snap.Campaign
	var targetReached, funded bool
	if snap.Status != nil {
		targetReached, funded = snap.Status.TargetReached, snap.Status.Funded
	}
	var investment, investors string
	if snap.Totals != nil {
		investment, investors = bigText(snap.Totals.TotalInvestment), bigText(snap.Totals.TotalInvestors)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.Exec(`INSERT INTO campaign_snapshots
		(run_id, timestamp, height, campaign_id, name, fundraiser, goal, target_block_height,
		 stage, active, target_reached, funded, total_investment, total_investors, tier_count, payload)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.runID, unix(snap.TakenAt), snap.Height, c.ID, c.Name, c.Fundraiser, bigText(c.Goal), c.TargetBlockHeight,
		string(snap.Stage), snap.Active, targetReached, funded, investment, investors, len(snap.Tiers), string(payload),
	)
	return err
}

func (r *SQLiteRecorder) RecordTransition(t *model.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO stage_transitions
		(run_id, timestamp, campaign_id, from_stage, to_stage, height)
		VALUES (?,?,?,?,?,?)`,
		r.runID, unix(t.At), t.CampaignID, string(t.From), string(t.To), t.Height,
	)
	return err
}

// LastStages reads the stage of the newest snapshot of every campaign,
// across all runs.
func (r *SQLiteRecorder) LastStages() (map[uint64]model.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT campaign_id, stage FROM campaign_snapshots
		WHERE id IN (SELECT MAX(id) FROM campaign_snapshots GROUP BY campaign_id)`)
	if err != nil {
		return nil, fmt.Errorf("query last stages: %w", err)
	}
	defer rows.Close()

	stages := make(map[uint64]model.Stage)
	for rows.Next() {
		var id int64
		var stage string
		if err := rows.Scan(&id, &stage); err != nil {
			return nil, fmt.Errorf("scan last stage: %w", err)
		}
		stages[uint64(id)] = model.Stage(stage)
	}
	return stages, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
