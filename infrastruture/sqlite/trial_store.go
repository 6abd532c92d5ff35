package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/record"
	_ "modernc.org/sqlite"
)

// TrialRow is one flat row of the trial export table.
type TrialRow struct {
	SessionID        string
	ParticipantID    string
	Phase            string
	TrialIndex       int
	MazeID           string
	Vehicle          string
	Kind             string
	Size             string
	Hazard           bool
	HazardProb       float64
	Memory           bool
	Optimal          string
	Realized         string
	RawSeq           string
	ValidSeq         string
	CorrectSeq       string
	ValidCount       int
	CorrectCount     int
	CorrectHL        int
	CorrectLL        int
	BiasValid        int
	BiasCorrect      int
	GenOrder         string
	RewardsCollected int
	HazardsHit       int
	BlockedMoves     int
	Accuracy         float64
	ReactionMS       int64
	DurationMS       int64
	Dangerous        bool
}

// TrialStore writes finished sessions as flat trial rows.
type TrialStore struct {
	db *sql.DB
}

// NewTrialStore opens the database at path and migrates it.
func NewTrialStore(path string) (*TrialStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &TrialStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *TrialStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *TrialStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			participant_id TEXT NOT NULL,
			study_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			score INTEGER NOT NULL,
			successes INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			high_hazard TEXT,
			dangerous_vehicle TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS trials (
			session_id TEXT NOT NULL,
			phase TEXT NOT NULL,
			trial_index INTEGER NOT NULL,
			maze_id TEXT NOT NULL,
			vehicle TEXT NOT NULL,
			kind TEXT NOT NULL,
			size TEXT NOT NULL,
			hazard INTEGER NOT NULL,
			hazard_prob REAL NOT NULL,
			memory INTEGER NOT NULL,
			optimal TEXT NOT NULL,
			realized TEXT NOT NULL,
			raw_seq TEXT,
			valid_seq TEXT,
			correct_seq TEXT,
			valid_count INTEGER,
			correct_count INTEGER,
			correct_hl INTEGER,
			correct_ll INTEGER,
			bias_valid INTEGER,
			bias_correct INTEGER,
			gen_order TEXT,
			rewards_collected INTEGER NOT NULL,
			hazards_hit INTEGER NOT NULL,
			blocked_moves INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			reaction_ms INTEGER,
			duration_ms INTEGER NOT NULL,
			dangerous INTEGER NOT NULL,
			PRIMARY KEY (session_id, phase, trial_index),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trials_vehicle ON trials(vehicle, phase)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Save writes the session and all its trials in one transaction. Saving the
// same session again replaces its rows.
func (s *TrialStore) Save(ctx context.Context, export record.SessionExport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO sessions (
		session_id, participant_id, study_id, started_at, ended_at, elapsed_ms,
		score, successes, failures, high_hazard, dangerous_vehicle
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		export.SessionID, export.ParticipantID, export.StudyID,
		export.StartedAt.UTC().Format(time.RFC3339Nano), export.EndedAt.UTC().Format(time.RFC3339Nano),
		export.Elapsed.Milliseconds(), export.Score, export.Successes, export.Failures,
		categoryName(export.HighHazard), categoryName(export.DangerousVehicle),
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO trials (
		session_id, phase, trial_index, maze_id, vehicle, kind, size, hazard, hazard_prob, memory,
		optimal, realized, raw_seq, valid_seq, correct_seq, valid_count, correct_count,
		correct_hl, correct_ll, bias_valid, bias_correct, gen_order,
		rewards_collected, hazards_hit, blocked_moves, accuracy, reaction_ms, duration_ms, dangerous
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range export.Records {
		row := flatten(export, rec)
		_, err := stmt.ExecContext(ctx,
			export.SessionID, row.Phase, row.TrialIndex, row.MazeID, row.Vehicle, row.Kind, row.Size,
			row.Hazard, row.HazardProb, row.Memory, row.Optimal, row.Realized,
			row.RawSeq, row.ValidSeq, row.CorrectSeq, row.ValidCount, row.CorrectCount,
			row.CorrectHL, row.CorrectLL, row.BiasValid, row.BiasCorrect, row.GenOrder,
			row.RewardsCollected, row.HazardsHit, row.BlockedMoves, row.Accuracy,
			row.ReactionMS, row.DurationMS, row.Dangerous,
		)
		if err != nil {
			return fmt.Errorf("saving %s trial %d: %w", rec.Phase, rec.Index, err)
		}
	}

	return tx.Commit()
}

// Trials returns the rows of one session in phase and index order.
func (s *TrialStore) Trials(ctx context.Context, sessionID string) ([]TrialRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		t.session_id, ses.participant_id, t.phase, t.trial_index, t.maze_id, t.vehicle, t.kind, t.size,
		t.hazard, t.hazard_prob, t.memory, t.optimal, t.realized,
		COALESCE(t.raw_seq, ''), COALESCE(t.valid_seq, ''), COALESCE(t.correct_seq, ''),
		COALESCE(t.valid_count, 0), COALESCE(t.correct_count, 0), COALESCE(t.correct_hl, 0), COALESCE(t.correct_ll, 0),
		COALESCE(t.bias_valid, 0), COALESCE(t.bias_correct, 0), COALESCE(t.gen_order, ''),
		t.rewards_collected, t.hazards_hit, t.blocked_moves, t.accuracy,
		COALESCE(t.reaction_ms, 0), t.duration_ms, t.dangerous
		FROM trials t JOIN sessions ses ON ses.session_id = t.session_id
		WHERE t.session_id = ?
		ORDER BY CASE t.phase WHEN 'practice' THEN 0 WHEN 'learning' THEN 1 ELSE 2 END, t.trial_index`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrialRow
	for rows.Next() {
		var r TrialRow
		if err := rows.Scan(
			&r.SessionID, &r.ParticipantID, &r.Phase, &r.TrialIndex, &r.MazeID, &r.Vehicle, &r.Kind, &r.Size,
			&r.Hazard, &r.HazardProb, &r.Memory, &r.Optimal, &r.Realized,
			&r.RawSeq, &r.ValidSeq, &r.CorrectSeq,
			&r.ValidCount, &r.CorrectCount, &r.CorrectHL, &r.CorrectLL,
			&r.BiasValid, &r.BiasCorrect, &r.GenOrder,
			&r.RewardsCollected, &r.HazardsHit, &r.BlockedMoves, &r.Accuracy,
			&r.ReactionMS, &r.DurationMS, &r.Dangerous,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// flatten turns a trial record into the exporter's column layout.
func flatten(export record.SessionExport, rec record.TrialRecord) TrialRow {
	row := TrialRow{
		SessionID:        export.SessionID,
		ParticipantID:    export.ParticipantID,
		Phase:            string(rec.Phase),
		TrialIndex:       rec.Index,
		MazeID:           rec.MazeID,
		Vehicle:          rec.Category.String(),
		Kind:             rec.Kind,
		Size:             rec.Size,
		Hazard:           rec.Hazard,
		HazardProb:       rec.HazardProb,
		Memory:           rec.Memory,
		Optimal:          joinDirections(rec.Optimal),
		Realized:         joinDirections(rec.Realized),
		RewardsCollected: rec.RewardsCollected,
		HazardsHit:       rec.HazardsHit,
		BlockedMoves:     rec.BlockedMoves,
		Accuracy:         rec.Accuracy,
		ReactionMS:       rec.ReactionTime.Milliseconds(),
		DurationMS:       rec.Duration.Milliseconds(),
		Dangerous:        export.DangerousVehicle != 0 && rec.Category == export.DangerousVehicle,
	}
	if p := rec.Plan; p != nil {
		row.RawSeq = strings.Join(p.Raw, "")
		row.ValidSeq = joinFlags(p.Valid)
		row.CorrectSeq = joinFlags(p.Correct)
		row.ValidCount = p.ValidCount
		row.CorrectCount = p.CorrectCount
		row.CorrectHL = p.CorrectVertical
		row.CorrectLL = p.CorrectHorizontal
		row.BiasValid = p.BiasValid
		row.BiasCorrect = p.BiasCorrect
		row.GenOrder = p.Order
	}
	return row
}

func joinDirections(dirs []game.Direction) string {
	parts := make([]string, len(dirs))
	for i, d := range dirs {
		parts[i] = d.String()
	}
	return strings.Join(parts, ",")
}

func joinFlags(flags []bool) string {
	var b strings.Builder
	for _, f := range flags {
		if f {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func categoryName(c game.Category) any {
	if c == 0 {
		return nil
	}
	return c.String()
}
