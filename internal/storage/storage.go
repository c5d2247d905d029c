// Package storage provides SQLite-backed persistence for the tip audit log.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/mobatips/internal/models"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db      *sql.DB
	maxTips int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/mobatips/tips.db.
func New(maxTips int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "mobatips", "tips.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db, maxTips: maxTips}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Storage) Ping() error {
	return s.db.Ping()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			id              TEXT PRIMARY KEY,
			league          TEXT NOT NULL,
			tournament      TEXT,
			team1           TEXT NOT NULL,
			team2           TEXT NOT NULL,
			last_game_time  INTEGER NOT NULL,
			last_seen       INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tips (
			id               TEXT PRIMARY KEY,
			match_id         TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			map_id           TEXT NOT NULL,
			recommended_side INTEGER NOT NULL,
			recommended_team TEXT NOT NULL,
			odds             REAL NOT NULL,
			units            REAL NOT NULL,
			risk_level       TEXT NOT NULL,
			confidence_pct   REAL NOT NULL,
			confidence_level TEXT NOT NULL,
			ev_pct           REAL NOT NULL,
			reasoning        TEXT,
			game_time        INTEGER NOT NULL,
			method           TEXT NOT NULL,
			status           TEXT NOT NULL,
			snapshot         TEXT NOT NULL DEFAULT '{}',
			created_at       INTEGER NOT NULL,
			generated_at     INTEGER NOT NULL,
			sent_at          INTEGER NOT NULL DEFAULT 0,
			expired_at       INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tips_generated_at ON tips(generated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tips_map_id ON tips(map_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordTip upserts the tip's match and the tip itself, then enforces the tip cap.
func (s *Storage) RecordTip(gt *models.GeneratedTip) error {
	if gt == nil || gt.Tip.ID == "" {
		return errors.New("invalid tip: missing ID")
	}
	snapJSON, err := json.Marshal(gt.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	tip := gt.Tip
	_, err = tx.Exec(`
		INSERT INTO matches (id, league, tournament, team1, team2, last_game_time, last_seen)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			league=excluded.league, tournament=excluded.tournament,
			team1=excluded.team1, team2=excluded.team2,
			last_game_time=excluded.last_game_time, last_seen=excluded.last_seen`,
		tip.MatchID, tip.League, tip.Tournament, tip.Team1, tip.Team2,
		gt.Snapshot.GameTime, gt.GeneratedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match: %w", err)
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO tips
			(id, match_id, map_id, recommended_side, recommended_team, odds, units, risk_level,
			 confidence_pct, confidence_level, ev_pct, reasoning, game_time, method, status,
			 snapshot, created_at, generated_at, sent_at, expired_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		tip.ID, tip.MatchID, tip.MapID, int(tip.RecommendedSide), tip.RecommendedTeam,
		tip.Odds, tip.Units, tip.RiskLevel,
		tip.ConfidencePct, string(tip.ConfidenceLevel), tip.EVPct, tip.Reasoning,
		tip.GameTime, string(tip.Method), string(gt.Status),
		string(snapJSON), tip.CreatedAt.UnixNano(), gt.GeneratedAt.UnixNano(),
		unixNanoOrZero(gt.SentAt), unixNanoOrZero(gt.ExpiredAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tip: %w", err)
	}

	if s.maxTips > 0 {
		if _, err = tx.Exec(`
			DELETE FROM tips WHERE id NOT IN (
				SELECT id FROM tips ORDER BY generated_at DESC LIMIT ?
			)`, s.maxTips); err != nil {
			return fmt.Errorf("failed to enforce tip cap: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Storage) GetTip(id string) (*models.GeneratedTip, error) {
	row := s.db.QueryRow(`SELECT `+tipCols+` FROM tips t JOIN matches m ON m.id = t.match_id WHERE t.id = ?`, id)
	gt, err := scanTip(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tip not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tip: %w", err)
	}
	return gt, nil
}

// RecentTips returns the k most recently generated tips, newest first.
func (s *Storage) RecentTips(k int) ([]*models.GeneratedTip, error) {
	rows, err := s.db.Query(`SELECT `+tipCols+` FROM tips t JOIN matches m ON m.id = t.match_id
		ORDER BY t.generated_at DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query tips: %w", err)
	}
	defer rows.Close()

	tips := []*models.GeneratedTip{}
	for rows.Next() {
		gt, err := scanTip(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tip: %w", err)
		}
		tips = append(tips, gt)
	}
	return tips, rows.Err()
}

// ProcessedMaps returns the map identifiers of tips generated at or after since, each
// with its most recent generation time.
func (s *Storage) ProcessedMaps(since time.Time) (map[string]time.Time, error) {
	rows, err := s.db.Query(`SELECT map_id, MAX(generated_at) FROM tips WHERE generated_at >= ? GROUP BY map_id`, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query processed maps: %w", err)
	}
	defer rows.Close()

	maps := make(map[string]time.Time)
	for rows.Next() {
		var (
			id string
			at int64
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("failed to scan processed map: %w", err)
		}
		maps[id] = time.Unix(0, at)
	}
	return maps, rows.Err()
}

// CountByStatus returns the number of stored tips per status.
func (s *Storage) CountByStatus() (map[models.TipStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tips GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tips: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TipStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.TipStatus(status)] = n
	}
	return counts, rows.Err()
}

// RotateTips keeps at most maxTips newest tips by generated_at and removes matches no
// tip refers to any more.
func (s *Storage) RotateTips() error {
	if s.maxTips > 0 {
		if _, err := s.db.Exec(`
			DELETE FROM tips WHERE id NOT IN (
				SELECT id FROM tips ORDER BY generated_at DESC LIMIT ?
			)`, s.maxTips); err != nil {
			return fmt.Errorf("failed to rotate tips: %w", err)
		}
	}
	if _, err := s.db.Exec(`DELETE FROM matches WHERE id NOT IN (SELECT DISTINCT match_id FROM tips)`); err != nil {
		return fmt.Errorf("failed to prune matches: %w", err)
	}
	return nil
}

const tipCols = `t.id, t.match_id, t.map_id, m.team1, m.team2, m.league, m.tournament,
	t.recommended_side, t.recommended_team, t.odds, t.units, t.risk_level,
	t.confidence_pct, t.confidence_level, t.ev_pct, t.reasoning, t.game_time, t.method,
	t.status, t.snapshot, t.created_at, t.generated_at, t.sent_at, t.expired_at`

func scanTip(scan func(...any) error) (*models.GeneratedTip, error) {
	var gt models.GeneratedTip
	var tournament, reasoning sql.NullString
	var side int
	var confidenceLevel, method, status, snapJSON string
	var createdAt, generatedAt, sentAt, expiredAt int64

	tip := &gt.Tip
	err := scan(
		&tip.ID, &tip.MatchID, &tip.MapID, &tip.Team1, &tip.Team2, &tip.League, &tournament,
		&side, &tip.RecommendedTeam, &tip.Odds, &tip.Units, &tip.RiskLevel,
		&tip.ConfidencePct, &confidenceLevel, &tip.EVPct, &reasoning, &tip.GameTime, &method,
		&status, &snapJSON, &createdAt, &generatedAt, &sentAt, &expiredAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(snapJSON), &gt.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	tip.Tournament = tournament.String
	tip.Reasoning = reasoning.String
	tip.RecommendedSide = models.Side(side)
	tip.ConfidenceLevel = models.ConfidenceLevel(confidenceLevel)
	tip.Method = models.PredictionMethod(method)
	tip.CreatedAt = time.Unix(0, createdAt)
	gt.Status = models.TipStatus(status)
	gt.GeneratedAt = time.Unix(0, generatedAt)
	gt.SentAt = timeOrZero(sentAt)
	gt.ExpiredAt = timeOrZero(expiredAt)
	return &gt, nil
}

func unixNanoOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func timeOrZero(nano int64) time.Time {
	if nano == 0 {
		return time.Time{}
	}
	return time.Unix(0, nano)
}
