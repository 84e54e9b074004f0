package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/messmate/internal/model"
)

type TargetStore struct {
	db *sql.DB
}

func NewTargetStore(db *sql.DB) *TargetStore {
	return &TargetStore{db: db}
}

// ReplaceForCycle upserts the calculated objectives for a cycle in one
// transaction.
func (s *TargetStore) ReplaceForCycle(cycleID int64, targets []model.CycleTarget) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, t := range targets {
		if _, err := tx.Exec(`
			INSERT INTO cycle_targets (cycle_id, user_id, point_objective, weight_percent, credits_earned)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (cycle_id, user_id) DO UPDATE SET
			    point_objective = excluded.point_objective,
			    weight_percent = excluded.weight_percent`,
			cycleID, t.UserID, t.PointObjective, t.WeightPercent, t.CreditsEarned,
		); err != nil {
			return fmt.Errorf("upsert target: %w", err)
		}
	}
	return tx.Commit()
}

func (s *TargetStore) ListForCycle(cycleID int64) ([]model.CycleTarget, error) {
	rows, err := s.db.Query(
		`SELECT cycle_id, user_id, point_objective, weight_percent, credits_earned
		 FROM cycle_targets WHERE cycle_id = ? ORDER BY user_id`,
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var targets []model.CycleTarget
	for rows.Next() {
		var t model.CycleTarget
		if err := rows.Scan(&t.CycleID, &t.UserID, &t.PointObjective, &t.WeightPercent, &t.CreditsEarned); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// RefreshCredits recomputes the credit flag for every target in the
// cycle: a member has earned credit once their logged points reach
// max(objective, 1). Runs before any standings read so the flag is
// never stale.
func (s *TargetStore) RefreshCredits(cycleID int64) error {
	_, err := s.db.Exec(`
		UPDATE cycle_targets
		SET credits_earned = CASE
		    WHEN COALESCE((
		        SELECT SUM(points_earned) FROM task_log
		        WHERE task_log.cycle_id = cycle_targets.cycle_id
		          AND task_log.user_id = cycle_targets.user_id
		    ), 0) >= MAX(point_objective, 1) THEN 1
		    ELSE 0
		END
		WHERE cycle_id = ?`,
		cycleID,
	)
	if err != nil {
		return fmt.Errorf("refresh credits: %w", err)
	}
	return nil
}

// StandingRow is one member's scoreboard line: objective, points logged
// so far, and the stored credit flag.
type StandingRow struct {
	UserID         int64   `json:"user_id"`
	Name           string  `json:"name"`
	PointObjective float64 `json:"point_objective"`
	PointsTaken    float64 `json:"points_taken"`
	CreditsEarned  int     `json:"credits_earned"`
}

// Standings returns the scoreboard rows for a cycle. Members with a
// zero objective (admins, or members with no availability) are omitted.
func (s *TargetStore) Standings(cycleID int64) ([]StandingRow, error) {
	rows, err := s.db.Query(`
		SELECT
		    m.id,
		    m.name,
		    ct.point_objective,
		    COALESCE((
		        SELECT SUM(points_earned) FROM task_log
		        WHERE task_log.cycle_id = ct.cycle_id AND task_log.user_id = m.id
		    ), 0) AS points_taken,
		    ct.credits_earned
		FROM members m
		JOIN cycle_targets ct ON ct.user_id = m.id AND ct.cycle_id = ?
		WHERE ct.point_objective > 0
		ORDER BY m.name ASC`,
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("standings: %w", err)
	}
	defer rows.Close()

	var standings []StandingRow
	for rows.Next() {
		var r StandingRow
		if err := rows.Scan(&r.UserID, &r.Name, &r.PointObjective, &r.PointsTaken, &r.CreditsEarned); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		standings = append(standings, r)
	}
	return standings, rows.Err()
}

// PointsTakenByMember sums logged points per member for a cycle.
func (s *TargetStore) PointsTakenByMember(cycleID int64) (map[int64]float64, error) {
	rows, err := s.db.Query(
		`SELECT user_id, SUM(points_earned) FROM task_log
		 WHERE cycle_id = ? AND user_id IS NOT NULL GROUP BY user_id`,
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("points taken: %w", err)
	}
	defer rows.Close()

	taken := make(map[int64]float64)
	for rows.Next() {
		var userID int64
		var points float64
		if err := rows.Scan(&userID, &points); err != nil {
			return nil, fmt.Errorf("scan points taken: %w", err)
		}
		taken[userID] = points
	}
	return taken, rows.Err()
}
