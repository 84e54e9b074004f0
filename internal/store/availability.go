package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

type AvailabilityStore struct {
	db *sql.DB
}

func NewAvailabilityStore(db *sql.DB) *AvailabilityStore {
	return &AvailabilityStore{db: db}
}

// Grid returns the live availability grid.
func (s *AvailabilityStore) Grid() ([]model.AvailabilityRow, error) {
	return s.queryRows(`SELECT user_id, day_of_week, time_of_day FROM member_availability ORDER BY day_of_week, time_of_day, user_id`)
}

// SetSlot replaces the member list for one weekday/period slot.
func (s *AvailabilityStore) SetSlot(day int, period timeband.Period, userIDs []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM member_availability WHERE day_of_week = ? AND time_of_day = ?`,
		day, period,
	); err != nil {
		return fmt.Errorf("clear slot: %w", err)
	}
	for _, userID := range userIDs {
		if _, err := tx.Exec(
			`INSERT INTO member_availability (user_id, day_of_week, time_of_day) VALUES (?, ?, ?)`,
			userID, day, period,
		); err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
	}
	return tx.Commit()
}

// SetFullDay clears a weekday and, when checked, marks every given
// member available for all three periods of it.
func (s *AvailabilityStore) SetFullDay(day int, checked bool, userIDs []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM member_availability WHERE day_of_week = ?`, day); err != nil {
		return fmt.Errorf("clear day: %w", err)
	}
	if checked {
		for _, userID := range userIDs {
			for _, p := range timeband.Periods {
				if _, err := tx.Exec(
					`INSERT INTO member_availability (user_id, day_of_week, time_of_day) VALUES (?, ?, ?)`,
					userID, day, p,
				); err != nil {
					return fmt.Errorf("insert day slot: %w", err)
				}
			}
		}
	}
	return tx.Commit()
}

// Snapshot replaces the cycle's frozen availability with a fresh copy
// of the live grid, restricted to roster members. Standings and
// recommendations for the cycle read only this copy afterwards.
func (s *AvailabilityStore) Snapshot(cycleID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cycle_availability WHERE cycle_id = ?`, cycleID); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO cycle_availability (cycle_id, user_id, day_of_week, time_of_day)
		SELECT ?, ma.user_id, ma.day_of_week, ma.time_of_day
		FROM member_availability ma
		JOIN members m ON ma.user_id = m.id
		WHERE m.role = ?`,
		cycleID, model.RoleMember,
	)
	if err != nil {
		return fmt.Errorf("copy snapshot: %w", err)
	}
	return tx.Commit()
}

// SnapshotRows returns the frozen availability for a cycle.
func (s *AvailabilityStore) SnapshotRows(cycleID int64) ([]model.AvailabilityRow, error) {
	return s.queryRows(
		`SELECT user_id, day_of_week, time_of_day FROM cycle_availability WHERE cycle_id = ? ORDER BY day_of_week, time_of_day, user_id`,
		cycleID,
	)
}

func (s *AvailabilityStore) queryRows(query string, args ...any) ([]model.AvailabilityRow, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	defer rows.Close()

	var result []model.AvailabilityRow
	for rows.Next() {
		var r model.AvailabilityRow
		if err := rows.Scan(&r.UserID, &r.DayOfWeek, &r.Period); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
