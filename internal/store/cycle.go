package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/messmate/internal/cycle"
	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

type CycleStore struct {
	db *sql.DB
}

func NewCycleStore(db *sql.DB) *CycleStore {
	return &CycleStore{db: db}
}

func scanCycle(scanner interface{ Scan(...any) error }) (*model.Cycle, error) {
	var c model.Cycle
	err := scanner.Scan(
		&c.ID, &c.Name, &c.StartDate, &c.EndDate,
		&c.StartPeriod, &c.EndPeriod, &c.CalculationMode,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const cycleCols = `id, cycle_name, start_date, end_date, start_period, end_period, calculation_mode, created_at, updated_at`

func (s *CycleStore) List() ([]model.Cycle, error) {
	rows, err := s.db.Query(`SELECT ` + cycleCols + ` FROM cycles ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []model.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		cycles = append(cycles, *c)
	}
	return cycles, rows.Err()
}

func (s *CycleStore) GetByID(id int64) (*model.Cycle, error) {
	row := s.db.QueryRow(`SELECT `+cycleCols+` FROM cycles WHERE id = ?`, id)
	c, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cycle: %w", err)
	}
	return c, nil
}

func (s *CycleStore) SetMode(id int64, mode model.CalculationMode) (*model.Cycle, error) {
	_, err := s.db.Exec(
		`UPDATE cycles SET calculation_mode = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		mode, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set calculation mode: %w", err)
	}
	return s.GetByID(id)
}

func (s *CycleStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM cycles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete cycle: %w", err)
	}
	return nil
}

// CreateWithTrim inserts a new cycle after applying the trim plan to the
// cycles it displaces, all in one transaction.
func (s *CycleStore) CreateWithTrim(c model.Cycle, plan []cycle.TrimAction) (*model.Cycle, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := applyTrim(tx, plan); err != nil {
		return nil, err
	}

	result, err := tx.Exec(
		`INSERT INTO cycles (cycle_name, start_date, end_date, start_period, end_period, calculation_mode)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.StartDate, c.EndDate, c.StartPeriod, c.EndPeriod, c.CalculationMode,
	)
	if err != nil {
		return nil, fmt.Errorf("insert cycle: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

// UpdateWithTrim rewrites an existing cycle's boundaries after applying
// the trim plan to its new neighbors. Log entries that fall outside the
// new range are purged and the cycle's targets are invalidated so the
// next standings calculation starts clean.
func (s *CycleStore) UpdateWithTrim(id int64, c model.Cycle, plan []cycle.TrimAction) (*model.Cycle, error) {
	newStart, newEnd, err := cycle.Boundaries(c)
	if err != nil {
		return nil, fmt.Errorf("cycle boundaries: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := applyTrim(tx, plan); err != nil {
		return nil, err
	}

	_, err = tx.Exec(
		`UPDATE cycles SET cycle_name = ?, start_date = ?, end_date = ?, start_period = ?, end_period = ?, calculation_mode = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		c.Name, c.StartDate, c.EndDate, c.StartPeriod, c.EndPeriod, c.CalculationMode, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update cycle: %w", err)
	}

	// Purge logs whose slot now lies entirely outside the cycle: the
	// slot's last second is before the new start, or its first second
	// is after the new end.
	_, err = tx.Exec(`
		DELETE FROM task_log
		WHERE cycle_id = ?
		  AND (
		      task_date || ' ' || CASE time_period
		          WHEN 'Morning' THEN '11:00:00'
		          WHEN 'Noon' THEN '17:00:00'
		          ELSE '23:59:59'
		      END < ?
		      OR task_date || ' ' || CASE time_period
		          WHEN 'Morning' THEN '06:00:00'
		          WHEN 'Noon' THEN '11:00:01'
		          ELSE '17:00:01'
		      END > ?
		  )`,
		id, sqlDatetime(newStart), sqlDatetime(newEnd),
	)
	if err != nil {
		return nil, fmt.Errorf("purge out-of-range logs: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM cycle_targets WHERE cycle_id = ?`, id); err != nil {
		return nil, fmt.Errorf("invalidate targets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

func applyTrim(tx *sql.Tx, plan []cycle.TrimAction) error {
	for _, action := range plan {
		switch action.Kind {
		case cycle.ShrinkEnd:
			_, err := tx.Exec(
				`UPDATE cycles SET end_date = ?, end_period = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				action.Date, action.Period, action.CycleID,
			)
			if err != nil {
				return fmt.Errorf("shrink cycle end: %w", err)
			}
			// Drop logs whose slot reaches into the ceded region.
			_, err = tx.Exec(`
				DELETE FROM task_log
				WHERE cycle_id = ?
				  AND task_date || ' ' || CASE time_period
				      WHEN 'Morning' THEN '11:00:00'
				      WHEN 'Noon' THEN '17:00:00'
				      ELSE '23:59:59'
				  END >= ?`,
				action.CycleID, sqlDatetime(action.LogCutoff),
			)
			if err != nil {
				return fmt.Errorf("trim logs after cutoff: %w", err)
			}
		case cycle.ShrinkStart:
			_, err := tx.Exec(
				`UPDATE cycles SET start_date = ?, start_period = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				action.Date, action.Period, action.CycleID,
			)
			if err != nil {
				return fmt.Errorf("shrink cycle start: %w", err)
			}
			_, err = tx.Exec(`
				DELETE FROM task_log
				WHERE cycle_id = ?
				  AND task_date || ' ' || CASE time_period
				      WHEN 'Morning' THEN '06:00:00'
				      WHEN 'Noon' THEN '11:00:01'
				      ELSE '17:00:01'
				  END <= ?`,
				action.CycleID, sqlDatetime(action.LogCutoff),
			)
			if err != nil {
				return fmt.Errorf("trim logs before cutoff: %w", err)
			}
		case cycle.DeleteCycle:
			if _, err := tx.Exec(`DELETE FROM cycles WHERE id = ?`, action.CycleID); err != nil {
				return fmt.Errorf("delete engulfed cycle: %w", err)
			}
			continue
		default:
			return fmt.Errorf("unknown trim action %d", action.Kind)
		}
		// A trimmed cycle's objectives no longer match its span.
		if _, err := tx.Exec(`DELETE FROM cycle_targets WHERE cycle_id = ?`, action.CycleID); err != nil {
			return fmt.Errorf("invalidate trimmed targets: %w", err)
		}
	}
	return nil
}

// sqlDatetime renders t in the wall-clock form the log purge queries
// compare against. The text format sorts lexicographically.
func sqlDatetime(t time.Time) string {
	return t.In(timeband.Location).Format("2006-01-02 15:04:05")
}
