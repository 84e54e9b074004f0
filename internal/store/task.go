package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// --- Template methods ---

func scanTemplate(scanner interface{ Scan(...any) error }) (*model.TaskTemplate, error) {
	var t model.TaskTemplate
	err := scanner.Scan(&t.ID, &t.Name, &t.Period, &t.Points, &t.DefaultHeadcount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const templateCols = `id, task_name, time_of_day, points, default_headcount, created_at, updated_at`

func (s *TaskStore) ListTemplates() ([]model.TaskTemplate, error) {
	rows, err := s.db.Query(`SELECT ` + templateCols + ` FROM task_templates ORDER BY time_of_day, task_name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.TaskTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *TaskStore) GetTemplateByID(id int64) (*model.TaskTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateCols+` FROM task_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *TaskStore) CreateTemplate(name string, period timeband.Period, points float64, headcount int) (*model.TaskTemplate, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_templates (task_name, time_of_day, points, default_headcount) VALUES (?, ?, ?, ?)`,
		name, period, points, headcount,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetTemplateByID(id)
}

func (s *TaskStore) UpdateTemplate(id int64, name string, period timeband.Period, points float64, headcount int) (*model.TaskTemplate, error) {
	_, err := s.db.Exec(
		`UPDATE task_templates SET task_name = ?, time_of_day = ?, points = ?, default_headcount = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, period, points, headcount, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return s.GetTemplateByID(id)
}

func (s *TaskStore) DeleteTemplate(id int64) error {
	_, err := s.db.Exec(`DELETE FROM task_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// --- Log methods ---

func scanLog(scanner interface{ Scan(...any) error }) (*model.TaskLogEntry, error) {
	var e model.TaskLogEntry
	var userID sql.NullInt64
	err := scanner.Scan(&e.ID, &e.CycleID, &e.TemplateID, &e.Date, &e.Period, &userID, &e.PointsEarned, &e.Notes)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		e.UserID = &userID.Int64
	}
	return &e, nil
}

const logCols = `id, cycle_id, template_id, task_date, time_period, user_id, points_earned, notes`

// LogsForCycle returns every log entry recorded against a cycle.
func (s *TaskStore) LogsForCycle(cycleID int64) ([]model.TaskLogEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+logCols+` FROM task_log WHERE cycle_id = ? ORDER BY task_date, time_period`,
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var logs []model.TaskLogEntry
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		logs = append(logs, *e)
	}
	return logs, rows.Err()
}

// GridMark is one filled cell on the logbook grid.
type GridMark struct {
	Date   timeband.Date   `json:"task_date"`
	Period timeband.Period `json:"time_of_day"`
}

// GridMarks returns the distinct (date, period) pairs that have at
// least one log entry, for rendering completion marks on the grid.
func (s *TaskStore) GridMarks(cycleID int64) ([]GridMark, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT task_date, time_period FROM task_log WHERE cycle_id = ? ORDER BY task_date, time_period`,
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("grid marks: %w", err)
	}
	defer rows.Close()

	var marks []GridMark
	for rows.Next() {
		var m GridMark
		if err := rows.Scan(&m.Date, &m.Period); err != nil {
			return nil, fmt.Errorf("scan grid mark: %w", err)
		}
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

// SlotLog returns the entries recorded for one template on one date.
func (s *TaskStore) SlotLog(cycleID, templateID int64, date timeband.Date) ([]model.TaskLogEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+logCols+` FROM task_log WHERE cycle_id = ? AND template_id = ? AND task_date = ?`,
		cycleID, templateID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("slot log: %w", err)
	}
	defer rows.Close()

	var logs []model.TaskLogEntry
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		logs = append(logs, *e)
	}
	return logs, rows.Err()
}

// LogSlot replaces the slot's entries: one row per member, or a single
// anonymous row when the work was done by someone off the roster. The
// whole slot is cleared first so re-logging is idempotent.
func (s *TaskStore) LogSlot(cycleID, templateID int64, date timeband.Date, period timeband.Period, userIDs []int64, pointsPerUser float64, notes string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM task_log WHERE cycle_id = ? AND template_id = ? AND task_date = ?`,
		cycleID, templateID, date,
	); err != nil {
		return fmt.Errorf("clear slot: %w", err)
	}

	if len(userIDs) == 0 {
		if _, err := tx.Exec(
			`INSERT INTO task_log (cycle_id, template_id, task_date, time_period, user_id, points_earned, notes)
			 VALUES (?, ?, ?, ?, NULL, 0, ?)`,
			cycleID, templateID, date, period, notes,
		); err != nil {
			return fmt.Errorf("insert anonymous log: %w", err)
		}
	} else {
		for _, userID := range userIDs {
			if _, err := tx.Exec(
				`INSERT INTO task_log (cycle_id, template_id, task_date, time_period, user_id, points_earned, notes)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				cycleID, templateID, date, period, userID, pointsPerUser, notes,
			); err != nil {
				return fmt.Errorf("insert log: %w", err)
			}
		}
	}
	return tx.Commit()
}

// ClearSlot removes every entry for one template on one date.
func (s *TaskStore) ClearSlot(cycleID, templateID int64, date timeband.Date) error {
	_, err := s.db.Exec(
		`DELETE FROM task_log WHERE cycle_id = ? AND template_id = ? AND task_date = ?`,
		cycleID, templateID, date,
	)
	if err != nil {
		return fmt.Errorf("clear slot: %w", err)
	}
	return nil
}

// SlotMembers lists members eligible to appear in a slot's log dialog:
// anyone available in the cycle snapshot for that weekday/period, plus
// anyone already logged against the slot even if no longer available.
func (s *TaskStore) SlotMembers(cycleID, templateID int64, day int, period timeband.Period, date timeband.Date) ([]model.Member, error) {
	rows, err := s.db.Query(`
		SELECT `+memberCols+` FROM members
		WHERE id IN (
		    SELECT user_id FROM cycle_availability
		    WHERE cycle_id = ? AND day_of_week = ? AND time_of_day = ?
		)
		OR id IN (
		    SELECT user_id FROM task_log
		    WHERE cycle_id = ? AND template_id = ? AND task_date = ? AND user_id IS NOT NULL
		)
		ORDER BY name ASC`,
		cycleID, day, period, cycleID, templateID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("slot members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}
