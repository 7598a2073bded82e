package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
)

// CreateShift persists a newly started shift.
func (s *SQLiteStorage) CreateShift(ctx context.Context, shift *model.Shift) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if shift == nil || shift.ID == "" {
		return fmt.Errorf("shift with an ID is required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shifts (id, start_time, end_time, status) VALUES (?, ?, ?, ?)`,
		shift.ID, shift.StartTime, nullableTime(shift.EndTime), string(shift.Status))
	if err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}
	return nil
}

// EndShift marks a shift ended at the given time.
func (s *SQLiteStorage) EndShift(ctx context.Context, shiftID string, endTime time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE shifts SET end_time = ?, status = ? WHERE id = ?`,
		endTime, string(model.ShiftEnded), shiftID)
	if err != nil {
		return fmt.Errorf("failed to end shift: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check end shift result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("shift %s: %w", shiftID, common.ErrNotFound)
	}
	return nil
}

// GetShift loads one shift with its studies.
func (s *SQLiteStorage) GetShift(ctx context.Context, shiftID string) (*model.Shift, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, status FROM shifts WHERE id = ?`, shiftID)
	shift, err := scanShift(row)
	if err != nil {
		return nil, err
	}
	if err := s.attachStudies(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// GetActiveShift returns the active shift, or ErrNotFound when none is active.
func (s *SQLiteStorage) GetActiveShift(ctx context.Context) (*model.Shift, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, status FROM shifts
		 WHERE status = ? ORDER BY start_time DESC LIMIT 1`,
		string(model.ShiftActive))
	shift, err := scanShift(row)
	if err != nil {
		return nil, err
	}
	if err := s.attachStudies(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// GetPreviousShift returns the most recent ended shift that started before
// the given time; used as the default pace reference.
func (s *SQLiteStorage) GetPreviousShift(ctx context.Context, before time.Time) (*model.Shift, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, status FROM shifts
		 WHERE status = ? AND start_time < ?
		 ORDER BY start_time DESC LIMIT 1`,
		string(model.ShiftEnded), before)
	shift, err := scanShift(row)
	if err != nil {
		return nil, err
	}
	if err := s.attachStudies(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// ListShifts returns the most recent shifts, newest first, studies attached.
func (s *SQLiteStorage) ListShifts(ctx context.Context, limit int) ([]model.Shift, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_time, end_time, status FROM shifts
		 ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var shifts []model.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, *shift)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shifts: %w", err)
	}

	for i := range shifts {
		if err := s.attachStudies(ctx, &shifts[i]); err != nil {
			return nil, err
		}
	}
	return shifts, nil
}

func (s *SQLiteStorage) attachStudies(ctx context.Context, shift *model.Shift) error {
	studies, err := s.GetStudies(ctx, shift.ID)
	if err != nil {
		return err
	}
	shift.Studies = studies
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*model.Shift, error) {
	var shift model.Shift
	var endTime sql.NullTime
	var status string

	err := row.Scan(&shift.ID, &shift.StartTime, &endTime, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan shift: %w", err)
	}

	if endTime.Valid {
		t := endTime.Time
		shift.EndTime = &t
	}
	shift.Status = model.ShiftStatus(status)
	return &shift, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
