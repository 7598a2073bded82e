package storage

import (
	"context"
	"fmt"

	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
)

// SaveStudy persists one study record and sets its database ID.
func (s *SQLiteStorage) SaveStudy(ctx context.Context, record *model.StudyRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if record == nil || record.ShiftID == "" || record.AccessionNumber == "" {
		return fmt.Errorf("study record with shift ID and accession is required")
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO studies (
			shift_id, accession_number, procedure_text, study_type,
			modality, body_part, rvu, start_time, end_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ShiftID, record.AccessionNumber, record.ProcedureText, record.StudyType,
		record.Modality, record.BodyPart, record.RVU, record.StartTime, record.EndTime)
	if err != nil {
		return fmt.Errorf("failed to save study: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get study ID: %w", err)
	}
	record.ID = id
	return nil
}

// DeleteStudy removes a study record; the undo path.
func (s *SQLiteStorage) DeleteStudy(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM studies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete study: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("study %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetStudies returns a shift's studies in recorded order.
func (s *SQLiteStorage) GetStudies(ctx context.Context, shiftID string) ([]model.StudyRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, shift_id, accession_number, procedure_text, study_type,
		        modality, body_part, rvu, start_time, end_time
		 FROM studies WHERE shift_id = ? ORDER BY end_time, id`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query studies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var studies []model.StudyRecord
	for rows.Next() {
		var record model.StudyRecord
		if err := rows.Scan(
			&record.ID, &record.ShiftID, &record.AccessionNumber, &record.ProcedureText,
			&record.StudyType, &record.Modality, &record.BodyPart, &record.RVU,
			&record.StartTime, &record.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan study: %w", err)
		}
		studies = append(studies, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate studies: %w", err)
	}
	return studies, nil
}

// UpdateStudyClassification rewrites a study's type and RVU; used only by
// the explicit reclassification pass, never by normal capture flow.
func (s *SQLiteStorage) UpdateStudyClassification(ctx context.Context, id int64, studyType string, rvu float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if studyType == "" {
		return fmt.Errorf("study type is required")
	}
	if rvu < 0 {
		return fmt.Errorf("rvu must not be negative")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE studies SET study_type = ?, rvu = ? WHERE id = ?`,
		studyType, rvu, id)
	if err != nil {
		return fmt.Errorf("failed to update study classification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("study %d: %w", id, common.ErrNotFound)
	}
	return nil
}
