package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edlatam/lms-platform/internal/models"
)

const dataRightsColumns = `id, user_id, request_type, jurisdiction, status, details,
			      received_at, deadline_at, completed_at, created_at, updated_at`

// CreateDataRightsRequest регистрирует запрос субъекта данных и
// возвращает созданную строку. Срок ответа deadline_at выставляет
// триггер базы по юрисдикции, поэтому в INSERT он не передаётся.
func (s *Storage) CreateDataRightsRequest(ctx context.Context, req models.DataRightsRequest) (*models.DataRightsRequest, error) {
	const op = "storage.CreateDataRightsRequest"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO compliance.data_rights_requests (user_id, request_type, jurisdiction, details)
			  VALUES ($1, $2, $3, $4)
			  RETURNING ` + dataRightsColumns
	return scanDataRightsRow(s.DB.QueryRowContext(ctx, query,
		req.UserID, req.RequestType, req.Jurisdiction, req.Details), op)
}

// GetDataRightsRequest возвращает запрос по идентификатору.
func (s *Storage) GetDataRightsRequest(ctx context.Context, requestID string) (*models.DataRightsRequest, error) {
	const op = "storage.GetDataRightsRequest"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + dataRightsColumns + `
			  FROM compliance.data_rights_requests
			  WHERE id = $1`
	return scanDataRightsRow(s.DB.QueryRowContext(ctx, query, requestID), op)
}

func scanDataRightsRow(row *sql.Row, op string) (*models.DataRightsRequest, error) {
	r := models.DataRightsRequest{}
	var details sql.NullString
	var completedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.UserID, &r.RequestType, &r.Jurisdiction, &r.Status,
		&details, &r.ReceivedAt, &r.DeadlineAt, &completedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if details.Valid {
		r.Details = &details.String
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	return &r, nil
}

// ListUserDataRightsRequests возвращает запросы пользователя со свежими
// впереди.
func (s *Storage) ListUserDataRightsRequests(ctx context.Context, userID string, limit, offset int) ([]*models.DataRightsRequest, error) {
	const op = "storage.ListUserDataRightsRequests"
	return s.listDataRights(ctx, op, `
			  SELECT `+dataRightsColumns+`
			  FROM compliance.data_rights_requests
			  WHERE user_id = $1
			  ORDER BY received_at DESC
			  LIMIT $2 OFFSET $3`, userID, limit, offset)
}

// FindOverdueDataRightsRequests возвращает незавершённые запросы,
// срок ответа по которым прошёл.
func (s *Storage) FindOverdueDataRightsRequests(ctx context.Context, asOf time.Time) ([]*models.DataRightsRequest, error) {
	const op = "storage.FindOverdueDataRightsRequests"
	return s.listDataRights(ctx, op, `
			  SELECT `+dataRightsColumns+`
			  FROM compliance.data_rights_requests
			  WHERE status IN ('received', 'in_progress') AND deadline_at < $1
			  ORDER BY deadline_at`, asOf)
}

func (s *Storage) listDataRights(ctx context.Context, op, query string, args ...any) ([]*models.DataRightsRequest, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.DataRightsRequest
	for rows.Next() {
		r := models.DataRightsRequest{}
		var details sql.NullString
		var completedAt sql.NullTime
		if err = rows.Scan(&r.ID, &r.UserID, &r.RequestType, &r.Jurisdiction, &r.Status,
			&details, &r.ReceivedAt, &r.DeadlineAt, &completedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if details.Valid {
			r.Details = &details.String
		}
		if completedAt.Valid {
			r.CompletedAt = &completedAt.Time
		}
		result = append(result, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// StartDataRightsRequest переводит принятый запрос в in_progress.
// Возвращает количество изменённых строк, ноль при недопустимом переходе.
func (s *Storage) StartDataRightsRequest(ctx context.Context, requestID string) (int, error) {
	const op = "storage.StartDataRightsRequest"
	return s.transitionDataRights(ctx, op, `
			  UPDATE compliance.data_rights_requests
			  SET status = 'in_progress'
			  WHERE id = $1 AND status = 'received'`,
		requestID)
}

// CompleteDataRightsRequest завершает запрос в работе.
func (s *Storage) CompleteDataRightsRequest(ctx context.Context, requestID string) (int, error) {
	const op = "storage.CompleteDataRightsRequest"
	return s.transitionDataRights(ctx, op, `
			  UPDATE compliance.data_rights_requests
			  SET status = 'completed', completed_at = now()
			  WHERE id = $1 AND status = 'in_progress'`,
		requestID)
}

// RejectDataRightsRequest отклоняет запрос до его завершения.
func (s *Storage) RejectDataRightsRequest(ctx context.Context, requestID string) (int, error) {
	const op = "storage.RejectDataRightsRequest"
	return s.transitionDataRights(ctx, op, `
			  UPDATE compliance.data_rights_requests
			  SET status = 'rejected', completed_at = now()
			  WHERE id = $1 AND status IN ('received', 'in_progress')`,
		requestID)
}

func (s *Storage) transitionDataRights(ctx context.Context, op, query string, args ...any) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
