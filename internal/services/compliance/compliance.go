// Package services содержит бизнес-логику запросов субъектов данных.
// Срок ответа по юрисдикции выставляет триггер базы, продвижение
// статусов выполняет администратор.
package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// ComplianceRepository описывает методы для работы с запросами субъектов
// данных в хранилище.
type ComplianceRepository interface {
	// CreateDataRightsRequest сохраняет запрос и возвращает его со сроком ответа.
	CreateDataRightsRequest(ctx context.Context, req models.DataRightsRequest) (*models.DataRightsRequest, error)
	// GetDataRightsRequest возвращает запрос по идентификатору.
	GetDataRightsRequest(ctx context.Context, requestID string) (*models.DataRightsRequest, error)
	// ListUserDataRightsRequests возвращает запросы пользователя.
	ListUserDataRightsRequests(ctx context.Context, userID string, limit, offset int) ([]*models.DataRightsRequest, error)
	// StartDataRightsRequest берёт полученный запрос в работу.
	StartDataRightsRequest(ctx context.Context, requestID string) (int, error)
	// CompleteDataRightsRequest завершает запрос в работе.
	CompleteDataRightsRequest(ctx context.Context, requestID string) (int, error)
	// RejectDataRightsRequest отклоняет незавершённый запрос.
	RejectDataRightsRequest(ctx context.Context, requestID string) (int, error)
}

// Events описывает публикацию доменных событий.
type Events interface {
	Record(event models.Event)
}

// ComplianceService реализует бизнес-логику запросов субъектов данных.
type ComplianceService struct {
	repo   ComplianceRepository
	events Events
	log    *slog.Logger
}

// NewComplianceService создает новый экземпляр ComplianceService.
func NewComplianceService(repo ComplianceRepository, events Events, log *slog.Logger) *ComplianceService {
	return &ComplianceService{
		repo:   repo,
		events: events,
		log:    log,
	}
}

// CreateRequest регистрирует запрос субъекта данных и возвращает его
// с вычисленным сроком ответа.
func (s *ComplianceService) CreateRequest(ctx context.Context, userID string, req models.DummyDataRights) (*models.DataRightsRequest, error) {
	request := models.DataRightsRequest{
		UserID:       userID,
		RequestType:  req.RequestType,
		Jurisdiction: req.Jurisdiction,
	}
	if req.Details != "" {
		request.Details = &req.Details
	}

	created, err := s.repo.CreateDataRightsRequest(ctx, request)
	if err != nil {
		return nil, err
	}
	s.log.Info("created data rights request", slog.String("id", created.ID),
		slog.String("type", created.RequestType),
		slog.String("jurisdiction", created.Jurisdiction))

	entity := "data_rights_request"
	payload, merr := json.Marshal(map[string]string{
		"request_type": created.RequestType,
		"jurisdiction": created.Jurisdiction,
	})
	if merr != nil {
		payload = nil
	}
	s.events.Record(models.Event{
		EventType:  models.EventDataRightsCreated,
		UserID:     &userID,
		EntityType: &entity,
		EntityID:   &created.ID,
		Payload:    payload,
	})
	return created, nil
}

// ListMine возвращает запросы пользователя, новые первыми.
func (s *ComplianceService) ListMine(ctx context.Context, userID string, limit, offset int) ([]*models.DataRightsRequest, error) {
	return s.repo.ListUserDataRightsRequests(ctx, userID, limit, offset)
}

// Start берёт полученный запрос в работу.
func (s *ComplianceService) Start(ctx context.Context, requestID string) error {
	count, err := s.repo.StartDataRightsRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.transitionError(ctx, requestID)
	}
	s.log.Info("data rights request started", slog.String("id", requestID))
	return nil
}

// Complete завершает запрос в работе.
func (s *ComplianceService) Complete(ctx context.Context, requestID string) error {
	count, err := s.repo.CompleteDataRightsRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.transitionError(ctx, requestID)
	}
	s.log.Info("data rights request completed", slog.String("id", requestID))
	return nil
}

// Reject отклоняет незавершённый запрос.
func (s *ComplianceService) Reject(ctx context.Context, requestID string) error {
	count, err := s.repo.RejectDataRightsRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.transitionError(ctx, requestID)
	}
	s.log.Info("data rights request rejected", slog.String("id", requestID))
	return nil
}

func (s *ComplianceService) transitionError(ctx context.Context, requestID string) error {
	if _, err := s.repo.GetDataRightsRequest(ctx, requestID); err != nil {
		return err
	}
	return repository.ErrInvalidTransition
}
