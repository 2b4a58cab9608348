// Package services реализует воркер аналитики. Он читает очередь
// доменных событий, обеспечивает месячную партицию и сохраняет событие
// в analytics.events. Цикл обслуживания заводит партиции текущего
// и следующего месяца и удаляет партиции за пределами глубины хранения.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edlatam/lms-platform/internal/lib/period"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// AnalyticsRepository описывает методы хранилища событий.
type AnalyticsRepository interface {
	// InsertEvent сохраняет доменное событие в месячную партицию.
	InsertEvent(ctx context.Context, event models.Event) error
	// EnsureEventsPartition создаёт партицию месяца, если её ещё нет, и возвращает имя.
	EnsureEventsPartition(ctx context.Context, monthStart time.Time) (string, error)
	// ListEventPartitions возвращает имена существующих партиций.
	ListEventPartitions(ctx context.Context) ([]string, error)
	// DropEventPartition удаляет месячную партицию целиком.
	DropEventPartition(ctx context.Context, name string) error
	// CountEventsInMonth возвращает число событий в месяце.
	CountEventsInMonth(ctx context.Context, monthStart time.Time) (int, error)
}

// AnalyticsIngestorService сохраняет события и обслуживает партиции.
type AnalyticsIngestorService struct {
	repo            AnalyticsRepository
	retentionMonths int
	log             *slog.Logger
}

// NewAnalyticsIngestorService создает новый экземпляр AnalyticsIngestorService.
func NewAnalyticsIngestorService(repo AnalyticsRepository, retentionMonths int,
	log *slog.Logger) *AnalyticsIngestorService {
	return &AnalyticsIngestorService{
		repo:            repo,
		retentionMonths: retentionMonths,
		log:             log,
	}
}

// HandleMessage обрабатывает одно сообщение очереди событий.
// Повторная доставка уже сохранённого event_id подтверждается как дубль.
func (s *AnalyticsIngestorService) HandleMessage(body []byte) error {
	var event models.Event
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	if event.EventID == "" || event.EventType == "" {
		s.log.Warn("dropping malformed event",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType))
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	ctx := context.Background()

	monthStart := period.MonthStartUTC(event.OccurredAt)
	if _, err := s.repo.EnsureEventsPartition(ctx, monthStart); err != nil {
		s.log.Error("failed to ensure events partition", sl.Err(err))
		return err
	}

	err := s.repo.InsertEvent(ctx, event)
	if errors.Is(err, repository.ErrAlreadyExists) {
		s.log.Info("duplicate event delivery acknowledged",
			slog.String("event_id", event.EventID))
		return nil
	}
	if err != nil {
		s.log.Error("failed to insert event", sl.Err(err))
		return err
	}
	s.log.Info("event stored", slog.String("event_id", event.EventID),
		slog.String("event_type", event.EventType))
	return nil
}

// RunPartitionMaintenance обслуживает партиции с заданным интервалом:
// заводит текущий и следующий месяц и удаляет месяцы старше глубины
// хранения вместе с данными.
func (s *AnalyticsIngestorService) RunPartitionMaintenance(ctx context.Context, interval time.Duration) {
	s.runPartitionMaintenance(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.runPartitionMaintenance(ctx)
	}
}

func (s *AnalyticsIngestorService) runPartitionMaintenance(ctx context.Context) {
	s.log.Info("starting partition maintenance")
	now := time.Now().UTC()
	current := period.MonthStartUTC(now)
	for _, monthStart := range []time.Time{current, period.AddMonths(current, 1)} {
		name, err := s.repo.EnsureEventsPartition(ctx, monthStart)
		if err != nil {
			s.log.Error("failed to ensure events partition", sl.Err(err))
			continue
		}
		s.log.Info("events partition ready", slog.String("partition", name))
	}

	names, err := s.repo.ListEventPartitions(ctx)
	if err != nil {
		s.log.Error("failed to list event partitions", sl.Err(err))
		return
	}
	cutoff := period.RetentionCutoff(now, s.retentionMonths)
	for _, name := range names {
		monthStart, err := parsePartitionMonth(name)
		if err != nil {
			s.log.Warn("skipping unrecognized partition", slog.String("partition", name))
			continue
		}
		if !monthStart.Before(cutoff) {
			continue
		}
		count, err := s.repo.CountEventsInMonth(ctx, monthStart)
		if err != nil {
			s.log.Error("failed to count events in expired partition",
				slog.String("partition", name), sl.Err(err))
			continue
		}
		if err = s.repo.DropEventPartition(ctx, name); err != nil {
			s.log.Error("failed to drop expired partition",
				slog.String("partition", name), sl.Err(err))
			continue
		}
		s.log.Info("dropped expired partition", slog.String("partition", name),
			slog.Int("events", count))
	}
}

// parsePartitionMonth восстанавливает первый день месяца из имени
// партиции вида events_YYYYMM.
func parsePartitionMonth(name string) (time.Time, error) {
	return time.Parse("events_200601", name)
}
