package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/edlatam/lms-platform/internal/models"
)

// Имена партиций вида events_YYYYMM, остальное к удалению не принимается.
var eventPartitionRe = regexp.MustCompile(`^events_\d{6}$`)

// InsertEvent сохраняет доменное событие в месячную партицию.
// Месяц партиционирования выводится из occurred_at прямо в запросе,
// несоответствие CHECK-ограничению исключено. Повторная доставка того же
// event_id возвращает ErrAlreadyExists, воркер подтверждает её как дубль.
func (s *Storage) InsertEvent(ctx context.Context, event models.Event) error {
	const op = "storage.InsertEvent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	payload := []byte(event.Payload)
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	query := `INSERT INTO analytics.events
			      (event_id, created_month, event_type, user_id, entity_type, entity_id, payload, occurred_at)
			  VALUES ($1, date_trunc('month', $6::timestamptz AT TIME ZONE 'UTC')::date, $2, $3, $4, $5, $7, $6)`
	if _, err := s.DB.ExecContext(ctx, query,
		event.EventID, event.EventType, event.UserID, event.EntityType, event.EntityID,
		event.OccurredAt, payload); err != nil {
		if uniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EnsureEventsPartition создаёт партицию для месяца, если её ещё нет,
// и возвращает её имя.
func (s *Storage) EnsureEventsPartition(ctx context.Context, monthStart time.Time) (string, error) {
	const op = "storage.EnsureEventsPartition"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var name string
	query := `SELECT analytics.ensure_events_partition($1::date)`
	if err := s.DB.QueryRowContext(ctx, query, monthStart).Scan(&name); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return name, nil
}

// ListEventPartitions возвращает имена существующих месячных партиций
// в порядке возрастания.
func (s *Storage) ListEventPartitions(ctx context.Context) ([]string, error) {
	const op = "storage.ListEventPartitions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT c.relname
			  FROM pg_inherits i
			  JOIN pg_class c ON c.oid = i.inhrelid
			  JOIN pg_class p ON p.oid = i.inhparent
			  JOIN pg_namespace n ON n.oid = p.relnamespace
			  WHERE n.nspname = 'analytics' AND p.relname = 'events'
			  ORDER BY c.relname`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DropEventPartition удаляет месячную партицию целиком вместе с данными.
// Имя проверяется по шаблону events_YYYYMM, произвольный идентификатор
// в запрос не попадает.
func (s *Storage) DropEventPartition(ctx context.Context, name string) error {
	const op = "storage.DropEventPartition"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if !eventPartitionRe.MatchString(name) {
		return fmt.Errorf("%s: suspicious partition name %q", op, name)
	}
	query := fmt.Sprintf(`DROP TABLE IF EXISTS analytics.%s`, name)
	if _, err := s.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountEventsInMonth возвращает число событий в месяце. Используется
// в тестах и при проверках перед удалением партиции.
func (s *Storage) CountEventsInMonth(ctx context.Context, monthStart time.Time) (int, error) {
	const op = "storage.CountEventsInMonth"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT count(*) FROM analytics.events WHERE created_month = $1::date`
	if err := s.DB.QueryRowContext(ctx, query, monthStart).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
